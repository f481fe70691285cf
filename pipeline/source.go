package pipeline

import (
	"errors"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceUnavailable means the camera or stream could not be opened.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrStreamEnded means a frame read failed (device glitch, network drop,
	// or end of stream). Recoverable via backoff-and-reopen.
	ErrStreamEnded = errors.New("stream ended")
)

// SyntheticDescriptor selects the synthetic frame source.
const SyntheticDescriptor = "synthetic"

// Source abstracts a camera device or network video stream. The handle is
// owned exclusively by the detection loop; no other component reads from it.
type Source interface {
	Open() error
	Read(dst *gocv.Mat) error
	Close() error
	Descriptor() string
}

// NewSource selects the source variant from the descriptor: a numeric string
// is a local device index, "synthetic" generates frames in memory, anything
// else is treated as a network stream URL.
func NewSource(descriptor string) Source {
	if descriptor == SyntheticDescriptor {
		return &syntheticSource{}
	}
	if index, err := strconv.Atoi(descriptor); err == nil {
		return &deviceSource{index: index}
	}
	return &streamSource{url: descriptor}
}

type deviceSource struct {
	index   int
	capture *gocv.VideoCapture
}

func (s *deviceSource) Open() error {
	capture, err := gocv.OpenVideoCapture(s.index)
	if err != nil {
		return fmt.Errorf("opening device %d: %w", s.index, ErrSourceUnavailable)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("device %d not opened: %w", s.index, ErrSourceUnavailable)
	}
	s.capture = capture
	return nil
}

func (s *deviceSource) Read(dst *gocv.Mat) error {
	if s.capture == nil {
		return ErrStreamEnded
	}
	if ok := s.capture.Read(dst); !ok || dst.Empty() {
		return ErrStreamEnded
	}
	return nil
}

func (s *deviceSource) Close() error {
	if s.capture == nil {
		return nil
	}
	err := s.capture.Close()
	s.capture = nil
	return err
}

func (s *deviceSource) Descriptor() string {
	return strconv.Itoa(s.index)
}

type streamSource struct {
	url     string
	capture *gocv.VideoCapture
}

func (s *streamSource) Open() error {
	capture, err := gocv.OpenVideoCapture(s.url)
	if err != nil {
		return fmt.Errorf("opening stream %s: %w", s.url, ErrSourceUnavailable)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("stream %s not opened: %w", s.url, ErrSourceUnavailable)
	}
	s.capture = capture
	return nil
}

func (s *streamSource) Read(dst *gocv.Mat) error {
	if s.capture == nil {
		return ErrStreamEnded
	}
	if ok := s.capture.Read(dst); !ok || dst.Empty() {
		return ErrStreamEnded
	}
	return nil
}

func (s *streamSource) Close() error {
	if s.capture == nil {
		return nil
	}
	err := s.capture.Close()
	s.capture = nil
	return err
}

func (s *streamSource) Descriptor() string {
	return s.url
}

// syntheticSource generates blank BGR frames. Useful for soak testing the
// loop and the dashboard without a camera attached.
type syntheticSource struct {
	opened bool
}

func (s *syntheticSource) Open() error {
	s.opened = true
	return nil
}

func (s *syntheticSource) Read(dst *gocv.Mat) error {
	if !s.opened {
		return ErrStreamEnded
	}
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.CopyTo(dst)
	return nil
}

func (s *syntheticSource) Close() error {
	s.opened = false
	return nil
}

func (s *syntheticSource) Descriptor() string {
	return SyntheticDescriptor
}
