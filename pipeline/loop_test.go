package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/service/config"
	"github.com/firewatch/fd-go/service/data"
	"github.com/firewatch/fd-go/service/notify"
	"github.com/firewatch/fd-go/session"
)

// fakeSource is a scriptable frame source: individual reads and opens can be
// made to fail by 1-based call index, and the session can be stopped after a
// given number of successful reads.
type fakeSource struct {
	mu         sync.Mutex
	opens      int
	reads      int
	closes     int
	failReadAt map[int]bool
	failOpenAt map[int]bool
	stopAfter  int
	descriptor string
	onRead     func(read int)
	controls   *session.Controls
}

func (s *fakeSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.failOpenAt[s.opens] {
		return ErrSourceUnavailable
	}
	return nil
}

func (s *fakeSource) Read(dst *gocv.Mat) error {
	s.mu.Lock()
	s.reads++
	read := s.reads
	fail := s.failReadAt[read]
	onRead := s.onRead
	if !fail && s.stopAfter > 0 && read >= s.stopAfter && s.controls != nil {
		s.controls.RequestStop()
	}
	s.mu.Unlock()

	if onRead != nil {
		onRead(read)
	}

	if fail {
		return ErrStreamEnded
	}

	img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.CopyTo(dst)
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSource) Descriptor() string {
	if s.descriptor != "" {
		return s.descriptor
	}
	return "fake"
}

func (s *fakeSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *fakeSource) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *fakeSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// fakeDetector returns a fixed detection set and can block in-flight
// inference until released.
type fakeDetector struct {
	mu         sync.Mutex
	infers     int
	detections []model.Detection
	block      chan struct{}
	started    chan struct{}
}

func (d *fakeDetector) Infer(_ gocv.Mat, _ float32) ([]model.Detection, error) {
	d.mu.Lock()
	d.infers++
	d.mu.Unlock()

	if d.started != nil {
		select {
		case d.started <- struct{}{}:
		default:
		}
	}
	if d.block != nil {
		<-d.block
	}
	return d.detections, nil
}

func (d *fakeDetector) Annotate(frame gocv.Mat, _ []model.Detection) gocv.Mat {
	return frame.Clone()
}

func (d *fakeDetector) Close() error {
	return nil
}

type statusSeen struct {
	state   string
	message string
}

type fakePresenter struct {
	mu       sync.Mutex
	frames   int
	statuses []statusSeen
}

func (p *fakePresenter) Frame(_ gocv.Mat) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
}

func (p *fakePresenter) Status(state, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, statusSeen{state: state, message: message})
}

func (p *fakePresenter) sawMessage(message string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.statuses {
		if s.message == message {
			return true
		}
	}
	return false
}

func (p *fakePresenter) lastState() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return ""
	}
	return p.statuses[len(p.statuses)-1].state
}

func newLoopFixture(t *testing.T, source *fakeSource, detector Detector) (*Loop, *session.Session, *fakePresenter, chan AlertData) {
	t.Helper()

	t.Setenv("FD_CAMERA_SOURCE", source.Descriptor())
	t.Setenv("FD_LOOP_INTERVAL_MS", "0")
	t.Setenv("FD_READ_BACKOFF_SECONDS", "0")
	t.Setenv("FD_RECORDINGS_FOLDER", t.TempDir())
	t.Setenv("FD_DATA_FOLDER", t.TempDir())

	cfgSvc, err := config.NewEnv()
	require.NoError(t, err)

	sess := session.New(cfgSvc)
	source.controls = sess.Controls

	svcs := ServicesFactory{
		CfgSvc:    cfgSvc,
		DataSvc:   data.NewFake(),
		NotifySvc: notify.NewFake(cfgSvc),
	}

	presenter := &fakePresenter{}
	alertStream := make(chan AlertData, 10)
	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 10)

	loop := NewLoop(svcs, sess, source, detector, presenter, alertStream, errorStream, statsStream)
	return loop, sess, presenter, alertStream
}

func runLoop(t *testing.T, loop *Loop) error {
	t.Helper()

	result := make(chan error, 1)
	go func() {
		result <- loop.Run(context.Background())
	}()

	select {
	case err := <-result:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("loop did not terminate")
		return nil
	}
}

func TestLoopStopsBeforeFirstRead(t *testing.T) {
	source := &fakeSource{}
	loop, sess, presenter, _ := newLoopFixture(t, source, &fakeDetector{})

	sess.Controls.RequestStop()

	err := runLoop(t, loop)
	assert.NoError(t, err)
	assert.Equal(t, 0, source.readCount())
	assert.Equal(t, StateStopped, presenter.lastState())
	// Close runs on every exit path
	assert.Equal(t, 1, source.closeCount())
}

func TestLoopOpenFailureIsFatal(t *testing.T) {
	source := &fakeSource{failOpenAt: map[int]bool{1: true}}
	loop, _, presenter, _ := newLoopFixture(t, source, &fakeDetector{})

	err := runLoop(t, loop)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, 0, source.readCount())
	assert.True(t, presenter.sawMessage(model.StatusUnavailable))
	assert.Equal(t, StateFailed, presenter.lastState())
}

func TestLoopRecoversFromSingleReadFailure(t *testing.T) {
	// Read 3 fails once; the reopen succeeds and the loop resumes.
	source := &fakeSource{
		failReadAt: map[int]bool{3: true},
		stopAfter:  6,
	}
	loop, _, presenter, _ := newLoopFixture(t, source, &fakeDetector{})

	err := runLoop(t, loop)
	assert.NoError(t, err)
	assert.Equal(t, 2, source.openCount(), "exactly one backoff-reopen cycle")
	assert.GreaterOrEqual(t, source.readCount(), 6, "reads resume after recovery")
	assert.True(t, presenter.sawMessage(model.StatusReconnecting))
	assert.Equal(t, StateStopped, presenter.lastState())
}

func TestLoopFailsWhenReopenFails(t *testing.T) {
	source := &fakeSource{
		failReadAt: map[int]bool{1: true},
		failOpenAt: map[int]bool{2: true},
	}
	loop, _, presenter, _ := newLoopFixture(t, source, &fakeDetector{})

	err := runLoop(t, loop)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.True(t, presenter.sawMessage(model.StatusUnavailable))
	assert.Equal(t, StateFailed, presenter.lastState())
}

func TestLoopStopLatencyBound(t *testing.T) {
	// Stop requested during an in-flight inference call: the call completes,
	// the loop terminates at the next checkpoint, no further frames are read.
	detector := &fakeDetector{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	source := &fakeSource{}
	loop, sess, presenter, _ := newLoopFixture(t, source, detector)

	result := make(chan error, 1)
	go func() {
		result <- loop.Run(context.Background())
	}()

	select {
	case <-detector.started:
	case <-time.After(5 * time.Second):
		t.Fatal("inference never started")
	}

	sess.Controls.RequestStop()
	close(detector.block)

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after in-flight inference completed")
	}

	assert.Equal(t, 1, source.readCount(), "no frame reads after stop")
	assert.Equal(t, StateStopped, presenter.lastState())
}

func TestLoopDispatchesAlertWithCooldown(t *testing.T) {
	detector := &fakeDetector{
		detections: []model.Detection{
			{ClassID: 26, Label: "fire", Confidence: 0.7},
		},
	}
	source := &fakeSource{stopAfter: 5}
	loop, _, presenter, alertStream := newLoopFixture(t, source, detector)

	err := runLoop(t, loop)
	assert.NoError(t, err)

	// Five fire frames inside one cooldown window: exactly one dispatch.
	require.Len(t, alertStream, 1)
	alert := <-alertStream
	defer alert.Mat.Close()
	assert.Equal(t, "fire", alert.Label)
	assert.Equal(t, float32(0.7), alert.Confidence)
	assert.Equal(t, "fake", alert.Camera)

	assert.True(t, presenter.sawMessage(model.StatusFire))
}

func TestLoopNoAlertWhenDisabled(t *testing.T) {
	detector := &fakeDetector{
		detections: []model.Detection{
			{ClassID: 26, Label: "fire", Confidence: 0.7},
		},
	}
	source := &fakeSource{stopAfter: 3}
	loop, sess, _, alertStream := newLoopFixture(t, source, detector)

	sess.Controls.SetAlertsEnabled(false)

	err := runLoop(t, loop)
	assert.NoError(t, err)
	assert.Len(t, alertStream, 0)
}

func TestLoopSwitchesSourceFromControls(t *testing.T) {
	// A camera change from the dashboard: the loop closes the old source and
	// reads from the new one at the next iteration boundary.
	first := &fakeSource{}
	second := &fakeSource{descriptor: "rtsp://backup/live", stopAfter: 3}

	loop, sess, presenter, _ := newLoopFixture(t, first, &fakeDetector{})
	second.controls = sess.Controls

	first.onRead = func(read int) {
		if read == 2 {
			sess.Controls.SetSource("rtsp://backup/live")
		}
	}
	loop.newSource = func(descriptor string) Source {
		assert.Equal(t, "rtsp://backup/live", descriptor)
		return second
	}

	err := runLoop(t, loop)
	assert.NoError(t, err)

	assert.GreaterOrEqual(t, first.readCount(), 2)
	assert.Equal(t, 1, first.closeCount(), "old source closed on switch")
	assert.Equal(t, 1, second.openCount())
	assert.GreaterOrEqual(t, second.readCount(), 3, "reads continue on the new source")
	assert.Equal(t, 1, second.closeCount(), "live source closed on exit")
	assert.Equal(t, StateStopped, presenter.lastState())
}

func TestLoopNoFireStatus(t *testing.T) {
	source := &fakeSource{stopAfter: 2}
	loop, _, presenter, alertStream := newLoopFixture(t, source, &fakeDetector{})

	err := runLoop(t, loop)
	assert.NoError(t, err)
	assert.Len(t, alertStream, 0)
	assert.True(t, presenter.sawMessage(model.StatusNoFire))
}
