package mode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/firewatch/fd-go/pipeline"
	"github.com/firewatch/fd-go/service/lgr"
)

const probeFrames = 10

// Probe opens the configured source, reads a handful of frames and reports
// their dimensions. Useful to verify a camera descriptor before running a
// watch session.
func Probe(canxCtx context.Context, svcs pipeline.ServicesFactory, _ pipeline.Alerter) error {
	source := pipeline.NewSource(svcs.CfgSvc.GetCameraSource())

	if err := source.Open(); err != nil {
		return fmt.Errorf("probe could not open source %s: %w", source.Descriptor(), err)
	}
	defer source.Close()

	for i := 0; i < probeFrames; i++ {
		if canxCtx.Err() != nil {
			return nil
		}

		img := gocv.NewMat()
		if err := source.Read(&img); err != nil {
			img.Close()
			return fmt.Errorf("probe read failed on frame %d: %w", i+1, err)
		}

		lgr.Logger.Info(
			"probe frame",
			slog.Int("frame", i+1),
			slog.Int("rows", img.Rows()),
			slog.Int("cols", img.Cols()),
			slog.Int("channels", img.Channels()),
		)
		img.Close()

		time.Sleep(100 * time.Millisecond)
	}

	lgr.Logger.Info(
		"probe finished",
		slog.String("source", source.Descriptor()),
		slog.Int("frames", probeFrames),
	)
	return nil
}
