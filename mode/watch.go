package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/firewatch/fd-go/dashboard"
	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/pipeline"
	"github.com/firewatch/fd-go/service/lgr"
	"github.com/firewatch/fd-go/session"
)

// Watch runs one full detection session: source, detector, alerter, loop and
// dashboard, wired around a fresh session object. Exactly one source and one
// detector exist for the lifetime of the session.
func Watch(canxCtx context.Context, svcs pipeline.ServicesFactory, alerter pipeline.Alerter) error {
	sess := session.New(svcs.CfgSvc)

	lgr.Logger.Info(
		"watch session starting....",
		slog.String("session", sess.ID),
		slog.String("source", sess.Controls.Source()),
	)

	// A missing model is fatal for the session: report once, run no loop.
	detector, err := pipeline.NewYoloDetector(svcs.CfgSvc)
	if err != nil {
		lgr.Logger.Error(
			"detector unavailable, no detection will run",
			slog.Any("error", err),
		)
		return err
	}
	defer detector.Close()

	source := pipeline.NewSource(sess.Controls.Source())

	// Create an error stream. Session-scoped and never closed: the alerter
	// reports its final stats on cancellation, which may land after a
	// stop-initiated return.
	errorStream := make(chan interface{})

	// Create a stats stream
	statsStream := make(chan interface{})

	// The dashboard doubles as the loop's presenter
	server := dashboard.NewServer(svcs.CfgSvc, sess)
	server.Start(canxCtx)

	alertStream := alerter(canxCtx, svcs, sess, errorStream, statsStream)

	loop := pipeline.NewLoop(svcs, sess, source, detector, server, alertStream, errorStream, statsStream)

	loopResult := make(chan error, 1)
	go func() {
		loopResult <- loop.Run(canxCtx)
	}()

	// Wait for cancellation or loop exit while draining stats and errors
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"watch session context cancelled",
			)
			goto resume

		case err := <-loopResult:
			if err != nil {
				procError(svcs.DataSvc, model.GenError("watch_mode",
					err,
					map[string]interface{}{},
					"detection loop failed for session %s", sess.ID))
				goto resume
			}
			lgr.Logger.Info(
				"detection loop stopped",
				slog.String("session", sess.ID),
			)
			goto resume

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Drain in a non-blocking way so exiting goroutines can still report
resume:
	lgr.Logger.Info(
		"watch session is waiting for all go routines to exit",
	)

	timer := time.NewTimer(svcs.CfgSvc.GetModeMaxShutdownTime())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"watch session shutdown waiting period expired. Exiting now",
				slog.Duration("period", svcs.CfgSvc.GetModeMaxShutdownTime()),
			)
			return nil

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}
