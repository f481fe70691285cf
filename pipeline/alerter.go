package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/service/lgr"
	"github.com/firewatch/fd-go/session"
)

// SimpleAlerter owns all alert notification I/O on its own goroutine so the
// detection loop never waits on it. It appends to the session's alert
// history, raises the one-shot alert signal, snapshots the alerted frame and
// posts to the configured notifier. Notification failures are swallowed.
func SimpleAlerter(canx context.Context, svcs ServicesFactory, sess *session.Session, _ chan interface{}, statsStream chan interface{}) chan AlertData {
	in := make(chan AlertData, 100)

	go func() {
		alerts := 0
		errors := 0
		startTime := time.Now().Unix()

		defer func() {
			statsStream <- model.AlerterStats{
				Name:   "simpleAlerter",
				Alerts: alerts,
				Errors: errors,
				Uptime: time.Now().Unix() - startTime,
			}
		}()

		proc := func(alert AlertData) {
			defer alert.Mat.Close()

			event := model.AlertEvent{
				Timestamp:  alert.Timestamp,
				Message:    fmt.Sprintf("Fire detected on %s", alert.Camera),
				Camera:     alert.Camera,
				Label:      alert.Label,
				Confidence: alert.Confidence,
			}

			sess.State.AppendAlert(event)
			sess.State.MarkAlertFired()
			alerts++

			// Store the alerted frame as an image
			if !alert.Mat.Empty() {
				gocv.IMWrite(fmt.Sprintf("%s/%s_alerted_frame_%d.jpg",
					svcs.CfgSvc.GetRecordingsFolder(), sess.ID, alert.Timestamp.Unix()), alert.Mat)
			}

			if err := svcs.DataSvc.NewAlertEvent(event); err != nil {
				lgr.Logger.Warn(
					"failed to record alert event",
					slog.Any("error", err),
				)
			}

			// The side-channel is fire-and-forget: a failing notifier is
			// logged and otherwise ignored.
			if err := svcs.NotifySvc.Post(event); err != nil {
				errors++
				lgr.Logger.Warn(
					"alert notification failed",
					slog.Any("error", err),
				)
				return
			}

			lgr.Logger.Info(
				"alert dispatched",
				slog.String("camera", alert.Camera),
				slog.String("label", alert.Label),
				slog.Float64("confidence", float64(alert.Confidence)),
				slog.Time("timestamp", alert.Timestamp),
			)
		}

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"alerter context cancelled",
				)
				return

			case alert := <-in:
				proc(alert)
			}
		}
	}()

	return in
}
