package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/firewatch/fd-go/metrics"
	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/service/lgr"
	"github.com/firewatch/fd-go/session"
)

// Detection loop states.
const (
	StateInitializing = "initializing"
	StateRunning      = "running"
	StateRecovering   = "recovering"
	StateStopped      = "stopped"
	StateFailed       = "failed"
)

// Loop drives one detection session: read a frame, run inference, classify,
// apply the alert policy, update the presentation, yield. Acquisition and
// inference run sequentially on the caller's goroutine; the alerter is the
// only concurrent path and is reached through a non-blocking channel send.
type Loop struct {
	svcs        ServicesFactory
	sess        *session.Session
	source      Source
	detector    Detector
	presenter   Presenter
	fireSet     FireClassSet
	newSource   func(descriptor string) Source
	alertStream chan AlertData
	errorStream chan interface{}
	statsStream chan interface{}

	state      string
	alertState AlertState
}

func NewLoop(svcs ServicesFactory,
	sess *session.Session,
	source Source,
	detector Detector,
	presenter Presenter,
	alertStream chan AlertData,
	errorStream chan interface{},
	statsStream chan interface{}) *Loop {
	return &Loop{
		svcs:        svcs,
		sess:        sess,
		source:      source,
		detector:    detector,
		presenter:   presenter,
		fireSet:     NewFireClassSet(svcs.CfgSvc.GetFireClasses()),
		newSource:   NewSource,
		alertStream: alertStream,
		errorStream: errorStream,
		statsStream: statsStream,
		state:       StateInitializing,
	}
}

// State returns the loop's last announced state.
func (l *Loop) State() string {
	return l.state
}

// Run executes the session until the stop flag is set, the context is
// cancelled, or the source becomes unrecoverable. The stop flag is observed
// at the top of each iteration only, so an in-flight inference call is
// allowed to complete.
func (l *Loop) Run(canxCtx context.Context) error {
	l.transition(StateInitializing, "")

	if err := l.source.Open(); err != nil {
		l.transition(StateFailed, model.StatusUnavailable)
		return fmt.Errorf("opening source %s: %w", l.source.Descriptor(), err)
	}
	// The current source may be swapped mid-run; close whichever one is live.
	defer func() {
		l.source.Close()
	}()

	interval := l.svcs.CfgSvc.GetLoopInterval()
	warnAfter := l.svcs.CfgSvc.GetInferWarnAfter()

	startTime := time.Now().Unix()
	frames := 0
	recoveries := 0
	inferErrors := 0
	var totalInferenceTime time.Duration

	defer func() {
		uptime := time.Now().Unix() - startTime
		var avgProcTime float64
		if frames > 0 {
			avgProcTime = totalInferenceTime.Seconds() / float64(frames)
		}
		var fps int
		if uptime > 0 {
			fps = frames / int(uptime)
		}
		l.statsStream <- model.SourceStats{
			Name:    "frameSource",
			Camera:  l.source.Descriptor(),
			Frames:  frames,
			Errors:  recoveries,
			Reopens: recoveries,
			Uptime:  uptime,
			FPS:     fps,
		}
		l.statsStream <- model.DetectorStats{
			Name:        "detectionLoop",
			Camera:      l.source.Descriptor(),
			Frames:      frames,
			Errors:      inferErrors,
			Uptime:      uptime,
			AvgProcTime: avgProcTime,
		}
		l.statsStream <- model.SessionStats{
			ID:         l.sess.ID,
			Camera:     l.source.Descriptor(),
			State:      l.state,
			Frames:     frames,
			Alerts:     l.sess.State.AlertCount(),
			Recoveries: recoveries,
			Uptime:     uptime,
		}
	}()

	for {
		// Stop checkpoint: top of the iteration only.
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"detection loop context cancelled",
			)
			l.transition(StateStopped, "")
			return nil
		default:
		}

		if l.sess.Controls.StopRequested() {
			lgr.Logger.Info(
				"detection loop stop requested",
				slog.String("session", l.sess.ID),
			)
			l.transition(StateStopped, "")
			return nil
		}

		// A source change from the dashboard takes effect here, between frames.
		if desc := l.sess.Controls.Source(); desc != l.source.Descriptor() {
			lgr.Logger.Info(
				"switching source",
				slog.String("from", l.source.Descriptor()),
				slog.String("to", desc),
			)
			l.source.Close()
			l.source = l.newSource(desc)
			if err := l.source.Open(); err != nil {
				recoveries++
				if err := l.recover(canxCtx); err != nil {
					if canxCtx.Err() != nil {
						l.transition(StateStopped, "")
						return nil
					}
					l.transition(StateFailed, model.StatusUnavailable)
					return err
				}
			}
		}

		img := gocv.NewMat()
		if err := l.source.Read(&img); err != nil {
			img.Close()
			recoveries++
			if err := l.recover(canxCtx); err != nil {
				if canxCtx.Err() != nil {
					l.transition(StateStopped, "")
					return nil
				}
				l.transition(StateFailed, model.StatusUnavailable)
				return err
			}
			continue
		}

		frames++
		metrics.FramesProcessed.Inc()

		threshold := l.sess.Controls.Threshold()
		inferenceStart := time.Now()
		detections, err := l.detector.Infer(img, threshold)
		inferenceTime := time.Since(inferenceStart)
		totalInferenceTime += inferenceTime

		if warnAfter > 0 && inferenceTime > warnAfter {
			lgr.Logger.Warn(
				"inference is taking longer than expected",
				slog.Duration("took", inferenceTime),
				slog.Duration("threshold", warnAfter),
			)
		}

		if err != nil {
			// Fatal to this iteration only; re-enter at the next checkpoint.
			inferErrors++
			l.errorStream <- model.GenError("detection_loop",
				err,
				map[string]interface{}{},
				"inference failed on frame %d", frames)
			img.Close()
			l.yield(canxCtx, interval)
			continue
		}

		fire := IsFire(detections, l.fireSet)
		now := time.Now()
		should, updated := MaybeAlert(fire, now, AlertState{
			LastAlertTime: l.alertState.LastAlertTime,
			Cooldown:      l.sess.Controls.Cooldown(),
			Enabled:       l.sess.Controls.AlertsEnabled(),
		})
		l.alertState = updated

		annotated := l.detector.Annotate(img, detections)

		if should {
			best, _ := BestFire(detections, l.fireSet)
			// WARNING: never block the loop on the alerter.
			select {
			case l.alertStream <- AlertData{
				Mat:        annotated.Clone(),
				Camera:     l.source.Descriptor(),
				Label:      best.Label,
				Confidence: best.Confidence,
				Timestamp:  now,
			}:
				metrics.AlertsDispatched.Inc()
			default:
				metrics.AlertsDropped.Inc()
				lgr.Logger.Warn("alert stream full, dropping alert")
			}
		}

		if fire {
			l.transition(StateRunning, model.StatusFire)
		} else {
			l.transition(StateRunning, model.StatusNoFire)
		}
		l.presenter.Frame(annotated)

		annotated.Close()
		img.Close()

		// Bounded yield to keep the system responsive.
		l.yield(canxCtx, interval)
	}
}

// recover runs the backoff-and-reopen cycle after a read failure. A bounded
// number of reopen attempts is made; exhausting them is the only fatal path
// for the source at runtime.
func (l *Loop) recover(canxCtx context.Context) error {
	l.transition(StateRecovering, model.StatusReconnecting)
	metrics.SourceRecoveries.Inc()

	backoff := l.svcs.CfgSvc.GetReadBackoff()
	attempts := l.svcs.CfgSvc.GetSourceReopenAttempts()

	var lastErr error
	for i := 0; i < attempts; i++ {
		l.source.Close()

		if !l.yield(canxCtx, backoff) {
			return canxCtx.Err()
		}

		if lastErr = l.source.Open(); lastErr == nil {
			lgr.Logger.Info(
				"source reopened",
				slog.String("source", l.source.Descriptor()),
				slog.Int("attempt", i+1),
			)
			l.transition(StateRunning, "")
			return nil
		}

		lgr.Logger.Warn(
			"source reopen failed",
			slog.String("source", l.source.Descriptor()),
			slog.Int("attempt", i+1),
			slog.Any("error", lastErr),
		)
	}

	return fmt.Errorf("reopening source %s after %d attempts: %w", l.source.Descriptor(), attempts, lastErr)
}

func (l *Loop) transition(state, message string) {
	if state != l.state {
		lgr.Logger.Info(
			"detection loop state change",
			slog.String("from", l.state),
			slog.String("to", state),
		)
		l.state = state
	}
	l.presenter.Status(state, message)
}

// yield sleeps for d unless the context is cancelled first. Returns false on
// cancellation.
func (l *Loop) yield(canxCtx context.Context, d time.Duration) bool {
	if d <= 0 {
		return canxCtx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-canxCtx.Done():
		return false
	case <-timer.C:
		return true
	}
}
