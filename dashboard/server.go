// Package dashboard is the HTTP presentation adapter: it serves the live
// annotated stream as MJPEG, exposes the session status and alert history as
// JSON, and accepts control mutations (threshold, cooldown, alerts enabled,
// stop). It implements the loop's Presenter interface.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hybridgroup/mjpeg"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gocv.io/x/gocv"

	"github.com/firewatch/fd-go/service/config"
	"github.com/firewatch/fd-go/service/lgr"
	"github.com/firewatch/fd-go/session"
)

type Server struct {
	cfgSvc config.IService
	sess   *session.Session
	stream *mjpeg.Stream
	srv    *http.Server

	mu      sync.RWMutex
	state   string
	status  string
	frames  atomic.Int64
	started time.Time
}

func NewServer(cfgSvc config.IService, sess *session.Session) *Server {
	s := &Server{
		cfgSvc:  cfgSvc,
		sess:    sess,
		stream:  mjpeg.NewStream(),
		started: time.Now(),
	}

	router := httprouter.New()
	router.Handler(http.MethodGet, "/live", s.stream)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	router.GET("/api/status", s.getStatus)
	router.GET("/api/alerts", s.getAlerts)
	router.GET("/api/alerts/signal", s.getAlertSignal)
	router.PUT("/api/controls", s.putControls)
	router.POST("/api/stop", s.postStop)

	s.srv = &http.Server{
		Addr:    cfgSvc.GetDashboardAddr(),
		Handler: router,
	}

	return s
}

// Start serves until the context is cancelled.
func (s *Server) Start(canxCtx context.Context) {
	go func() {
		<-canxCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			lgr.Logger.Warn(
				"dashboard shutdown error",
				slog.Any("error", err),
			)
		}
	}()

	go func() {
		lgr.Logger.Info(
			"dashboard listening",
			slog.String("addr", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lgr.Logger.Error(
				"dashboard server error",
				slog.Any("error", err),
			)
		}
	}()
}

// Frame implements pipeline.Presenter. The Mat is only valid for the
// duration of the call, so it is encoded before returning.
func (s *Server) Frame(annotated gocv.Mat) {
	if annotated.Empty() {
		return
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, annotated)
	if err != nil {
		return
	}
	defer buf.Close()
	s.stream.UpdateJPEG(buf.GetBytes())
	s.frames.Add(1)
}

// Status implements pipeline.Presenter. An empty message keeps the previous
// status text and only records the state change.
func (s *Server) Status(state string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if message != "" {
		s.status = message
	}
}

type statusResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Status    string `json:"status"`
	Frames    int64  `json:"frames"`
	Alerts    int    `json:"alerts"`
	UptimeSec int64  `json:"uptimeSeconds"`
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mu.RLock()
	resp := statusResponse{
		SessionID: s.sess.ID,
		State:     s.state,
		Status:    s.status,
		Frames:    s.frames.Load(),
		Alerts:    s.sess.State.AlertCount(),
		UptimeSec: int64(time.Since(s.started).Seconds()),
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getAlerts(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.sess.State.Alerts())
}

// getAlertSignal returns and clears the one-shot "alert just fired" flag.
// The browser uses it to trigger the audible cue exactly once per alert.
func (s *Server) getAlertSignal(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"fired": s.sess.State.ConsumeAlertSignal(),
	})
}

type controlsRequest struct {
	ConfidenceThreshold *float32 `json:"confidenceThreshold"`
	CooldownSeconds     *int     `json:"cooldownSeconds"`
	AlertsEnabled       *bool    `json:"alertsEnabled"`
	CameraSource        *string  `json:"cameraSource"`
}

func (s *Server) putControls(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req controlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.ConfidenceThreshold != nil {
		s.sess.Controls.SetThreshold(*req.ConfidenceThreshold)
	}
	if req.CooldownSeconds != nil {
		s.sess.Controls.SetCooldown(time.Duration(*req.CooldownSeconds) * time.Second)
	}
	if req.AlertsEnabled != nil {
		s.sess.Controls.SetAlertsEnabled(*req.AlertsEnabled)
	}
	if req.CameraSource != nil {
		s.sess.Controls.SetSource(*req.CameraSource)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"confidenceThreshold": s.sess.Controls.Threshold(),
		"cooldownSeconds":     int(s.sess.Controls.Cooldown().Seconds()),
		"alertsEnabled":       s.sess.Controls.AlertsEnabled(),
		"cameraSource":        s.sess.Controls.Source(),
	})
}

func (s *Server) postStop(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.sess.Controls.RequestStop()
	writeJSON(w, http.StatusAccepted, map[string]bool{"stopping": true})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		lgr.Logger.Warn(
			"failed to encode response",
			slog.Any("error", err),
		)
	}
}
