// Package metrics exposes the Prometheus counters shared by the pipeline and
// the dashboard /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_frames_processed_total",
		Help: "Frames read from the source and run through inference.",
	})

	AlertsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_alerts_dispatched_total",
		Help: "Alerts handed off to the alerter.",
	})

	AlertsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_alerts_dropped_total",
		Help: "Alerts dropped because the alert stream was full.",
	})

	SourceRecoveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_source_recoveries_total",
		Help: "Backoff-and-reopen cycles after a frame read failure.",
	})
)
