package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desyn_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "desyn_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// AutosaveWrites counts autosave persistence attempts by unit kind and result.
	AutosaveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desyn_autosave_writes_total",
			Help: "Autosave persistence attempts",
		},
		[]string{"unit", "result"},
	)
	// AutosaveCoalesced counts timer firings folded into a pending follow-up save.
	AutosaveCoalesced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desyn_autosave_coalesced_total",
			Help: "Autosave timer firings coalesced while a write was in flight",
		},
		[]string{"unit"},
	)
	// FrameWritesSkipped counts frame saves dropped because the content was unchanged.
	FrameWritesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "desyn_frame_writes_skipped_total",
			Help: "Frame saves skipped because content matched the last saved content",
		},
	)
	// ActiveSessions is the number of open live editing sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "desyn_edit_sessions_active",
			Help: "Open live editing sessions",
		},
	)
)
