// Package metrics defines Prometheus metrics for the application.
//
// All metrics are registered with promauto on package initialisation and
// exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Authentication Metrics
var (
	// AuthAttemptsTotal tracks register/login attempts by action and outcome
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total authentication attempts by action (register/login) and status (success/failure)",
		},
		[]string{"action", "status"},
	)
)

// Contact Metrics
var (
	// ContactMutationsTotal tracks contact writes by action
	ContactMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_mutations_total",
			Help: "Total contact mutations by action (create/update/delete)",
		},
		[]string{"action"},
	)

	// ContactListFilterTotal tracks filtered list requests by field
	ContactListFilterTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_list_filter_total",
			Help: "Total filtered contact list requests by filter field",
		},
		[]string{"field"},
	)
)

// Export Metrics
var (
	// ExportsTotal tracks contact exports by format
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exports_total",
			Help: "Total contact exports by format (vcard/vcard_list/qrcode/xlsx)",
		},
		[]string{"format"},
	)

	// VCardComposeDuration tracks vCard composition latency in seconds
	VCardComposeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vcard_compose_duration_seconds",
			Help:    "vCard composition duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1},
		},
	)
)

// vCard Cache Metrics
var (
	// VCardCacheHits tracks Redis vCard cache hits
	VCardCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vcard_cache_hits_total",
			Help: "Total Redis vCard cache hits",
		},
	)

	// VCardCacheMisses tracks Redis vCard cache misses (including errors)
	VCardCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vcard_cache_misses_total",
			Help: "Total Redis vCard cache misses",
		},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Request Metrics
// Note: http_errors_total{type} is provided by internal/errors package
