// Package metrics holds Prometheus instruments used across the service.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Login outcomes used as the `outcome` label.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeInvalid  = "invalid"
	OutcomeLimited  = "limited"
)

var (
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Login form submissions by outcome.",
		}, []string{"outcome"})

	UserLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "user_lookup_duration_seconds",
			Help:    "Latency of user-by-email lookups.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"})

	UserLookupErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "user_lookup_errors_total",
			Help: "Cumulative number of failed user lookups (misses excluded).",
		})

	LoginInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "login_in_flight",
			Help: "Login submissions currently being authenticated.",
		})
)

func init() {
	prometheus.MustRegister(
		LoginAttemptsTotal,
		UserLookupDuration,
		UserLookupErrorsTotal,
		LoginInFlight,
	)
}
