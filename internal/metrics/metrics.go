// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal  *prometheus.CounterVec
	retriesTotal        prometheus.Counter
	throttleSignals     prometheus.Counter
	itemsTotal          *prometheus.CounterVec
	limiterDelaySeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_attempts_total",
				Help: "Total number of fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		retriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_retries_total",
				Help: "Total number of retried fetch attempts.",
			},
		)

		throttleSignals = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_throttle_signals_total",
				Help: "Explicit throttle responses that widened the rate limiter.",
			},
		)

		itemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_items_total",
				Help: "Work items finished, labeled by final status.",
			},
			[]string{"status"},
		)

		limiterDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvester_rate_limit_delay_seconds",
				Help:    "Delay introduced by the rate limiter per acquisition.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		)
	})
}

// IncFetchAttempt records one fetch attempt with the given outcome label.
func IncFetchAttempt(outcome string) {
	Init()
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// IncRetry records one retried attempt.
func IncRetry() {
	Init()
	retriesTotal.Inc()
}

// IncThrottleSignals records one adaptive widening of the rate limiter.
func IncThrottleSignals() {
	Init()
	throttleSignals.Inc()
}

// IncItem records a work item reaching a final status.
func IncItem(status string) {
	Init()
	itemsTotal.WithLabelValues(status).Inc()
}

// ObserveLimiterDelay records how long an acquisition waited at the limiter.
func ObserveLimiterDelay(d time.Duration) {
	Init()
	limiterDelaySeconds.Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
