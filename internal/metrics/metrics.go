// Package metrics exposes Prometheus collectors for the scrape service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal                  *prometheus.CounterVec
	entitiesScrapedTotal       *prometheus.CounterVec
	emailsHarvestedTotal       prometheus.Counter
	sessionsInUse              prometheus.Gauge
	navigationDurationSeconds  *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placescout_runs_total",
				Help: "Total number of scrape runs, labeled by final status.",
			},
			[]string{"status"},
		)

		entitiesScrapedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placescout_entities_scraped_total",
				Help: "Total number of entity records produced, labeled by detail.",
			},
			[]string{"detailed"},
		)

		emailsHarvestedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "placescout_emails_harvested_total",
				Help: "Total number of emails harvested during website enrichment.",
			},
		)

		sessionsInUse = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "placescout_sessions_in_use",
				Help: "Number of browser sessions currently checked out of the pool.",
			},
		)

		navigationDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "placescout_navigation_duration_seconds",
				Help:    "Histogram of page navigation latencies, labeled by phase.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"phase"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// ObserveRun records the final status of a run.
func ObserveRun(status string) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(status).Inc()
}

// ObserveEntity records one produced entity record.
func ObserveEntity(detailed bool) {
	if entitiesScrapedTotal == nil {
		return
	}
	entitiesScrapedTotal.WithLabelValues(strconv.FormatBool(detailed)).Inc()
}

// AddEmails records harvested email count.
func AddEmails(n int) {
	if emailsHarvestedTotal == nil || n <= 0 {
		return
	}
	emailsHarvestedTotal.Add(float64(n))
}

// SessionAcquired increments the in-use session gauge.
func SessionAcquired() {
	if sessionsInUse != nil {
		sessionsInUse.Inc()
	}
}

// SessionReleased decrements the in-use session gauge.
func SessionReleased() {
	if sessionsInUse != nil {
		sessionsInUse.Dec()
	}
}

// ObserveNavigation records a page navigation latency for a phase
// ("search", "entity", "website").
func ObserveNavigation(phase string, d time.Duration) {
	if navigationDurationSeconds == nil {
		return
	}
	navigationDurationSeconds.WithLabelValues(phase).Observe(d.Seconds())
}

// ObserveHTTPRequest records one served API request.
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
