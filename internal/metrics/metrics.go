// Package metrics exposes Prometheus collectors for the scrape pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors on a dedicated registry so the
// pipeline can be instantiated more than once (tests, embedded use).
type Metrics struct {
	Registry              *prometheus.Registry
	FetchAttemptsTotal    *prometheus.CounterVec
	FetchRetriesTotal     prometheus.Counter
	FetchDuration         prometheus.Histogram
	ItemsExtractedTotal   *prometheus.CounterVec
	ItemSkipsTotal        *prometheus.CounterVec
	RecordsPersistedTotal *prometheus.CounterVec
	JobsTotal             *prometheus.CounterVec
	JobDuration           *prometheus.HistogramVec
}

// New constructs and registers all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetchAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_fetch_attempts_total",
			Help: "Total fetch attempts issued, labeled by result.",
		},
		[]string{"result"},
	)
	fetchRetries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_fetch_retries_total",
			Help: "Total retry attempts scheduled by the fetcher.",
		},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_fetch_duration_seconds",
			Help:    "HTTP fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	itemsExtracted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_items_extracted_total",
			Help: "Total items extracted from pages, labeled by target.",
		},
		[]string{"target"},
	)
	itemSkips := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_item_skips_total",
			Help: "Total malformed items skipped during extraction, labeled by target.",
		},
		[]string{"target"},
	)
	recordsPersisted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_persisted_total",
			Help: "Total records accepted by the store, labeled by target.",
		},
		[]string{"target"},
	)
	jobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_jobs_total",
			Help: "Total scrape jobs executed, labeled by target and status.",
		},
		[]string{"target", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_job_duration_seconds",
			Help:    "Wall-clock duration of scrape jobs, labeled by target.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"target"},
	)

	registry.MustRegister(
		fetchAttempts,
		fetchRetries,
		fetchDuration,
		itemsExtracted,
		itemSkips,
		recordsPersisted,
		jobs,
		jobDuration,
	)

	return &Metrics{
		Registry:              registry,
		FetchAttemptsTotal:    fetchAttempts,
		FetchRetriesTotal:     fetchRetries,
		FetchDuration:         fetchDuration,
		ItemsExtractedTotal:   itemsExtracted,
		ItemSkipsTotal:        itemSkips,
		RecordsPersistedTotal: recordsPersisted,
		JobsTotal:             jobs,
		JobDuration:           jobDuration,
	}
}

// IncFetchAttempt counts one fetch attempt by result label.
func (m *Metrics) IncFetchAttempt(result string) {
	if m == nil {
		return
	}
	m.FetchAttemptsTotal.WithLabelValues(result).Inc()
}

// IncFetchRetry counts one scheduled retry.
func (m *Metrics) IncFetchRetry() {
	if m == nil {
		return
	}
	m.FetchRetriesTotal.Inc()
}

// ObserveFetchDuration records one fetch latency sample.
func (m *Metrics) ObserveFetchDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncItemsExtracted counts extracted items for a target.
func (m *Metrics) IncItemsExtracted(target string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsExtractedTotal.WithLabelValues(target).Add(float64(n))
}

// IncItemSkip counts one malformed item skipped for a target.
func (m *Metrics) IncItemSkip(target string) {
	if m == nil {
		return
	}
	m.ItemSkipsTotal.WithLabelValues(target).Inc()
}

// AddRecordsPersisted counts store-confirmed records for a target.
func (m *Metrics) AddRecordsPersisted(target string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsPersistedTotal.WithLabelValues(target).Add(float64(n))
}

// ObserveJob records one finished job with its status and duration.
func (m *Metrics) ObserveJob(target, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(target, status).Inc()
	m.JobDuration.WithLabelValues(target).Observe(d.Seconds())
}
