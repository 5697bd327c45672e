package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	RowsScrapedTotal   prometheus.Counter
	PagesScrapedTotal  prometheus.Counter
	PagesFailedTotal   prometheus.Counter
	GenresSkippedTotal prometheus.Counter
	RetriesTotal       prometheus.Counter
	CacheHitsTotal     prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	rowsScraped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_rows_scraped_total",
			Help: "Total number of game rows extracted from result pages.",
		},
	)
	pagesScraped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pages_scraped_total",
			Help: "Total number of result pages scraped successfully.",
		},
	)
	pagesFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pages_failed_total",
			Help: "Total number of result pages that failed and yielded no rows.",
		},
	)
	genresSkipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_genres_skipped_total",
			Help: "Total number of genres skipped for lack of a result count.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cache_hits_total",
			Help: "Total number of fetches served from the page body cache.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, rowsScraped, pagesScraped,
		pagesFailed, genresSkipped, retries, cacheHits, errorsTotal)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		RowsScrapedTotal:   rowsScraped,
		PagesScrapedTotal:  pagesScraped,
		PagesFailedTotal:   pagesFailed,
		GenresSkippedTotal: genresSkipped,
		RetriesTotal:       retries,
		CacheHitsTotal:     cacheHits,
		ErrorsTotal:        errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddRows adds extracted rows to the rows scraped counter.
func (m *Metrics) AddRows(n int) {
	if m == nil {
		return
	}
	m.RowsScrapedTotal.Add(float64(n))
}

// IncPageScraped increments the pages scraped counter.
func (m *Metrics) IncPageScraped() {
	if m == nil {
		return
	}
	m.PagesScrapedTotal.Inc()
}

// IncPageFailed increments the pages failed counter.
func (m *Metrics) IncPageFailed() {
	if m == nil {
		return
	}
	m.PagesFailedTotal.Inc()
}

// IncGenreSkipped increments the skipped genres counter.
func (m *Metrics) IncGenreSkipped() {
	if m == nil {
		return
	}
	m.GenresSkippedTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncCacheHit increments the cache hits counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
