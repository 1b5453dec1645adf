// Package metrics provides Prometheus metrics for the ingestion core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all ingestion metrics.
	Namespace = "goingest"
	// Subsystem is the subsystem for ingestion metrics.
	Subsystem = "ingest"
)

// Metrics holds the Prometheus metrics recorded during ingestion. A nil
// *Metrics is a valid no-op recorder so tests and tools can skip registration.
type Metrics struct {
	ItemsProcessedTotal  *prometheus.CounterVec
	ArticlesNewTotal     prometheus.Counter
	DuplicatesTotal      *prometheus.CounterVec
	ItemErrorsTotal      *prometheus.CounterVec
	CrawlsTotal          *prometheus.CounterVec
	CrawlDurationSeconds prometheus.Histogram
}

// New creates and registers all ingestion metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		ItemsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "items_processed_total",
				Help:      "Total number of crawled items processed, by outcome",
			},
			[]string{"outcome"},
		),
		ArticlesNewTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "articles_new_total",
				Help:      "Total number of genuinely new articles stored",
			},
		),
		DuplicatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "duplicates_total",
				Help:      "Total number of items rejected as duplicates, by type",
			},
			[]string{"type"},
		),
		ItemErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "item_errors_total",
				Help:      "Total number of per-item ingestion failures, by stage",
			},
			[]string{"stage"},
		),
		CrawlsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "crawls_total",
				Help:      "Total number of completed crawl attempts, by status",
			},
			[]string{"status"},
		),
		CrawlDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "crawl_duration_seconds",
				Help:      "Duration of crawl ingestion runs",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// RecordItem counts one processed item with its outcome (new, duplicate, error).
func (m *Metrics) RecordItem(outcome string) {
	if m == nil {
		return
	}
	m.ItemsProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordNewArticle counts one stored article.
func (m *Metrics) RecordNewArticle() {
	if m == nil {
		return
	}
	m.ArticlesNewTotal.Inc()
}

// RecordDuplicate counts one rejected duplicate by type.
func (m *Metrics) RecordDuplicate(duplicateType string) {
	if m == nil {
		return
	}
	m.DuplicatesTotal.WithLabelValues(duplicateType).Inc()
}

// RecordItemError counts one per-item failure by stage.
func (m *Metrics) RecordItemError(stage string) {
	if m == nil {
		return
	}
	m.ItemErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordCrawl counts one completed crawl attempt by terminal status.
func (m *Metrics) RecordCrawl(status string) {
	if m == nil {
		return
	}
	m.CrawlsTotal.WithLabelValues(status).Inc()
}

// ObserveCrawlDuration records how long a crawl ingestion run took.
func (m *Metrics) ObserveCrawlDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.CrawlDurationSeconds.Observe(duration.Seconds())
}
