// Package metrics records upload and migration counters in Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the catalog image collectors. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	renditions    *prometheus.CounterVec
	files         *prometheus.CounterVec
	batchDuration prometheus.Histogram
	migrated      *prometheus.CounterVec
}

// New registers the collectors on reg. A nil registerer yields a no-op recorder.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}

	renditions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_renditions_total",
		Help: "Renditions handled by the upload pipeline, by tag and outcome (stored or reused).",
	}, []string{"tag", "outcome"})
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_upload_files_total",
		Help: "Uploaded files by result.",
	}, []string{"result"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_upload_batch_duration_seconds",
		Help:    "Duration of upload batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	migrated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_migration_documents_total",
		Help: "Documents processed by the image migration, by collection and outcome.",
	}, []string{"collection", "outcome"})

	reg.MustRegister(renditions, files, batchDuration, migrated)

	return &Metrics{
		renditions:    renditions,
		files:         files,
		batchDuration: batchDuration,
		migrated:      migrated,
	}
}

// ObserveRendition counts one stored or reused rendition.
func (m *Metrics) ObserveRendition(tag string, reused bool) {
	if m == nil || m.renditions == nil {
		return
	}
	outcome := "stored"
	if reused {
		outcome = "reused"
	}
	m.renditions.WithLabelValues(tag, outcome).Inc()
}

// IncFile counts one uploaded file.
func (m *Metrics) IncFile(ok bool) {
	if m == nil || m.files == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.files.WithLabelValues(result).Inc()
}

// ObserveBatch records the duration of an upload batch.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

// IncMigrated counts one migrated document outcome ("updated", "skipped" or "failed").
func (m *Metrics) IncMigrated(collection, outcome string) {
	if m == nil || m.migrated == nil {
		return
	}
	m.migrated.WithLabelValues(collection, outcome).Inc()
}
