// Package metrics provides realization metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RealizeMetrics contains Prometheus metrics for source and object table builds
type RealizeMetrics struct {
	registry *prometheus.Registry

	// Per-row metrics
	rowsTotal   *prometheus.CounterVec
	rowDuration prometheus.Histogram
	errorsTotal *prometheus.CounterVec

	// Object aggregation
	objectRecordsTotal *prometheus.CounterVec

	// Whole-table builds
	tablesTotal   *prometheus.CounterVec
	tableDuration *prometheus.HistogramVec

	// Last batch summary
	lastBatchRows      prometheus.Gauge
	lastBatchFailures  prometheus.Gauge
	lastBatchTimestamp prometheus.Gauge

	collectors []prometheus.Collector
}

// NewRealizeMetrics creates and registers new realization metrics
func NewRealizeMetrics(registry *prometheus.Registry) (*RealizeMetrics, error) {
	m := &RealizeMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RealizeMetrics) initMetrics() error {
	m.rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slrealizer_rows_total",
			Help: "Total number of realized (lens, epoch) pairs",
		},
		[]string{"status"}, // status: success, failure
	)

	m.rowDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slrealizer_row_duration_seconds",
		Help:    "Time taken to realize one (lens, epoch) pair",
		Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount15), // 0.1ms to ~3s
	})

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slrealizer_errors_total",
			Help: "Total number of realization errors by category",
		},
		[]string{"operation", "error_type"},
	)

	m.objectRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slrealizer_object_records_total",
			Help: "Total number of aggregated object records",
		},
		[]string{"status"}, // status: written, dropped
	)

	m.tablesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slrealizer_tables_total",
			Help: "Total number of table builds",
		},
		[]string{"table", "status"},
	)

	m.tableDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slrealizer_table_duration_seconds",
			Help:    "Time taken to build a table",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount15), // 100ms to ~55m
		},
		[]string{"table"},
	)

	m.lastBatchRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slrealizer_last_batch_rows",
		Help: "Rows written by the last source table build",
	})

	m.lastBatchFailures = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slrealizer_last_batch_failures",
		Help: "Measurement failures skipped by the last source table build",
	})

	m.lastBatchTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slrealizer_last_batch_timestamp_seconds",
		Help: "Unix time the last source table build finished",
	})

	m.collectors = []prometheus.Collector{
		m.rowsTotal,
		m.rowDuration,
		m.errorsTotal,
		m.objectRecordsTotal,
		m.tablesTotal,
		m.tableDuration,
		m.lastBatchRows,
		m.lastBatchFailures,
		m.lastBatchTimestamp,
	}

	return nil
}

// Describe implements the Collector interface
func (m *RealizeMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *RealizeMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation implements the Recorder interface.
// Supported operations: "realize_row", "object_record", "source_table", "object_table".
func (m *RealizeMetrics) RecordOperation(operation, status string) {
	switch operation {
	case OpRealizeRow:
		m.rowsTotal.WithLabelValues(status).Inc()
	case OpObjectRecord:
		m.objectRecordsTotal.WithLabelValues(status).Inc()
	case OpSourceTable, OpObjectTable:
		m.tablesTotal.WithLabelValues(operation, status).Inc()
	}
}

// RecordDuration implements the Recorder interface
func (m *RealizeMetrics) RecordDuration(operation string, seconds float64) {
	switch operation {
	case OpRealizeRow:
		m.rowDuration.Observe(seconds)
	case OpSourceTable, OpObjectTable:
		m.tableDuration.WithLabelValues(operation).Observe(seconds)
	}
}

// RecordError implements the Recorder interface
func (m *RealizeMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetBatch records the summary of a finished source table build
func (m *RealizeMetrics) SetBatch(rows, failures int, finished time.Time) {
	m.lastBatchRows.Set(float64(rows))
	m.lastBatchFailures.Set(float64(failures))
	m.lastBatchTimestamp.Set(float64(finished.Unix()))
}
