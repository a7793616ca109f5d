// Package metrics provides datastore metrics for observability
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for the table sink
type DatastoreMetrics struct {
	registry *prometheus.Registry

	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	dbRowsWrittenTotal     *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() error {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "table", "status"}, // status: success, error
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_operation_duration_seconds",
			Help:    "Time taken for database operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~32s
		},
		[]string{"operation", "table"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	m.dbRowsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_rows_written_total",
			Help: "Total number of rows written to the database",
		},
		[]string{"table"},
	)

	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.dbRowsWrittenTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordRowsWritten adds n rows to the written counter of table
func (m *DatastoreMetrics) RecordRowsWritten(table string, n int) {
	m.dbRowsWrittenTotal.WithLabelValues(table).Add(float64(n))
}

// parseTableFromOperation splits "operation:table"
func parseTableFromOperation(operation string) (op, table string) {
	parts := strings.SplitN(operation, ":", SplitPartsCount)
	if len(parts) == SplitPartsCount {
		return parts[0], parts[1]
	}
	return operation, "unknown"
}

// RecordOperation implements the Recorder interface.
// Use the "operation:table" form, e.g. "db_insert:source_rows".
func (m *DatastoreMetrics) RecordOperation(operation, status string) {
	op, table := parseTableFromOperation(operation)
	m.dbOperationsTotal.WithLabelValues(op, table, status).Inc()
}

// RecordDuration implements the Recorder interface
func (m *DatastoreMetrics) RecordDuration(operation string, seconds float64) {
	op, table := parseTableFromOperation(operation)
	m.dbOperationDuration.WithLabelValues(op, table).Observe(seconds)
}

// RecordError implements the Recorder interface
func (m *DatastoreMetrics) RecordError(operation, errorType string) {
	op, table := parseTableFromOperation(operation)
	m.dbOperationErrorsTotal.WithLabelValues(op, table, errorType).Inc()
}
