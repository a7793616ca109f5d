package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ Recorder = (*RealizeMetrics)(nil)
	_ Recorder = (*DatastoreMetrics)(nil)
	_ Recorder = NopRecorder{}
)

func TestRealizeMetrics_RecordOperation(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewRealizeMetrics(reg)
	require.NoError(t, err)

	m.RecordOperation(OpRealizeRow, StatusSuccess)
	m.RecordOperation(OpRealizeRow, StatusSuccess)
	m.RecordOperation(OpRealizeRow, StatusFailure)
	m.RecordError(OpRealizeRow, "measurement-failure")
	m.RecordOperation(OpObjectRecord, StatusDropped)
	m.RecordOperation(OpSourceTable, StatusSuccess)
	m.RecordOperation("unknown", StatusSuccess)

	assert.InDelta(t, 2, testutil.ToFloat64(m.rowsTotal.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rowsTotal.WithLabelValues(StatusFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpRealizeRow, "measurement-failure")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.objectRecordsTotal.WithLabelValues(StatusDropped)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.tablesTotal.WithLabelValues(OpSourceTable, StatusSuccess)), 0)
}

func TestRealizeMetrics_DurationsAndBatch(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewRealizeMetrics(reg)
	require.NoError(t, err)

	m.RecordDuration(OpRealizeRow, 0.002)
	m.RecordDuration(OpSourceTable, 1.5)
	m.SetBatch(120, 3, time.Unix(1700000000, 0))

	assert.Equal(t, 1, testutil.CollectAndCount(m.rowDuration))
	assert.InDelta(t, 120, testutil.ToFloat64(m.lastBatchRows), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.lastBatchFailures), 0)

	expected := `
# HELP slrealizer_last_batch_timestamp_seconds Unix time the last source table build finished
# TYPE slrealizer_last_batch_timestamp_seconds gauge
slrealizer_last_batch_timestamp_seconds 1.7e+09
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "slrealizer_last_batch_timestamp_seconds"))
}

func TestRealizeMetrics_DoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewRealizeMetrics(reg)
	require.NoError(t, err)
	_, err = NewRealizeMetrics(reg)
	assert.Error(t, err)
}

func TestDatastoreMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewDatastoreMetrics(reg)
	require.NoError(t, err)

	m.RecordOperation(OpDbInsert+":source_rows", StatusSuccess)
	m.RecordError(OpDbMigrate, "database")
	m.RecordDuration(OpDbInsert+":object_rows", 0.05)
	m.RecordRowsWritten("source_rows", 500)

	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues(OpDbInsert, "source_rows", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationErrorsTotal.WithLabelValues(OpDbMigrate, "unknown", "database")), 0)
	assert.InDelta(t, 500, testutil.ToFloat64(m.dbRowsWrittenTotal.WithLabelValues("source_rows")), 0)
}

func TestParseTableFromOperation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		op, table string
	}{
		{"db_insert:source_rows", "db_insert", "source_rows"},
		{"db_migrate", "db_migrate", "unknown"},
		{"a:b:c", "a", "b:c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			op, table := parseTableFromOperation(tt.in)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.table, table)
		})
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	assert.IsType(t, NopRecorder{}, OrNop(nil))
	m, err := NewRealizeMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Same(t, m, OrNop(m))
}
