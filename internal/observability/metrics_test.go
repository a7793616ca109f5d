package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/slrealizer/internal/observability/metrics"
)

func TestMetrics_WriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Realize.RecordOperation(metrics.OpRealizeRow, metrics.StatusSuccess)
	m.Datastore.RecordRowsWritten("object_rows", 4)

	path := filepath.Join(t.TempDir(), "slrealizer.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `slrealizer_rows_total{status="success"} 1`)
	assert.Contains(t, string(data), `datastore_db_rows_written_total{table="object_rows"} 4`)
}

func TestMetrics_WriteTextfileBadPath(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	assert.Error(t, m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	t.Parallel()

	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)
	assert.NotSame(t, a.Registry(), b.Registry())
}
