package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlogLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn, time.UTC)

	log.Info("hidden")
	log.Warn("shown", Int("rows", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "rows=3")
}

func TestModuleLogger_ModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).
		Module("realize").
		Module("source").
		With(String("run_id", "abc"))

	log.Debug("pair", Float64("flux", 1.23456), Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "module=realize.source")
	assert.Contains(t, out, "run_id=abc")
	assert.Contains(t, out, "flux=1.235")
	assert.Contains(t, out, "error=boom")
}

func TestModuleLogger_TraceLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, time.UTC)
	log.Trace("deep")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestModuleLogger_WithContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)
	ctx := WithTraceID(context.Background(), "run-42")

	log.WithContext(ctx).Info("started")
	log.WithContext(context.Background()).Info("plain")

	out := buf.String()
	assert.Contains(t, out, "trace_id=run-42")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("trace_id")))
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"trace", "DEBUG-4"},
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseLogLevel(tt.in).String())
		})
	}
}

func TestCentralLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "run.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "error"},
	})
	require.NoError(t, err)

	cl.Module("realize").Info("table built", Int("rows", 12))
	cl.Module("datastore").Info("suppressed")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"table built"`)
	assert.Contains(t, string(data), `"rows":12`)
	assert.NotContains(t, string(data), "suppressed")
}

func TestNewCentralLogger_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &LoggingConfig{}
	applyConfigDefaults(cfg)

	assert.Equal(t, DefaultLogLevel, cfg.DefaultLevel)
	require.NotNil(t, cfg.Console)
	assert.True(t, cfg.Console.Enabled)
	require.NotNil(t, cfg.FileOutput)
	assert.False(t, cfg.FileOutput.Enabled)
	assert.Equal(t, DefaultLogPath, cfg.FileOutput.Path)
}
