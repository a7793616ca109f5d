// Package pipeline runs the realization steps behind each command: loading
// inputs, building tables, writing outputs and optional persistence.
package pipeline

import (
	"io"
	"os"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/observability"
	"github.com/tphakala/slrealizer/internal/observability/metrics"
)

// Runtime carries the settings and shared services of one command invocation
type Runtime struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics // nil disables metrics
	Logger   logger.Logger
	Out      io.Writer // human readable command output, stdout when nil
}

// GetLogger returns the pipeline module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("pipeline")
}

func (rt *Runtime) log() logger.Logger {
	if rt.Logger != nil {
		return rt.Logger
	}
	return GetLogger()
}

func (rt *Runtime) out() io.Writer {
	if rt.Out != nil {
		return rt.Out
	}
	return os.Stdout
}

func (rt *Runtime) realizeRecorder() metrics.Recorder {
	if rt.Metrics == nil {
		return metrics.NopRecorder{}
	}
	return rt.Metrics.Realize
}

func (rt *Runtime) datastoreRecorder() metrics.Recorder {
	if rt.Metrics == nil {
		return metrics.NopRecorder{}
	}
	return rt.Metrics.Datastore
}

// finish writes the metrics textfile when one is configured
func (rt *Runtime) finish() error {
	path := rt.Settings.Metrics.Textfile
	if path == "" || rt.Metrics == nil {
		return nil
	}
	if err := rt.Metrics.WriteTextfile(path); err != nil {
		return err
	}
	rt.log().Debug("metrics textfile written", logger.String("path", path))
	return nil
}
