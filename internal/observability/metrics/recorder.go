// Package metrics provides Prometheus collectors for SLRealizer batches.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on this abstraction rather than on concrete collectors,
// so they can run without a registry.
type Recorder interface {
	// RecordOperation records an operation with its status
	// (e.g. "realize_row", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type
	// (e.g. "measurement-failure").
	RecordError(operation, errorType string)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string)     {}

// OrNop returns r, or a NopRecorder when r is nil
func OrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}
