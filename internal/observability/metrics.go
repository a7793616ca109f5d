// Package observability provides Prometheus metrics for SLRealizer batches.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/slrealizer/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Realize   *metrics.RealizeMetrics
	Datastore *metrics.DatastoreMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	realizeMetrics, err := metrics.NewRealizeMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Realize metrics: %w", err)
	}

	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Realize:   realizeMetrics,
		Datastore: datastoreMetrics,
	}, nil
}

// Registry returns the registry the collectors are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every gathered metric to path in the Prometheus text
// format, for pickup by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
