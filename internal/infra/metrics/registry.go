// Package metrics provides the OpenTelemetry metric implementations for
// the service interfaces defined by the application layer.
package metrics

import (
	"go.opentelemetry.io/otel/metric"

	crashtestApp "github.com/crashlab/crashlab/internal/application/crashtest"
	"github.com/crashlab/crashlab/internal/application/sdk/mid"
)

const namespace = "crashlab"

// Registry provides access to all metric implementations.
// It centralizes the creation and management of metrics instances.
type Registry struct {
	API       mid.APIMetrics
	CrashTest crashtestApp.Metrics
}

// NewRegistry creates and initializes all metrics implementations.
// It uses a single meter provider to ensure consistent configuration.
func NewRegistry(mp metric.MeterProvider) (*Registry, error) {
	apiMetrics, err := newAPIMetrics(mp)
	if err != nil {
		return nil, err
	}

	crashTestMetrics, err := newCrashTestMetrics(mp)
	if err != nil {
		return nil, err
	}

	return &Registry{
		API:       apiMetrics,
		CrashTest: crashTestMetrics,
	}, nil
}
