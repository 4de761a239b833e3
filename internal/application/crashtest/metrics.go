package crashtest

import (
	"context"
	"time"
)

// Metrics defines the instrumentation the test service emits.
type Metrics interface {
	// IncSave counts a save attempt by outcome.
	IncSave(ctx context.Context, success bool)

	// IncDelete counts a single-test delete attempt by outcome.
	IncDelete(ctx context.Context, success bool)

	// IncQuotaRejected counts creates rejected by the tenant quota.
	IncQuotaRejected(ctx context.Context)

	// ObservePurgeDuration records the duration of a tenant-wide purge.
	ObservePurgeDuration(ctx context.Context, duration time.Duration)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) IncSave(context.Context, bool)                       {}
func (NopMetrics) IncDelete(context.Context, bool)                     {}
func (NopMetrics) IncQuotaRejected(context.Context)                    {}
func (NopMetrics) ObservePurgeDuration(context.Context, time.Duration) {}
