package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	crashtestApp "github.com/crashlab/crashlab/internal/application/crashtest"
)

var _ crashtestApp.Metrics = (*crashTestMetrics)(nil)

type crashTestMetrics struct {
	saveTotal     metric.Int64Counter
	deleteTotal   metric.Int64Counter
	quotaRejected metric.Int64Counter
	purgeDuration metric.Float64Histogram
}

// newCrashTestMetrics creates the test-service metrics instance.
func newCrashTestMetrics(mp metric.MeterProvider) (*crashTestMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(crashTestMetrics)
	var err error

	if m.saveTotal, err = meter.Int64Counter(
		"test_save_total",
		metric.WithDescription("Total number of test save attempts"),
	); err != nil {
		return nil, err
	}

	if m.deleteTotal, err = meter.Int64Counter(
		"test_delete_total",
		metric.WithDescription("Total number of test delete attempts"),
	); err != nil {
		return nil, err
	}

	if m.quotaRejected, err = meter.Int64Counter(
		"test_quota_rejected_total",
		metric.WithDescription("Total number of creates rejected by the tenant quota"),
	); err != nil {
		return nil, err
	}

	if m.purgeDuration, err = meter.Float64Histogram(
		"test_tenant_purge_duration_seconds",
		metric.WithDescription("Duration of tenant-wide test purges in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *crashTestMetrics) IncSave(ctx context.Context, success bool) {
	m.saveTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

func (m *crashTestMetrics) IncDelete(ctx context.Context, success bool) {
	m.deleteTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

func (m *crashTestMetrics) IncQuotaRejected(ctx context.Context) {
	m.quotaRejected.Add(ctx, 1)
}

func (m *crashTestMetrics) ObservePurgeDuration(ctx context.Context, duration time.Duration) {
	m.purgeDuration.Record(ctx, duration.Seconds())
}
