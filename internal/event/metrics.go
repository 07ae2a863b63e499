package event

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for event-bus metrics: one
// named meter per subsystem.
const meterName = "github.com/scmem/scmem/internal/event"

// Metrics holds the OpenTelemetry instruments recording bus activity.
type Metrics struct {
	Delivered        metric.Int64Counter
	Dropped          metric.Int64Counter
	DispatchDuration metric.Float64Histogram
}

var dispatchBuckets = []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Delivered, err = m.Int64Counter("scmem.event.delivered",
		metric.WithDescription("Events delivered to a subscription delegate."),
	); err != nil {
		return nil, err
	}
	if met.Dropped, err = m.Int64Counter("scmem.event.dropped",
		metric.WithDescription("Events dropped because a subscription queue was full."),
	); err != nil {
		return nil, err
	}
	if met.DispatchDuration, err = m.Float64Histogram("scmem.event.dispatch_duration",
		metric.WithDescription("Time spent invoking a delegate for one event."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(dispatchBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level [Metrics] built against the global
// OTel meter provider, created once and cached.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("event: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) recordDelivered(ctx context.Context, class, mode string) {
	if m == nil {
		return
	}
	m.Delivered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("class", class),
		attribute.String("mode", mode),
	))
}

func (m *Metrics) recordDropped(ctx context.Context, class string) {
	if m == nil {
		return
	}
	m.Dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
}

func (m *Metrics) recordDispatch(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.DispatchDuration.Record(ctx, seconds)
}
