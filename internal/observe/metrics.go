// Package observe provides application-wide observability primitives for
// scmem: OpenTelemetry metrics, distributed tracing, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
//
// These instruments cover the wire protocol server (component I) and the
// ambient HTTP surface (health/metrics endpoints); the event bus has its own
// meter in internal/event/metrics.go since it is meaningful without a wire
// server attached.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scmem metrics.
const meterName = "github.com/scmem/scmem/internal/observe"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// WireCommandDuration tracks wire-protocol command processing latency.
	// Use with attributes: attribute.String("cmd", ...), attribute.String("result", ...)
	WireCommandDuration metric.Float64Histogram

	// WireCommands counts processed wire-protocol commands by command name
	// and result ("ok"/"fail"/"unknown_cmd").
	WireCommands metric.Int64Counter

	// WireConnections tracks the number of currently open wire-protocol
	// connections.
	WireConnections metric.Int64UpDownCounter

	// WireBytesRead/WireBytesWritten count raw bytes moved across all wire
	// connections, for capacity planning.
	WireBytesRead    metric.Int64Counter
	WireBytesWritten metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time for the
	// ambient health/metrics endpoints. Use with attributes:
	// attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) suited to
// in-process graph operations and short-lived socket round-trips.
var latencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.WireCommandDuration, err = m.Float64Histogram("scmem.wire.command.duration",
		metric.WithDescription("Latency of processing one wire-protocol command."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.WireCommands, err = m.Int64Counter("scmem.wire.commands",
		metric.WithDescription("Total wire-protocol commands processed by command and result."),
	); err != nil {
		return nil, err
	}
	if met.WireConnections, err = m.Int64UpDownCounter("scmem.wire.connections",
		metric.WithDescription("Number of currently open wire-protocol connections."),
	); err != nil {
		return nil, err
	}
	if met.WireBytesRead, err = m.Int64Counter("scmem.wire.bytes_read",
		metric.WithDescription("Total bytes read from wire-protocol connections."),
	); err != nil {
		return nil, err
	}
	if met.WireBytesWritten, err = m.Int64Counter("scmem.wire.bytes_written",
		metric.WithDescription("Total bytes written to wire-protocol connections."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("scmem.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordWireCommand records one processed wire-protocol command.
func (m *Metrics) RecordWireCommand(ctx context.Context, cmd, result string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("cmd", cmd),
		attribute.String("result", result),
	)
	m.WireCommands.Add(ctx, 1, attrs)
	m.WireCommandDuration.Record(ctx, seconds, attrs)
}

// RecordConnectionOpened/RecordConnectionClosed track live connection count.
func (m *Metrics) RecordConnectionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.WireConnections.Add(ctx, 1)
}

func (m *Metrics) RecordConnectionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.WireConnections.Add(ctx, -1)
}

// RecordBytes records bytes moved across a wire connection.
func (m *Metrics) RecordBytes(ctx context.Context, read, written int64) {
	if m == nil {
		return
	}
	if read > 0 {
		m.WireBytesRead.Add(ctx, read)
	}
	if written > 0 {
		m.WireBytesWritten.Add(ctx, written)
	}
}
