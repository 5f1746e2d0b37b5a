// Package observe provides application-wide observability primitives for the
// voice agent: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/CLHdevOps/call-center-voice-agent-accelerator"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Counters ---

	// UpstreamEvents counts inbound events from the Voice Live service.
	// Use with attribute: attribute.String("kind", ...)
	UpstreamEvents metric.Int64Counter

	// OutboundMessages counts messages the sender pump delivered upstream.
	OutboundMessages metric.Int64Counter

	// AudioDeltaBytes accumulates decoded audio bytes forwarded downstream.
	AudioDeltaBytes metric.Int64Counter

	// Interruptions counts caller barge-in events (stop-audio frames sent).
	Interruptions metric.Int64Counter

	// DownstreamSendErrors counts failed sends on the caller channel.
	DownstreamSendErrors metric.Int64Counter

	// ProtocolErrors counts malformed inbound messages that were skipped.
	ProtocolErrors metric.Int64Counter

	// FlushOutcomes counts per-sink conversation-log flush results.
	// Use with attributes: attribute.String("sink", ...), attribute.String("status", ...)
	FlushOutcomes metric.Int64Counter

	// --- Histograms ---

	// DispatchDuration tracks per-event dispatch latency in the receiver pump.
	DispatchDuration metric.Float64Histogram

	// SessionDuration tracks total session lifetime.
	SessionDuration metric.Float64Histogram

	// --- Gauges ---

	// ActiveSessions tracks the number of live relay sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// dispatchBuckets defines histogram bucket boundaries (in seconds) sized for
// per-event dispatch latencies in the hot path.
var dispatchBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// sessionBuckets defines histogram bucket boundaries (in seconds) sized for
// call durations.
var sessionBuckets = []float64{
	5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.UpstreamEvents, err = m.Int64Counter("voiceagent.upstream.events",
		metric.WithDescription("Total inbound Voice Live events by kind."),
	); err != nil {
		return nil, err
	}
	if met.OutboundMessages, err = m.Int64Counter("voiceagent.outbound.messages",
		metric.WithDescription("Total messages delivered to the Voice Live service."),
	); err != nil {
		return nil, err
	}
	if met.AudioDeltaBytes, err = m.Int64Counter("voiceagent.audio.delta_bytes",
		metric.WithDescription("Decoded audio bytes forwarded to the caller channel."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("voiceagent.interruptions",
		metric.WithDescription("Caller barge-in events that triggered a stop-audio frame."),
	); err != nil {
		return nil, err
	}
	if met.DownstreamSendErrors, err = m.Int64Counter("voiceagent.downstream.send_errors",
		metric.WithDescription("Failed sends on the caller-facing channel."),
	); err != nil {
		return nil, err
	}
	if met.ProtocolErrors, err = m.Int64Counter("voiceagent.protocol.errors",
		metric.WithDescription("Malformed inbound messages skipped by the receive loop."),
	); err != nil {
		return nil, err
	}
	if met.FlushOutcomes, err = m.Int64Counter("voiceagent.flush.outcomes",
		metric.WithDescription("Conversation-log flush results by sink and status."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.DispatchDuration, err = m.Float64Histogram("voiceagent.dispatch.duration",
		metric.WithDescription("Latency of inbound event dispatch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(dispatchBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("voiceagent.session.duration",
		metric.WithDescription("Total relay session lifetime."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voiceagent.active_sessions",
		metric.WithDescription("Number of live relay sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voiceagent.http.request.duration",
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

// RecordUpstreamEvent records one inbound event of the given wire kind.
func (m *Metrics) RecordUpstreamEvent(ctx context.Context, kind string) {
	m.UpstreamEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordFlushOutcome records one per-sink flush result. Status is "ok",
// "error", or "skipped".
func (m *Metrics) RecordFlushOutcome(ctx context.Context, sink, status string) {
	m.FlushOutcomes.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("sink", sink),
			attribute.String("status", status),
		),
	)
}
