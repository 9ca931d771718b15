package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Metric names.
const (
	MetricHTTPRequests    = "http.server.requests"
	MetricHTTPDuration    = "http.server.duration"
	MetricLLMCalls        = "llm.calls"
	MetricLLMDuration     = "llm.duration"
	MetricDictationStates = "dictation.state_changes"
	MetricDictationErrors = "dictation.errors"
)

// Metrics holds the instruments recorded by the HTTP server, the LLM
// decorator and the dictation event sink.
type Metrics struct {
	httpRequests    metric.Int64Counter
	httpDuration    metric.Float64Histogram
	llmCalls        metric.Int64Counter
	llmDuration     metric.Float64Histogram
	dictationStates metric.Int64Counter
	dictationErrors metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.httpRequests, err = meter.Int64Counter(MetricHTTPRequests,
		metric.WithDescription("Completed HTTP requests")); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricHTTPRequests, err)
	}
	if m.httpDuration, err = meter.Float64Histogram(MetricHTTPDuration,
		metric.WithDescription("HTTP request duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricHTTPDuration, err)
	}
	if m.llmCalls, err = meter.Int64Counter(MetricLLMCalls,
		metric.WithDescription("Language model calls by provider and outcome")); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricLLMCalls, err)
	}
	if m.llmDuration, err = meter.Float64Histogram(MetricLLMDuration,
		metric.WithDescription("Language model call duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricLLMDuration, err)
	}
	if m.dictationStates, err = meter.Int64Counter(MetricDictationStates,
		metric.WithDescription("Dictation session state transitions")); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricDictationStates, err)
	}
	if m.dictationErrors, err = meter.Int64Counter(MetricDictationErrors,
		metric.WithDescription("Dictation errors by kind")); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricDictationErrors, err)
	}
	return &m, nil
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics returns instruments on the global meter provider. They
// record nothing until the tracing component installs a real provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.Meter(tracerName))
		if err != nil {
			m, _ = NewMetrics(noop.NewMeterProvider().Meter(tracerName))
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordRequest records one completed HTTP request. route is the matched
// pattern, never the raw path.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordLLMCall records one model call.
func (m *Metrics) RecordLLMCall(ctx context.Context, provider string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrLLMProvider, provider),
		attribute.String("status", status),
	))
	m.llmDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrLLMProvider, provider)))
}

// RecordDictationState counts a session entering state.
func (m *Metrics) RecordDictationState(ctx context.Context, state string) {
	m.dictationStates.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordDictationError counts a dictation error of kind.
func (m *Metrics) RecordDictationError(ctx context.Context, kind string) {
	m.dictationErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	), nil
}
