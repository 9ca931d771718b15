// Package observability wires OpenTelemetry tracing and metrics. When
// tracing is disabled the global no-op providers stay in place and StartSpan
// or a metric record costs almost nothing.
package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/logger"
)

const tracerName = "github.com/kbukum/voicenotes"

// Config configures tracing and metric export.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP/HTTP collector host:port.
	Endpoint   string  `mapstructure:"endpoint"`
	Insecure   bool    `mapstructure:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate"`
	// Metrics also exports metrics to Endpoint. Requires Enabled.
	Metrics        bool          `mapstructure:"metrics"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing: sample_rate %v out of range [0, 1]", c.SampleRate)
	}
	if c.MetricInterval < 0 {
		return fmt.Errorf("tracing: metric_interval must not be negative")
	}
	return nil
}

// Tracing owns the tracer and meter providers and flushes them on Stop.
type Tracing struct {
	cfg         Config
	service     string
	version     string
	environment string
	log         *logger.Logger
	tp          *sdktrace.TracerProvider
	mp          *sdkmetric.MeterProvider
}

var _ component.Component = (*Tracing)(nil)

// NewTracing creates the tracing component. Nothing happens until Start.
func NewTracing(cfg Config, service, version, environment string, log *logger.Logger) *Tracing {
	cfg.ApplyDefaults()
	return &Tracing{cfg: cfg, service: service, version: version, environment: environment, log: log.WithComponent("tracing")}
}

func (t *Tracing) Name() string { return "tracing" }

// Start installs the global tracer provider when tracing is enabled.
func (t *Tracing) Start(ctx context.Context) error {
	if !t.cfg.Enabled {
		return nil
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(t.cfg.Endpoint)}
	if t.cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", t.service),
		attribute.String("service.version", t.version),
		attribute.String("deployment.environment", t.environment),
	))
	if err != nil {
		return fmt.Errorf("creating resource: %w", err)
	}

	t.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(t.cfg.SampleRate)),
	)
	otel.SetTracerProvider(t.tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.log.Info("Tracer initialized", logger.Fields("endpoint", t.cfg.Endpoint, "sample_rate", t.cfg.SampleRate))

	if t.cfg.Metrics {
		t.mp, err = newMeterProvider(ctx, t.cfg, res)
		if err != nil {
			return err
		}
		otel.SetMeterProvider(t.mp)
		t.log.Info("Meter initialized", logger.Fields("endpoint", t.cfg.Endpoint, "interval", t.cfg.MetricInterval.String()))
	}
	return nil
}

// Stop flushes pending spans and metrics.
func (t *Tracing) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (t *Tracing) Health(context.Context) component.Health {
	msg := "disabled"
	if t.cfg.Enabled {
		msg = t.cfg.Endpoint
	}
	return component.Health{Name: t.Name(), Status: component.StatusHealthy, Message: msg}
}

func (t *Tracing) Describe() component.Description {
	details := "disabled"
	if t.cfg.Enabled {
		details = fmt.Sprintf("otlp http %s", t.cfg.Endpoint)
		if t.cfg.Metrics {
			details += ", metrics every " + t.cfg.MetricInterval.String()
		}
	}
	return component.Description{Name: "Tracing", Type: "otel", Details: details}
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// StartSpan starts a span on the global tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err, if any, and ends span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Span names.
const (
	SpanNoteCreate    = "note.create"
	SpanNoteUpdate    = "note.update"
	SpanNoteDelete    = "note.delete"
	SpanGenerateTags  = "note.generate_tags"
	SpanSummarize     = "note.summarize"
	SpanExport        = "note.export"
	SpanLLMCompletion = "llm.completion"
)

// Attribute keys.
const (
	AttrNoteID      = "note.id"
	AttrLLMProvider = "llm.provider"
	AttrLLMModel    = "llm.model"
	AttrTokens      = "llm.total_tokens"
)
