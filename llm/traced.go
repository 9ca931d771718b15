package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/observability"
)

type traced struct {
	next Provider
	log  *logger.Logger
}

// WithTracing wraps p so every call gets a span, a metric record and a
// debug log line.
func WithTracing(p Provider, log *logger.Logger) Provider {
	return &traced{next: p, log: log.WithComponent("llm")}
}

func (t *traced) Name() string { return t.next.Name() }

func (t *traced) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return t.observe(ctx, false, func(ctx context.Context) (*CompletionResponse, error) {
		return t.next.Complete(ctx, req)
	})
}

func (t *traced) CompleteStructured(ctx context.Context, req CompletionRequest, schema map[string]any) (*CompletionResponse, error) {
	return t.observe(ctx, true, func(ctx context.Context) (*CompletionResponse, error) {
		return t.next.CompleteStructured(ctx, req, schema)
	})
}

func (t *traced) observe(ctx context.Context, structured bool, call func(context.Context) (*CompletionResponse, error)) (*CompletionResponse, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanLLMCompletion,
		attribute.String(observability.AttrLLMProvider, t.next.Name()),
		attribute.Bool("llm.structured", structured),
	)
	start := time.Now()
	resp, err := call(ctx)
	if resp != nil {
		span.SetAttributes(
			attribute.String(observability.AttrLLMModel, resp.Model),
			attribute.Int(observability.AttrTokens, resp.Usage.TotalTokens),
		)
	}
	observability.EndSpan(span, err)
	elapsed := time.Since(start)
	observability.DefaultMetrics().RecordLLMCall(ctx, t.next.Name(), err, elapsed)

	fields := logger.DurationFields("llm.completion", elapsed)
	fields["provider"] = t.next.Name()
	if err != nil {
		t.log.WithContext(ctx).WithError(err).Warn("LLM call failed", fields)
		return nil, err
	}
	fields["total_tokens"] = resp.Usage.TotalTokens
	t.log.WithContext(ctx).Debug("LLM call completed", fields)
	return resp, nil
}
