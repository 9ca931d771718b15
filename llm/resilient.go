package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/resilience"
)

type resilient struct {
	next    Provider
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// WithResilience retries failed calls and stops calling a provider that
// keeps failing. While the breaker is open calls fail with an error wrapping
// resilience.ErrCircuitOpen.
func WithResilience(p Provider, cfg Config, log *logger.Logger) Provider {
	cfg.ApplyDefaults()
	log = log.WithComponent("llm")
	name := p.Name()
	return &resilient{
		next: p,
		retry: resilience.RetryConfig{
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     4 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				log.Warn("LLM call failed, retrying", logger.Fields(
					"provider", name, "attempt", attempt, "backoff", backoff.String(), "error", err.Error()))
			},
		},
		breaker: resilience.NewCircuitBreaker(resilience.BreakerConfig{
			Name:        name,
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
			OnStateChange: func(name string, from, to resilience.State) {
				log.Warn("LLM circuit breaker changed state", logger.Fields(
					"provider", name, "from", from.String(), "to", to.String()))
			},
		}),
	}
}

func (r *resilient) Name() string { return r.next.Name() }

func (r *resilient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return r.call(ctx, func(ctx context.Context) (*CompletionResponse, error) {
		return r.next.Complete(ctx, req)
	})
}

func (r *resilient) CompleteStructured(ctx context.Context, req CompletionRequest, schema map[string]any) (*CompletionResponse, error) {
	return r.call(ctx, func(ctx context.Context) (*CompletionResponse, error) {
		return r.next.CompleteStructured(ctx, req, schema)
	})
}

// call counts one breaker failure per request, however many attempts it
// took. Cancellation by the caller is not held against the provider.
func (r *resilient) call(ctx context.Context, fn func(context.Context) (*CompletionResponse, error)) (*CompletionResponse, error) {
	var resp *CompletionResponse
	err := r.breaker.Execute(func() error {
		var err error
		resp, err = resilience.Retry(ctx, r.retry, fn)
		return err
	}, func(err error) bool {
		return ctx.Err() == nil || !errors.Is(err, ctx.Err())
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("llm %s: %w", r.next.Name(), err)
	}
	return resp, err
}
