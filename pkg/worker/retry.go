package worker

import (
	"context"
	"errors"
	"time"

	"github.com/zen-systems/quillflow/pkg/adapter"
	"github.com/zen-systems/quillflow/pkg/config"
)

// call runs req against target, retrying transient failures with
// exponential backoff and then walking the fallback chain.
func (w *Worker) call(ctx context.Context, stage string, primary Target, req adapter.Request) (*adapter.Response, error) {
	targets := w.buildTargets(primary)
	retry := w.retrySettings()
	var lastErr error

	for idx, target := range targets {
		impl, ok := w.adapters[target.Adapter]
		if !ok {
			continue
		}
		if idx > 0 {
			w.logf("stage %s: falling back to %s", stage, target)
		}

		for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
			resp, err := impl.Generate(ctx, target.Model, req)
			if err == nil {
				return resp, nil
			}

			lastErr = adapter.NewGenerationError(target.Adapter, target.Model, 0, err)
			if !adapter.IsTransient(err) || attempt == retry.MaxRetries || ctx.Err() != nil {
				w.logf("stage %s: %s failed after %d attempt(s): %v", stage, target, attempt+1, err)
				break
			}

			backoff := computeBackoff(retry.BaseBackoffMs, retry.MaxBackoffMs, attempt)
			w.logf("stage %s: %s transient error, retrying in %s: %v", stage, target, backoff, err)
			if err := sleepWithContext(ctx, backoff); err != nil {
				return nil, adapter.NewGenerationError(target.Adapter, target.Model, 0, err)
			}
		}

		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = &adapter.GenerationError{Provider: primary.Adapter, Model: primary.Model, Err: errors.New("adapter call failed")}
	}
	return nil, lastErr
}

func (w *Worker) buildTargets(primary Target) []Target {
	targets := []Target{primary}
	if w.routing == nil || !w.routing.Fallback.AllowFallback {
		return targets
	}
	for _, entry := range w.resolveFallbackChain(primary) {
		next := Target{Adapter: entry.Adapter, Model: w.aliases.Resolve(entry.Model)}
		if next != primary {
			targets = append(targets, next)
		}
	}
	return targets
}

func (w *Worker) resolveFallbackChain(primary Target) []config.RouteTarget {
	chains := w.routing.Fallback.FallbackChain
	if chains == nil {
		return nil
	}
	if chain, ok := chains[primary.String()]; ok {
		return chain
	}
	if chain, ok := chains[primary.Adapter]; ok {
		return chain
	}
	return nil
}

func (w *Worker) retrySettings() config.RetryConfig {
	if w.routing == nil {
		return config.RetryConfig{MaxRetries: 2, BaseBackoffMs: 200, MaxBackoffMs: 2000}
	}
	return w.routing.Retry
}

func computeBackoff(baseMs, maxMs, attempt int) time.Duration {
	limit := time.Duration(maxMs) * time.Millisecond
	backoff := time.Duration(baseMs) * time.Millisecond
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= limit {
			return limit
		}
	}
	if backoff > limit {
		return limit
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
