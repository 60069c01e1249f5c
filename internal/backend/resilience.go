package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"optimizer.app/relay/common/llm"
	"optimizer.app/relay/internal/metrics"
)

// ErrCircuitOpen is returned when a backend's breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit open")

type BreakerSettings struct {
	FailureThreshold uint32        // consecutive failures before opening
	OpenTimeout      time.Duration // time spent open before a half-open probe
	HalfOpenProbes   uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenProbes:   1,
	}
}

// BreakerRegistry hands out one circuit breaker per backend id.
type BreakerRegistry struct {
	mu       sync.Mutex
	settings BreakerSettings
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewBreakerRegistry(settings BreakerSettings) *BreakerRegistry {
	return &BreakerRegistry{
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Get returns the breaker for backendID, creating it on first use.
func (r *BreakerRegistry) Get(backendID string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[backendID]; ok {
		return cb
	}

	threshold := r.settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        backendID,
		MaxRequests: r.settings.HalfOpenProbes,
		Timeout:     r.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"backend_id", name,
				"from", from.String(),
				"to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			// the caller going away says nothing about backend health
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	metrics.BreakerState.WithLabelValues(backendID).Set(float64(gobreaker.StateClosed))

	r.breakers[backendID] = cb
	return cb
}

// callWithResilience runs fn through the breaker, retrying transient failures
// with exponential backoff up to retry.MaxRetries extra attempts.
func callWithResilience(ctx context.Context, cb *gobreaker.CircuitBreaker, retry RetryConfig, fn func(context.Context) (string, error)) (string, error) {
	var out string

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		res, err := execute(ctx, cb, fn)
		if err != nil {
			if errors.Is(err, ErrCircuitOpen) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil || !llm.IsRetryable(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}

		out = res
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retry.InitialInterval
	policy.MaxInterval = retry.MaxInterval
	policy.MaxElapsedTime = 0 // bounded by MaxRetries and the call deadline

	var attempts uint64
	if retry.MaxRetries > 0 {
		attempts = uint64(retry.MaxRetries)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, attempts), ctx)

	err := backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "retrying backend call",
			"error", err,
			"wait_ms", wait.Milliseconds())
	})
	return out, err
}

func execute(ctx context.Context, cb *gobreaker.CircuitBreaker, fn func(context.Context) (string, error)) (string, error) {
	if cb == nil {
		return fn(ctx)
	}

	res, err := cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrCircuitOpen
		}
		return "", err
	}
	return res.(string), nil
}
