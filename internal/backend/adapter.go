package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"optimizer.app/relay/common/llm"
	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/internal/metrics"
	"optimizer.app/relay/internal/model"
)

const (
	PhaseGenerate = "generate"
	PhaseExplain  = "explain"
)

// Adapter is the uniform call surface over one configured backend. Failures
// are always returned as *model.Error.
type Adapter interface {
	ID() string
	DisplayName() string
	Model() string
	Generate(ctx context.Context, instruction string) (string, error)
	Explain(ctx context.Context, instruction string) (string, error)
}

type Options struct {
	CallTimeout time.Duration
	Breakers    *BreakerRegistry // nil disables circuit breaking
	HTTPClient  *http.Client     // nil uses the SDK default
}

type chatAdapter struct {
	cfg         Config
	client      llm.Client
	breaker     *gobreaker.CircuitBreaker
	callTimeout time.Duration
}

func NewChatAdapter(cfg Config, client llm.Client, opts Options) Adapter {
	a := &chatAdapter{
		cfg:         cfg,
		client:      client,
		callTimeout: opts.CallTimeout,
	}
	if opts.Breakers != nil {
		a.breaker = opts.Breakers.Get(cfg.ID)
	}
	return a
}

func (a *chatAdapter) ID() string          { return a.cfg.ID }
func (a *chatAdapter) DisplayName() string { return a.cfg.DisplayName }
func (a *chatAdapter) Model() string       { return a.cfg.Model }

func (a *chatAdapter) Generate(ctx context.Context, instruction string) (string, error) {
	return a.call(ctx, PhaseGenerate, a.cfg.SystemPromptGenerate, instruction)
}

func (a *chatAdapter) Explain(ctx context.Context, instruction string) (string, error) {
	return a.call(ctx, PhaseExplain, a.cfg.SystemPromptExplain, instruction)
}

// call issues one chat request. A phase already set in the context log fields
// (preprocess, classify_time, ...) takes precedence over the method's own.
func (a *chatAdapter) call(ctx context.Context, phase, systemPrompt, instruction string) (string, error) {
	if p := logger.GetLogFields(ctx).Phase; p != nil {
		phase = *p
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		BackendID: logger.Ptr(a.cfg.ID),
		Phase:     logger.Ptr(phase),
	})

	sc := logger.StartSpan(ctx, "backend."+phase,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("backend.id", a.cfg.ID),
			attribute.String("backend.model", a.cfg.Model),
			attribute.Int("backend.max_output_tokens", a.cfg.MaxOutputTokens),
		))
	defer sc.End()
	ctx = sc.Context()

	callCtx := ctx
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := callWithResilience(callCtx, a.breaker, a.cfg.Retry, func(ctx context.Context) (string, error) {
		resp, err := a.client.Chat(ctx, llm.Request{
			SystemPrompt: systemPrompt,
			UserPrompt:   instruction,
			MaxTokens:    a.cfg.MaxOutputTokens,
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	})
	elapsed := time.Since(start)
	metrics.BackendCallDuration.WithLabelValues(a.cfg.ID, phase).Observe(elapsed.Seconds())

	if err != nil {
		tagged := a.tag(ctx, callCtx, err)
		outcome := metrics.OutcomeError
		if tagged.Kind == model.ErrorKindTimeout {
			outcome = metrics.OutcomeTimeout
		}
		metrics.BackendCalls.WithLabelValues(a.cfg.ID, phase, outcome).Inc()
		sc.RecordError(tagged)

		slog.WarnContext(ctx, "backend call failed",
			"kind", tagged.Kind,
			"status_code", llm.StatusCode(err),
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return "", tagged
	}

	metrics.BackendCalls.WithLabelValues(a.cfg.ID, phase, metrics.OutcomeOK).Inc()
	sc.SetAttributes(attribute.Int("backend.output_chars", len(out)))

	slog.InfoContext(ctx, "backend call completed",
		"duration_ms", elapsed.Milliseconds(),
		"output_chars", len(out))
	return out, nil
}

// tag maps a raw failure onto the error taxonomy. Only expiry of this call's
// own deadline is a timeout; a cancelled or expired parent is a backend error.
func (a *chatAdapter) tag(parent, callCtx context.Context, err error) *model.Error {
	if parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return model.NewError(model.ErrorKindTimeout, a.cfg.ID,
			fmt.Sprintf("no response within %s", a.callTimeout))
	}
	if parent.Err() != nil {
		return model.NewError(model.ErrorKindBackend, a.cfg.ID,
			fmt.Sprintf("call abandoned: %v", parent.Err()))
	}
	return model.NewError(model.ErrorKindBackend, a.cfg.ID, err.Error())
}
