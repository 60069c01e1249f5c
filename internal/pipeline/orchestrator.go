package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"optimizer.app/relay/common/id"
	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/metrics"
	"optimizer.app/relay/internal/model"
)

const DefaultMaxParallel = 4

const (
	RunOutcomeOK               = "ok"
	RunOutcomePartial          = "partial"
	RunOutcomeFailed           = "failed"
	RunOutcomePreprocessFailed = "preprocess_failed"
)

type Config struct {
	MaxParallel int // concurrent backend slots per run
}

// Orchestrator runs one submission: clean once, then generate and explain per
// backend concurrently, each into its own pre-allocated slot.
type Orchestrator struct {
	registry     *backend.Registry
	preprocessor *Preprocessor
	classifier   *Classifier
	maxParallel  int
}

func NewOrchestrator(registry *backend.Registry, cfg Config) *Orchestrator {
	maxParallel := cfg.MaxParallel
	if maxParallel < 1 {
		maxParallel = DefaultMaxParallel
	}
	return &Orchestrator{
		registry:     registry,
		preprocessor: NewPreprocessor(registry.Preprocessor()),
		classifier:   NewClassifier(registry, maxParallel),
		maxParallel:  maxParallel,
	}
}

// Run returns one result per requested backend id, in request order. It never
// panics and never returns an error: every failure is attached to its slot.
// A run id already present in the context log fields is reused.
func (o *Orchestrator) Run(ctx context.Context, req model.GenerationRequest) []model.GenerationResult {
	if logger.GetLogFields(ctx).RunID == nil {
		ctx = logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(id.New())})
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Language:  logger.Ptr(req.TargetLanguage),
		Component: "optimizer.pipeline.orchestrator",
	})

	sc := logger.StartSpan(ctx, "pipeline.run")
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes(
		attribute.String("run.language", req.TargetLanguage),
		attribute.StringSlice("run.backend_ids", req.BackendIDs),
		attribute.Bool("run.classify", req.Classify),
	)

	start := time.Now()
	metrics.QuestionChars.Observe(float64(len(req.RawQuestion)))
	slog.InfoContext(ctx, "run started",
		"backends", len(req.BackendIDs),
		"classify", req.Classify)

	cleaned, err := o.preprocessor.Clean(ctx, req.RawQuestion)
	if err != nil {
		sc.RecordError(err)
		metrics.Runs.WithLabelValues(RunOutcomePreprocessFailed).Inc()
		slog.ErrorContext(ctx, "preprocessing failed, aborting run", "error", err)
		return model.ErrorResults(req.BackendIDs, model.ErrorKindPreprocess, model.AsError(err, "").Message)
	}

	instruction := GenerationInstruction(req.TargetLanguage, cleaned)
	results := make([]model.GenerationResult, len(req.BackendIDs))

	// Plain group rather than WithContext: one slot failing must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(o.maxParallel)
	for i, backendID := range req.BackendIDs {
		g.Go(func() error {
			results[i] = o.runSlot(ctx, backendID, instruction)
			return nil
		})
	}
	_ = g.Wait()

	if req.Classify {
		o.classifier.Classify(ctx, results)
	}

	outcome := runOutcome(results)
	metrics.Runs.WithLabelValues(outcome).Inc()
	slog.InfoContext(ctx, "run completed",
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds())

	return results
}

func (o *Orchestrator) runSlot(ctx context.Context, backendID, instruction string) (result model.GenerationResult) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{BackendID: logger.Ptr(backendID)})
	result.BackendID = backendID

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "backend slot panicked",
				"panic", r,
				"stack", string(debug.Stack()))
			result.Explanation = nil
			result.Error = model.NewError(model.ErrorKindBackend, backendID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	adapter, ok := o.registry.Lookup(backendID)
	if !ok {
		slog.WarnContext(ctx, "unknown backend requested")
		result.Error = model.NewError(model.ErrorKindUnknownBackend, backendID, "backend is not configured")
		return result
	}

	code, err := adapter.Generate(ctx, instruction)
	if err != nil {
		result.Error = model.AsError(err, backendID)
		return result
	}
	result.Code = &code

	explanation, err := adapter.Explain(ctx, ExplanationInstruction(code))
	if err != nil {
		result.Error = model.AsError(err, backendID)
		return result
	}
	result.Explanation = &explanation

	return result
}

func runOutcome(results []model.GenerationResult) string {
	var ok, failed int
	for _, r := range results {
		switch {
		case r.Succeeded():
			ok++
		case !r.HasCode():
			failed++
		}
	}
	switch {
	case ok == len(results):
		return RunOutcomeOK
	case failed == len(results):
		return RunOutcomeFailed
	default:
		return RunOutcomePartial
	}
}
