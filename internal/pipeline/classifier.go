package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/model"
)

const (
	PhaseClassifyTime  = "classify_time"
	PhaseClassifySpace = "classify_space"
)

// Classifier asks the backend that produced each snippet for its time and
// space complexity.
type Classifier struct {
	registry    *backend.Registry
	maxParallel int
}

func NewClassifier(registry *backend.Registry, maxParallel int) *Classifier {
	if maxParallel < 1 {
		maxParallel = DefaultMaxParallel
	}
	return &Classifier{registry: registry, maxParallel: maxParallel}
}

// Classify annotates results in place. Only results with code and no error are
// classified; Code, Explanation and Error are never modified.
func (c *Classifier) Classify(ctx context.Context, results []model.GenerationResult) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "optimizer.pipeline.classifier"})

	var g errgroup.Group
	g.SetLimit(c.maxParallel)
	for i := range results {
		if results[i].Code == nil || results[i].Error != nil {
			continue
		}
		g.Go(func() error {
			c.classifyOne(ctx, &results[i])
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Classifier) classifyOne(ctx context.Context, r *model.GenerationResult) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{BackendID: logger.Ptr(r.BackendID)})

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "classification panicked", "panic", p)
			r.ComplexityError = model.NewError(model.ErrorKindClassification, r.BackendID, fmt.Sprintf("internal error: %v", p))
		}
	}()

	adapter, ok := c.registry.Lookup(r.BackendID)
	if !ok {
		r.ComplexityError = model.NewError(model.ErrorKindClassification, r.BackendID, "backend is not configured")
		return
	}

	code := *r.Code
	timeLabel, err := adapter.Generate(
		logger.WithLogFields(ctx, logger.LogFields{Phase: logger.Ptr(PhaseClassifyTime)}),
		TimeComplexityInstruction(adapter.DisplayName(), code))
	if err != nil {
		r.ComplexityError = classificationError(r.BackendID, "time", err)
		return
	}
	r.TimeComplexity = model.NewComplexity(timeLabel)

	spaceLabel, err := adapter.Generate(
		logger.WithLogFields(ctx, logger.LogFields{Phase: logger.Ptr(PhaseClassifySpace)}),
		SpaceComplexityInstruction(adapter.DisplayName(), code))
	if err != nil {
		r.ComplexityError = classificationError(r.BackendID, "space", err)
		return
	}
	r.SpaceComplexity = model.NewComplexity(spaceLabel)

	slog.DebugContext(ctx, "complexity classified",
		"time", r.TimeComplexity.Label,
		"space", r.SpaceComplexity.Label)
}

func classificationError(backendID, dimension string, err error) *model.Error {
	return model.NewError(model.ErrorKindClassification, backendID,
		fmt.Sprintf("%s complexity: %s", dimension, model.AsError(err, backendID).Message))
}
