package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"optimizer.app/relay/common/id"
	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/internal/http/dto"
	"optimizer.app/relay/internal/http/middleware"
	"optimizer.app/relay/internal/model"
	"optimizer.app/relay/internal/pipeline"
)

// statusClientClosedRequest is returned when the caller leaves before the run ends.
const statusClientClosedRequest = 499

type Runner interface {
	Run(ctx context.Context, req model.GenerationRequest) []model.GenerationResult
}

type GenerationHandler struct {
	runner           Runner
	names            pipeline.DisplayNamer
	maxQuestionChars int
}

func NewGenerationHandler(runner Runner, names pipeline.DisplayNamer, maxQuestionChars int) *GenerationHandler {
	return &GenerationHandler{
		runner:           runner,
		names:            names,
		maxQuestionChars: maxQuestionChars,
	}
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	genReq, err := h.validate(req)
	if err != nil {
		slog.WarnContext(ctx, "rejected generation request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := id.New()
	c.Set(middleware.RunIDKey, runID)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     logger.Ptr(runID),
		Component: "optimizer.http.generation",
	})

	results := h.runner.Run(ctx, genReq)

	if ctx.Err() != nil {
		slog.InfoContext(ctx, "client went away, discarding results")
		c.Status(statusClientClosedRequest)
		return
	}

	c.JSON(http.StatusOK, dto.ToGenerateResponse(runID, genReq.TargetLanguage, pipeline.Aggregate(h.names, results)))
}

func (h *GenerationHandler) validate(req dto.GenerateRequest) (model.GenerationRequest, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return model.GenerationRequest{}, fmt.Errorf("question must not be blank")
	}
	if h.maxQuestionChars > 0 && len([]rune(question)) > h.maxQuestionChars {
		return model.GenerationRequest{}, fmt.Errorf("question exceeds %d characters", h.maxQuestionChars)
	}

	language, ok := model.CanonicalLanguage(req.Language)
	if !ok {
		return model.GenerationRequest{}, fmt.Errorf("unsupported language %q, expected one of %s",
			req.Language, strings.Join(model.SupportedLanguages(), ", "))
	}

	seen := make(map[string]struct{}, len(req.BackendIDs))
	for _, backendID := range req.BackendIDs {
		if _, dup := seen[backendID]; dup {
			return model.GenerationRequest{}, fmt.Errorf("backend %q requested more than once", backendID)
		}
		seen[backendID] = struct{}{}
	}

	return model.GenerationRequest{
		RawQuestion:    question,
		TargetLanguage: language,
		BackendIDs:     req.BackendIDs,
		Classify:       req.Classify,
	}, nil
}
