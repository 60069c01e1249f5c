package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/model"
)

const PhasePreprocess = "preprocess"

var questionSanitizer = strings.NewReplacer(
	`"`, "",
	"'", "",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// Preprocessor rewrites a raw question into a cleaner problem statement using
// the designated backend.
type Preprocessor struct {
	adapter backend.Adapter
}

func NewPreprocessor(adapter backend.Adapter) *Preprocessor {
	return &Preprocessor{adapter: adapter}
}

// Clean returns the cleaned question with quotes removed and line breaks
// folded to spaces. Every failure is a preprocess_error.
func (p *Preprocessor) Clean(ctx context.Context, question string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Phase:     logger.Ptr(PhasePreprocess),
		Component: "optimizer.pipeline.preprocessor",
	})

	if strings.TrimSpace(question) == "" {
		return "", model.NewError(model.ErrorKindPreprocess, p.adapter.ID(), "question is empty")
	}

	out, err := p.adapter.Generate(ctx, question)
	if err != nil {
		return "", model.NewError(model.ErrorKindPreprocess, p.adapter.ID(), model.AsError(err, p.adapter.ID()).Message)
	}

	cleaned := sanitizeQuestion(out)
	if cleaned == "" {
		return "", model.NewError(model.ErrorKindPreprocess, p.adapter.ID(), "preprocessor returned an empty question")
	}

	slog.DebugContext(ctx, "question cleaned",
		"raw_chars", len(question),
		"cleaned_chars", len(cleaned),
		"cleaned", logger.Truncate(cleaned, 200))
	return cleaned, nil
}

func sanitizeQuestion(s string) string {
	return strings.TrimSpace(questionSanitizer.Replace(s))
}
