package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"optimizer.app/relay/common/id"
	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/internal/model"
	"optimizer.app/relay/internal/pipeline"
)

func newAskCmd() *cobra.Command {
	var (
		language   string
		backendIDs []string
		classify   bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Generate and explain code for a question on one or more backends",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, ok := model.CanonicalLanguage(language)
			if !ok {
				return fmt.Errorf("unsupported language %q, expected one of %s",
					language, strings.Join(model.SupportedLanguages(), ", "))
			}

			cfg, registry, err := loadRuntime()
			if err != nil {
				return err
			}

			if len(backendIDs) == 0 {
				for _, a := range registry.Backends() {
					backendIDs = append(backendIDs, a.ID())
				}
			}
			if len(backendIDs) == 0 {
				return fmt.Errorf("no backends configured in %s", cfg.BackendsFile)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runID := id.New()
			ctx = logger.WithLogFields(ctx, logger.LogFields{
				RunID:     logger.Ptr(runID),
				Component: "optimizer.cli",
			})

			orchestrator := pipeline.NewOrchestrator(registry, pipeline.Config{MaxParallel: cfg.Pipeline.MaxParallel})
			results := orchestrator.Run(ctx, model.GenerationRequest{
				RawQuestion:    strings.Join(args, " "),
				TargetLanguage: lang,
				BackendIDs:     backendIDs,
				Classify:       classify,
			})
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run %s interrupted: %w", id.String(runID), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s (%s)\n\n", id.String(runID), lang)
			render(cmd.OutOrStdout(), pipeline.Aggregate(registry, results))
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "Python", "target language")
	cmd.Flags().StringArrayVarP(&backendIDs, "backend", "b", nil, "backend id, repeatable (default: every configured backend)")
	cmd.Flags().BoolVar(&classify, "classify", false, "classify time and space complexity of each result")
	return cmd
}
