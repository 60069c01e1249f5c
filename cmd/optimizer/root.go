package main

import (
	"github.com/spf13/cobra"

	"optimizer.app/relay/common/id"
	"optimizer.app/relay/common/logger"
	"optimizer.app/relay/core/config"
	"optimizer.app/relay/internal/backend"
)

var backendsFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "optimizer",
		Short:         "Generate, explain and compare code from several LLM backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&backendsFile, "backends", "", "backends file (overrides BACKENDS_FILE)")
	root.AddCommand(newAskCmd())
	root.AddCommand(newBackendsCmd())
	root.AddCommand(newLanguagesCmd())
	return root
}

// loadRuntime reads configuration, sets up logging and builds the backend registry.
func loadRuntime() (config.Config, *backend.Registry, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return config.Config{}, nil, err
	}
	if backendsFile != "" {
		cfg.BackendsFile = backendsFile
	}

	logger.Setup(cfg)
	if err := id.Init(1); err != nil {
		return config.Config{}, nil, err
	}

	registry, err := backend.LoadRegistry(cfg.BackendsFile, backend.Options{
		CallTimeout: cfg.Pipeline.CallTimeout,
	})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, registry, nil
}
