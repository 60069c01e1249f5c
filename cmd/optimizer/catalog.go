package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"optimizer.app/relay/internal/model"
)

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, err := loadRuntime()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMODEL")
			for _, a := range registry.Backends() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID(), a.DisplayName(), a.Model())
			}
			fmt.Fprintf(w, "\npreprocessor: %s (%s)\n", registry.Preprocessor().ID(), registry.Preprocessor().Model())
			return w.Flush()
		},
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range model.SupportedLanguages() {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
}
