package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pgshape/internal/analyze"
)

func newAnalyzeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [globs...]",
		Short: "Analyze schema files and report every broken object",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cat, resolver, cleanup, err := setup(cmd.Context(), *configPath, args)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := analyze.Run(cmd.Context(), cat, resolver)
			if err != nil {
				return err
			}

			for _, result := range report.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d columns)\n",
					result.Object.Kind, result.Object.ID, len(result.Fields))
			}
			if len(report.Failures) > 0 {
				fmt.Fprintf(os.Stderr, "%d object(s) failed analysis:\n", len(report.Failures))
				for _, failure := range report.Failures {
					fmt.Fprintf(os.Stderr, "  - %s (%s): %v\n", failure.Object, failure.Source, failure.Err)
				}
				return fmt.Errorf("%d object(s) failed analysis", len(report.Failures))
			}
			return nil
		},
	}
	return cmd
}

func newOrderCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "order [globs...]",
		Short: "Print objects in dependency-first execution order",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cat, resolver, cleanup, err := setup(cmd.Context(), *configPath, args)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := analyze.Run(cmd.Context(), cat, resolver)
			if err != nil {
				return err
			}
			for _, obj := range report.Queue.Items() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", obj.Kind, obj.ID)
			}
			return nil
		},
	}
}
