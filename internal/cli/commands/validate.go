package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelforge/modelforge/internal/cli/ui"
)

// newValidateCommand creates the 'validate' command
func newValidateCommand(opts *rootOptions) *cobra.Command {
	var (
		strict    bool
		watchMode bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Build and finalize the model, reporting every problem",
		Long: `Build the model from its definitions and finalize it.

Finalization runs every validator and reports all errors at once. Warnings,
such as cycles of required relationships, do not fail validation unless
--strict is given. With --watch, the model is validated again whenever a
definition file changes.`,
		Example: `  # Validate the models configured in modelforge.yaml
  modelforge validate

  # Validate a directory of definitions and fail on warnings
  modelforge validate --models ./models --strict

  # Revalidate on every change
  modelforge validate --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watchMode {
				return opts.watchModels(cmd, func() error {
					return validateModel(cmd, opts, strict)
				})
			}
			return validateModel(cmd, opts, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Validate again when model definitions change")

	return cmd
}

func validateModel(cmd *cobra.Command, opts *rootOptions, strict bool) error {
	m, _, err := opts.buildModel(cmd)
	if err != nil {
		return err
	}

	warnings := m.Warnings()
	fmt.Fprint(cmd.ErrOrStderr(), ui.Warnings(warnings, opts.noColor))
	if strict && len(warnings) > 0 {
		return fmt.Errorf("%d warning(s) with --strict", len(warnings))
	}

	ui.WriteSuccess(cmd.OutOrStdout(),
		fmt.Sprintf("Model is valid (%d entity types)", len(m.EntityTypes())), opts.noColor)
	return nil
}
