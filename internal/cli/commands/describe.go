package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelforge/modelforge/internal/cli/ui"
	"github.com/modelforge/modelforge/internal/orm/snapshot"
)

// newDescribeCommand creates the 'describe' command
func newDescribeCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe [entity]",
		Short: "Describe the model or one entity type",
		Long: `Describe the finalized model.

Without arguments, lists every entity type with its table, primary key, base
type and navigations. With an entity type name, shows its properties, keys,
foreign keys, indexes and navigations.`,
		Example: `  # List all entity types
  modelforge describe

  # View details of the Post entity type
  modelforge describe Post

  # Output in JSON format for tooling
  modelforge describe Post --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q: must be table or json", format)
			}

			m, cfg, err := opts.buildModel(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if format == "json" {
					s, err := snapshot.Build(m, snapshot.Options{Relational: cfg.Relational.Enabled})
					if err != nil {
						return err
					}
					return writeJSON(cmd, s)
				}
				ui.RenderModel(out, m, opts.noColor)
				return nil
			}

			et := m.FindEntityType(args[0])
			if et == nil {
				var names []string
				for _, et := range m.EntityTypes() {
					names = append(names, et.Name())
				}
				fmt.Fprint(cmd.ErrOrStderr(), ui.EntityTypeNotFoundError(args[0], names, opts.noColor))
				return errReported
			}

			if format == "json" {
				s, err := snapshot.Build(m, snapshot.Options{Relational: cfg.Relational.Enabled})
				if err != nil {
					return err
				}
				for _, described := range s.EntityTypes {
					if described.Name == et.Name() {
						return writeJSON(cmd, described)
					}
				}
			}
			ui.RenderEntityType(out, et, opts.noColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
