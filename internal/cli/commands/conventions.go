package commands

import (
	"github.com/spf13/cobra"

	"github.com/modelforge/modelforge/internal/cli/config"
	"github.com/modelforge/modelforge/internal/cli/ui"
)

// newConventionsCommand creates the 'conventions' command
func newConventionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conventions",
		Short: "List the conventions used to build models",
		Long: `List the core and relational conventions, and whether the
configuration disabled them (conventions.disabled in modelforge.yaml).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			active := cfg.Factory(nil).Conventions().Names()
			enabled := make(map[string]bool, len(active))
			for _, name := range active {
				enabled[name] = true
			}

			table := ui.NewTable(cmd.OutOrStdout(), []string{"CONVENTION", "ENABLED"}, opts.noColor)
			core := make(map[string]bool)
			for _, name := range config.ConventionNames() {
				core[name] = true
				status := "yes"
				if !enabled[name] {
					status = "no"
				}
				table.AddRow(name, status)
			}
			// Relational conventions are installed on top of the core set
			for _, name := range active {
				if !core[name] {
					table.AddRow(name, "yes")
				}
			}
			table.Render()
			return nil
		},
	}
}
