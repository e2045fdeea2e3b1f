package commands

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/modelforge/modelforge/internal/cli/ui"
	"github.com/modelforge/modelforge/internal/orm/snapshot"
)

// newSnapshotCommand creates the 'snapshot' command
func newSnapshotCommand(opts *rootOptions) *cobra.Command {
	var (
		output   string
		compress bool
		check    bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write a JSON snapshot of the finalized model",
		Long: `Write a deterministic JSON description of the finalized model.

The snapshot lists entity types, properties, keys, foreign keys, indexes,
navigations and the dependency order. Use --check in CI to fail when the
committed snapshot no longer matches the model definitions.`,
		Example: `  # Write the snapshot configured in modelforge.yaml
  modelforge snapshot

  # Write a compressed snapshot
  modelforge snapshot --output build/model.json.gz --compress

  # Print the snapshot
  modelforge snapshot --output -

  # Fail when build/model.json is out of date
  modelforge snapshot --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := opts.buildModel(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("output") {
				output = cfg.Snapshot.Output
			}
			if !cmd.Flags().Changed("compress") {
				compress = cfg.Snapshot.Compress
			}

			s, err := snapshot.Build(m, snapshot.Options{Relational: cfg.Relational.Enabled})
			if err != nil {
				return err
			}

			switch {
			case check:
				return checkSnapshot(cmd, s, output, opts.noColor)
			case output == "-":
				data, err := snapshot.Marshal(s)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			if err := snapshot.WriteFile(s, output, compress); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(),
				fmt.Sprintf("Snapshot written to %s (%d entity types)", output, len(s.EntityTypes)), opts.noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout (default from config)")
	cmd.Flags().BoolVar(&compress, "compress", false, "Gzip the snapshot")
	cmd.Flags().BoolVar(&check, "check", false, "Compare with the existing snapshot instead of writing it")

	return cmd
}

// checkSnapshot compares s with the snapshot stored at path. Model identities
// differ between builds and are not compared.
func checkSnapshot(cmd *cobra.Command, s *snapshot.Snapshot, path string, noColor bool) error {
	existing, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}

	existing.ModelID, s.ModelID = uuid.Nil, uuid.Nil
	want, err := snapshot.Marshal(existing)
	if err != nil {
		return err
	}
	got, err := snapshot.Marshal(s)
	if err != nil {
		return err
	}

	if !bytes.Equal(want, got) {
		ui.WriteError(cmd.ErrOrStderr(), ui.ErrorOptions{
			Context:      "SNAPSHOT OUT OF DATE",
			Problem:      fmt.Sprintf("%s does not match the model definitions.", path),
			HelpCommands: []string{"Update it: modelforge snapshot"},
			NoColor:      noColor,
		})
		return errReported
	}

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Snapshot %s is up to date", path), noColor)
	return nil
}
