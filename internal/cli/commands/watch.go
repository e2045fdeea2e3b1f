package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/modelforge/modelforge/internal/logging"
	"github.com/modelforge/modelforge/internal/watch"
)

// watchModels runs fn, then runs it again after every change to the model
// definitions until the command's context is done or an interrupt arrives.
// Errors from fn are printed and do not stop the watch.
func (o *rootOptions) watchModels(cmd *cobra.Command, fn func() error) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := func() {
		if err := fn(); err != nil && !errors.Is(err, errReported) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.RedString("Error:"), err)
		}
	}

	// A batch arriving while another is pending is folded into it
	changes := make(chan []string, 1)
	fw, err := watch.NewFileWatcher([]string{cfg.Models}, logger, func(files []string) {
		select {
		case changes <- files:
		default:
		}
	})
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		return err
	}
	defer fw.Stop() //nolint:errcheck

	report()
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes (Ctrl+C to stop)\n", cfg.Models)

	for {
		select {
		case <-ctx.Done():
			return nil
		case files := <-changes:
			fmt.Fprintf(cmd.OutOrStdout(), "\nChanged: %s\n", strings.Join(files, ", "))
			report()
		}
	}
}
