package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/modelforge/modelforge/internal/cli/config"
	"github.com/modelforge/modelforge/internal/cli/ui"
	"github.com/modelforge/modelforge/internal/logging"
	"github.com/modelforge/modelforge/internal/modeldef"
	"github.com/modelforge/modelforge/internal/orm/metadata"
)

// loadConfig reads the configuration and applies the global flag overrides.
// Failures are printed as a configuration error block.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), o.noColor))
		return nil, errReported
	}
	if o.modelsPath != "" {
		cfg.Models = o.modelsPath
	}
	return cfg, nil
}

// buildModel loads the model definitions and finalizes the model they
// describe. Failures are printed as a formatted error block.
func (o *rootOptions) buildModel(cmd *cobra.Command) (*metadata.Model, *config.Config, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	defer logger.Sync() //nolint:errcheck

	doc, err := modeldef.Load(cfg.Models)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model definitions: %w", err)
	}

	mb := cfg.Factory(logger).Create()
	if err := doc.Apply(mb); err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ModelError(err, o.noColor))
		return nil, nil, errReported
	}

	m, err := mb.FinalizeModel()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ModelError(err, o.noColor))
		return nil, nil, errReported
	}

	logger.Debug("model built",
		zap.String("models", cfg.Models),
		zap.Int("entity_types", len(m.EntityTypes())))
	return m, cfg, nil
}
