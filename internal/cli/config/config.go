package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/modelforge/modelforge/internal/cli/ui"
	"github.com/modelforge/modelforge/internal/orm/conventions"
	"github.com/modelforge/modelforge/pkg/modelbuilder"
)

// FileName is the name of the configuration file, without extension
const FileName = "modelforge"

// EnvPrefix prefixes environment overrides, e.g. MODELFORGE_LOGGING_LEVEL
const EnvPrefix = "MODELFORGE"

// Config represents the modelforge configuration
type Config struct {
	Models      string            `mapstructure:"models"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Conventions ConventionsConfig `mapstructure:"conventions"`
	Relational  RelationalConfig  `mapstructure:"relational"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ConventionsConfig selects the conventions used to build models
type ConventionsConfig struct {
	Disabled []string `mapstructure:"disabled"`
}

// RelationalConfig represents table naming configuration
type RelationalConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	PluralizeTables bool              `mapstructure:"pluralize_tables"`
	Irregular       map[string]string `mapstructure:"irregular"`
}

// SnapshotConfig represents snapshot output configuration
type SnapshotConfig struct {
	Output   string `mapstructure:"output"`
	Compress bool   `mapstructure:"compress"`
}

// Load loads the configuration from path, or from modelforge.yaml in the
// project root when path is empty. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("models", "models.yaml")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.development", false)
	v.SetDefault("conventions.disabled", []string{})
	v.SetDefault("relational.enabled", true)
	v.SetDefault("relational.pluralize_tables", true)
	v.SetDefault("snapshot.output", "build/model.json")
	v.SetDefault("snapshot.compress", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if root, err := ProjectRoot(); err == nil {
			v.AddConfigPath(root)
		}
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Relative model paths are resolved against the config file
	if used := v.ConfigFileUsed(); used != "" && config.Models != "" && !filepath.IsAbs(config.Models) {
		config.Models = filepath.Join(filepath.Dir(used), config.Models)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ProjectRoot finds the nearest directory, from the working directory up,
// that holds a modelforge.yaml or modelforge.yml.
func ProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{FileName + ".yaml", FileName + ".yml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yaml found in %s or any parent directory", FileName, dir)
		}
		dir = parent
	}
}

// Factory returns the model builder factory described by the configuration
func (c *Config) Factory(logger *zap.Logger) modelbuilder.DefaultFactory {
	f := modelbuilder.DefaultFactory{
		Disabled: c.Conventions.Disabled,
		Logger:   logger,
	}
	if c.Relational.Enabled {
		f.Relational = &modelbuilder.RelationalOptions{
			PluralizeTables: c.Relational.PluralizeTables,
			Irregular:       c.Relational.Irregular,
		}
	}
	return f
}

// ConventionNames returns the names of the conventions that can be disabled
func ConventionNames() []string {
	var names []string
	for _, c := range conventions.Defaults() {
		names = append(names, c.Name())
	}
	return names
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level must be one of debug, info, warn or error, got: %s", cfg.Logging.Level)
	}

	known := ConventionNames()
	for _, name := range cfg.Conventions.Disabled {
		if !contains(known, name) {
			msg := fmt.Sprintf("conventions.disabled names an unknown convention: %s", name)
			if match := ui.BestMatch(name, known); match != "" {
				msg += fmt.Sprintf(" (did you mean %s?)", match)
			}
			return fmt.Errorf("%s", msg)
		}
	}

	for singular, plural := range cfg.Relational.Irregular {
		if singular == "" || plural == "" {
			return fmt.Errorf("relational.irregular entries need both a singular and a plural form")
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
