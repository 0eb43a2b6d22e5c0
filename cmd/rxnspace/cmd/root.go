package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/rxnspace/internal/config"
	"github.com/withObsrvr/rxnspace/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:          "rxnspace",
	Short:        "Combinatorial reaction space builder",
	Long:         "Enumerates every combination of featurized reaction components and writes the reaction space as CSV or Parquet.",
	SilenceUsage: true,
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file (RXN_* environment variables override it)")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&logFormat, "log-format", "", "Log format: text, json")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and environment, applies the component
// arguments and sets up logging. Command flags are applied by the caller.
func loadConfig(args []string) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if len(args) > 0 {
		cfg.Space.Components = config.ParseComponents(args)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

func setupLogging(cfg config.Config) *slog.Logger {
	return logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})
}

// validate reports every configuration problem at once.
func validate(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	return nil
}
