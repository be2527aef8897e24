package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bed-alerts/internal/config"
	"github.com/bed-alerts/internal/logger"
)

var (
	// envFile is the dotenv file loaded before reading the environment.
	envFile string
	// logLevel overrides LOG_LEVEL when set.
	logLevel string

	// cfg is loaded once in PersistentPreRunE and shared by subcommands.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "api",
		Short: "Bed alert notification service.",
		Long: `Raises bed alerts, pushes them to caregivers' devices and records
their confirmation by a caregiver or by a corroborating location event.

Without a subcommand the HTTP server is started.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE:              runServe,
	}
)

// Execute runs the api CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load (missing file is ignored)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	rootCmd.AddCommand(serveCmd, bootstrapCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	cfg = config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if !logger.Configure(cfg.LogLevel, cfg.IsProduction()) {
		logger.WarnKV(cmd.Context(), "unknown log level", "requested", cfg.LogLevel, "using", logger.Level().String())
	}
	return nil
}
