package cli

import (
	"fmt"
	"os"

	"github.com/platinummonkey/prodhub/pkg/config"
	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X .../pkg/cli.Version=..."
var Version = "dev"

// NewRootCommand creates the root command with every subcommand attached
func NewRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "prodhub",
		Short:         "prodhub - multi-tenant product management backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before reading PRODHUB_* variables")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newBootstrapAdminCommand())
	return root
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the configuration and builds the process logger
func loadConfig() (*config.Config, *observability.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)
	return cfg, logger, nil
}
