package cli

import (
	"claimed-world/internal/config"
	"claimed-world/utils"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command of the auction server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "claimed-world",
		Short: "ClaimedWorld auction settlement server",
		Long: `ClaimedWorld lets users pay to become the owner of an item on a shared map.

Bids are proposed, paid through the payment gateway and settled from the
gateway's signed webhook. Each item has exactly one current winner.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load reads the config and applies the log level
func (o *RootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if err := utils.SetLevel(cfg.Log.Level); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
