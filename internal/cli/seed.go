package cli

import (
	"claimed-world/internal/config"
	"fmt"

	"github.com/spf13/cobra"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	File string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the auctionable items",
		Long: `Insert the auctionable items into the configured SQL database.

Without --file (or SEED_FILE) the built-in country list is used. Items that
already exist keep their winner.

Example:
  claimed-world seed --file items.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML file listing the items")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errMemoryDriver
	}
	if opts.File != "" {
		cfg.SeedFile = opts.File
	}

	store, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := seedStore(cmd.Context(), store, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d items\n", n)
	return nil
}
