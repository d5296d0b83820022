package cli

import (
	"claimed-world/internal/config"
	"claimed-world/internal/repository"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errMemoryDriver = errors.New("the memory driver has no schema, set DATABASE_DRIVER to postgres or sqlite3")

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger schema",
		Long: `Apply the ledger schema to the configured SQL database.

The schema is idempotent, running migrate twice is a no-op.

Example:
  DATABASE_DRIVER=postgres DATABASE_DSN=postgres://localhost/claimed?sslmode=disable claimed-world migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts)
		},
	}

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errMemoryDriver
	}

	// opening the store applies the schema
	store, err := repository.OpenSQLStore(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to migrate %s store: %w", cfg.Database.Driver, err)
	}
	defer store.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", cfg.Database.Driver)
	return nil
}
