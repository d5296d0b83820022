package cli

import (
	bidding "claimed-world/internal/biddingService"
	"claimed-world/internal/config"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every item's winner against the bid ledger",
		Long: `Recompute the winner of every item from the bid ledger and compare it
with the item's stored winner. Exits non-zero when any item has drifted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, rootOpts)
		},
	}

	return cmd
}

func runVerify(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errMemoryDriver
	}

	store, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	items, err := store.ListItems(cmd.Context())
	if err != nil {
		return err
	}

	drifted, err := bidding.NewBiddingService(store).VerifyAllProjections(cmd.Context())
	if err != nil {
		return err
	}
	if len(drifted) > 0 {
		return fmt.Errorf("%d of %d items drifted from the ledger: %s", len(drifted), len(items), strings.Join(drifted, ", "))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "All %d items match the ledger\n", len(items))
	return nil
}
