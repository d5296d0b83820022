package cli

import (
	"claimed-world/internal/config"
	"claimed-world/internal/repository"
	"claimed-world/utils"
	"context"
	"fmt"
)

// openStore opens the configured ledger. The returned close function is never nil.
func openStore(ctx context.Context, cfg config.Config) (repository.AuctionDB, func() error, error) {
	if cfg.Database.Driver == config.DriverMemory {
		utils.Warn("Using the in-memory ledger, settlements are lost on restart", nil)
		return repository.NewMemoryRepo(), func() error { return nil }, nil
	}

	store, err := repository.OpenSQLStore(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, func() error { return nil }, fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	utils.Info("Ledger store ready", map[string]any{"driver": cfg.Database.Driver})
	return store, store.Close, nil
}

// seedStore inserts the configured items. Existing items keep their projection.
func seedStore(ctx context.Context, store repository.AuctionDB, cfg config.Config) (int, error) {
	items, err := cfg.SeedItems()
	if err != nil {
		return 0, err
	}
	if err := store.SeedItems(ctx, items); err != nil {
		return 0, fmt.Errorf("failed to seed items: %w", err)
	}
	utils.Info("Items seeded", map[string]any{"count": len(items), "seed_file": cfg.SeedFile})
	return len(items), nil
}
