package cli

import (
	bidding "claimed-world/internal/biddingService"
	"claimed-world/internal/config"
	"claimed-world/internal/notify"
	"claimed-world/internal/payment"
	"claimed-world/internal/server"
	"claimed-world/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	SkipSeed bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, payment webhook and change feed",
		Long: `Start the auction server.

The ledger store is opened (and migrated for SQL drivers), items are seeded,
and the HTTP API listens until SIGINT or SIGTERM.

Example:
  claimed-world serve
  DATABASE_DRIVER=sqlite3 DATABASE_DSN=file:auction.db claimed-world serve
  claimed-world serve --config /etc/claimed-world/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipSeed, "skip-seed", false, "do not seed items on startup")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.UsesDevSecrets() {
		utils.Warn("Using development payment secrets, set WEBHOOK_SECRET and INTENT_SECRET in production", nil)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			utils.Error("Failed to close ledger store", map[string]any{"error": err.Error()})
		}
	}()

	if !opts.SkipSeed {
		if _, err := seedStore(ctx, store, cfg); err != nil {
			return err
		}
	}

	hub := notify.NewHub(notify.DefaultBuffer)
	defer hub.Close()

	publisher, closePublishers, err := buildPublisher(ctx, cfg, hub)
	if err != nil {
		return err
	}
	defer closePublishers()

	signer, err := payment.NewIntentSigner(cfg.Payment.IntentSecret, cfg.Payment.IntentTTL)
	if err != nil {
		return err
	}
	webhook, err := payment.NewWebhook(cfg.Payment.WebhookSecret, cfg.Payment.WebhookTolerance, signer)
	if err != nil {
		return err
	}
	gateway := payment.NewLocalGateway(cfg.Payment.BaseURL, cfg.Payment.Currency, webhook)

	service := bidding.NewBiddingService(store,
		bidding.WithGateway(gateway, signer),
		bidding.WithPublisher(publisher),
		bidding.WithRetryPolicy(bidding.RetryPolicy{
			MaxAttempts: cfg.Settlement.MaxAttempts,
			BaseDelay:   cfg.Settlement.BaseDelay,
			MaxDelay:    cfg.Settlement.MaxDelay,
		}),
		bidding.WithAmountVerification(cfg.Payment.VerifyAmount),
		bidding.WithPublishTimeout(cfg.Settlement.PublishTimeout),
	)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.SetupRouter(server.Dependencies{
		Service:  service,
		Webhook:  webhook,
		Hub:      hub,
		Checkout: gateway,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	utils.Info("Starting auction server", map[string]any{"addr": cfg.Addr(), "driver": cfg.Database.Driver})
	fmt.Fprintf(cmd.OutOrStdout(), "Starting auction server on %s...\n", cfg.Addr())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	utils.Info("Shutting down auction server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// buildPublisher wires the change feed. With Redis configured, events go through Redis and come
// back into the local hub via the relay, so every instance serves every event exactly once.
func buildPublisher(ctx context.Context, cfg config.Config, hub *notify.Hub) (notify.Publisher, func(), error) {
	var publishers notify.Multi
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Redis.Addr != "" {
		client, err := notify.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = client.Close() })
		publishers = append(publishers, notify.NewRedisPublisher(client))

		go func() {
			if err := notify.RelayRedis(ctx, client, hub); err != nil && !errors.Is(err, context.Canceled) {
				utils.Error("Redis change feed relay stopped", map[string]any{"error": err.Error()})
			}
		}()
		utils.Info("Change feed uses Redis", map[string]any{"addr": cfg.Redis.Addr})
	} else {
		publishers = append(publishers, hub)
	}

	if cfg.NATS.URL != "" {
		archive, err := notify.NewNATSPublisher(ctx, cfg.NATS.URL)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() { _ = archive.Close() })
		publishers = append(publishers, archive)
		utils.Info("Events archived to NATS JetStream", map[string]any{"url": cfg.NATS.URL, "stream": notify.StreamName})
	}

	return publishers, closeAll, nil
}
