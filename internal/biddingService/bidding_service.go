package bidding

import (
	"claimed-world/internal/biddingerrors"
	"claimed-world/internal/models"
	"claimed-world/internal/notify"
	"claimed-world/internal/payment"
	"claimed-world/internal/repository"
	"claimed-world/utils"
	"context"
	"errors"
	"fmt"
	"time"
)

// BiddingService defines the business logic for auction bidding and settlement
type BiddingService struct {
	repo         repository.AuctionDB
	gateway      payment.Gateway
	signer       *payment.IntentSigner
	publisher    notify.Publisher
	locks        *itemLocks
	retry        RetryPolicy
	verifyAmount bool
	publishWait  time.Duration
	now          func() time.Time
}

// DefaultPublishTimeout bounds how long a change event may hold up the settlement that produced it
const DefaultPublishTimeout = 2 * time.Second

// Option configures a BiddingService
type Option func(*BiddingService)

// WithGateway sets the payment gateway and the signer for intent tokens
func WithGateway(gateway payment.Gateway, signer *payment.IntentSigner) Option {
	return func(s *BiddingService) {
		s.gateway = gateway
		s.signer = signer
	}
}

// WithPublisher sets where change events go
func WithPublisher(publisher notify.Publisher) Option {
	return func(s *BiddingService) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithRetryPolicy sets the settlement retry policy for transient storage failures
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *BiddingService) {
		s.retry = policy.normalized()
	}
}

// WithAmountVerification makes settlement check the charged amount with the gateway before committing
func WithAmountVerification(enabled bool) Option {
	return func(s *BiddingService) {
		s.verifyAmount = enabled
	}
}

// WithPublishTimeout bounds each change event publish
func WithPublishTimeout(d time.Duration) Option {
	return func(s *BiddingService) {
		if d > 0 {
			s.publishWait = d
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *BiddingService) {
		s.now = now
	}
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:        repo,
		publisher:   notify.Nop{},
		locks:       newItemLocks(),
		retry:       DefaultRetryPolicy,
		publishWait: DefaultPublishTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision the ledger stores
func (s *BiddingService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ProposeBid checks a bid against the current price floor and opens a payment session for it.
// Nothing is written to the ledger: the authoritative check happens again at settlement.
func (s *BiddingService) ProposeBid(ctx context.Context, itemCode string, amount int64, bidderID string, custom models.Customization) (models.BidIntent, error) {
	if itemCode == "" || bidderID == "" {
		return models.BidIntent{}, fmt.Errorf("service: %w - missing itemID or userID", biddingerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return models.BidIntent{}, fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}
	if err := custom.Validate(); err != nil {
		return models.BidIntent{}, fmt.Errorf("service: %w - %v", biddingerrors.ErrInvalidCustomization, err)
	}

	item, err := s.repo.GetItem(ctx, itemCode)
	if err != nil {
		return models.BidIntent{}, fmt.Errorf("service: failed to load item %s: %w", itemCode, err)
	}
	if amount <= item.CurrentAmount {
		return models.BidIntent{}, fmt.Errorf("service: %w - minimum bid is %d", biddingerrors.ErrBidTooLow, item.MinimumBid())
	}

	if s.gateway == nil || s.signer == nil {
		return models.BidIntent{}, errors.New("service: payment gateway not configured")
	}
	token, expiresAt, err := s.signer.Sign(itemCode, bidderID, amount)
	if err != nil {
		return models.BidIntent{}, fmt.Errorf("service: failed to sign intent: %w", err)
	}

	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		ItemCode:  item.Code,
		ItemName:  item.Name,
		BidderID:  bidderID,
		Amount:    amount,
		Token:     token,
		Message:   custom.Message,
		Color:     custom.Color.String(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return models.BidIntent{}, fmt.Errorf("service: failed to create payment session for item %s: %w", itemCode, err)
	}

	intent := models.BidIntent{
		IntentID:    utils.GenerateID(),
		ItemCode:    itemCode,
		BidderID:    bidderID,
		Amount:      amount,
		MinimumBid:  item.MinimumBid(),
		Token:       token,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		ExpiresAt:   expiresAt,
	}

	utils.Info("Bid intent issued", map[string]any{
		"intent_id":  intent.IntentID,
		"item_id":    itemCode,
		"user_id":    bidderID,
		"amount":     amount,
		"session_id": session.ID,
	})
	return intent, nil
}

// MinimumBid returns the smallest amount that currently wins the item
func (s *BiddingService) MinimumBid(ctx context.Context, itemCode string) (int64, error) {
	item, err := s.GetItem(ctx, itemCode)
	if err != nil {
		return 0, err
	}
	return item.MinimumBid(), nil
}

// GetItem returns an item with its current winner projection
func (s *BiddingService) GetItem(ctx context.Context, itemCode string) (models.Item, error) {
	if itemCode == "" {
		return models.Item{}, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrInvalidBid)
	}

	item, err := s.repo.GetItem(ctx, itemCode)
	if err != nil {
		return models.Item{}, fmt.Errorf("service: failed to get item %s: %w", itemCode, err)
	}
	return item, nil
}

// ListItems returns every item with its projection, used to color the map
func (s *BiddingService) ListItems(ctx context.Context) ([]models.Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list items: %w", err)
	}
	return items, nil
}

// CurrentWinner returns the projected winner of an item
func (s *BiddingService) CurrentWinner(ctx context.Context, itemCode string) (models.Winner, error) {
	item, err := s.GetItem(ctx, itemCode)
	if err != nil {
		return models.Winner{}, err
	}
	if !item.HasWinner() {
		return models.Winner{}, fmt.Errorf("service: no winner for item %s: %w", itemCode, biddingerrors.ErrNoBids)
	}
	return winnerOf(item), nil
}

func winnerOf(item models.Item) models.Winner {
	return models.Winner{
		ItemCode:      item.Code,
		BidID:         item.CurrentBidID,
		BidderID:      item.CurrentBidderID,
		Amount:        item.CurrentAmount,
		Customization: item.Customization,
	}
}

// GetBidsForItem returns the bid history of an item, highest amount first
func (s *BiddingService) GetBidsForItem(ctx context.Context, itemCode string, limit int) ([]models.Bid, error) {
	if itemCode == "" {
		return nil, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrInvalidBid)
	}
	if limit < 0 {
		return nil, fmt.Errorf("service: %w - negative limit", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByItem(ctx, itemCode, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for item %s: %w", itemCode, err)
	}
	return bids, nil
}

// GetBidsByUser returns all bids of a user, newest first
func (s *BiddingService) GetBidsByUser(ctx context.Context, userID string) ([]models.Bid, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for user %s: %w", userID, err)
	}
	return bids, nil
}

// GetItemsByUser returns the items a user currently owns
func (s *BiddingService) GetItemsByUser(ctx context.Context, userID string) ([]models.Item, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	items, err := s.repo.GetItemsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get items for user %s: %w", userID, err)
	}
	return items, nil
}

// TopBidders returns the leaderboard. A limit of 0 returns every bidder.
func (s *BiddingService) TopBidders(ctx context.Context, limit int) ([]models.BidderRanking, error) {
	if limit < 0 {
		return nil, fmt.Errorf("service: %w - negative limit", biddingerrors.ErrInvalidBid)
	}

	rankings, err := s.repo.TopBidders(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to compute rankings: %w", err)
	}
	return rankings, nil
}

// UpdateCustomization lets the current winner change the message and color shown on their item.
// It does not take the item lock: the store only touches the caller's own winning row.
func (s *BiddingService) UpdateCustomization(ctx context.Context, bidID, bidderID string, custom models.Customization) (models.Bid, error) {
	if bidID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing bidID or userID", biddingerrors.ErrInvalidBid)
	}
	if err := custom.Validate(); err != nil {
		return models.Bid{}, fmt.Errorf("service: %w - %v", biddingerrors.ErrInvalidCustomization, err)
	}

	bid, err := s.repo.UpdateCustomization(ctx, bidID, bidderID, custom)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to update customization of bid %s: %w", bidID, err)
	}

	s.publish(ctx, notify.CustomizedEvent(bid, s.timestamp()))
	return bid, nil
}

// RecomputeWinner derives the winner of an item from the ledger alone
func (s *BiddingService) RecomputeWinner(ctx context.Context, itemCode string) (models.Winner, error) {
	bid, err := s.repo.GetWinningBid(ctx, itemCode)
	if err != nil {
		return models.Winner{}, fmt.Errorf("service: failed to read winning bid of item %s: %w", itemCode, err)
	}
	return models.Winner{
		ItemCode:      bid.ItemCode,
		BidID:         bid.BidID,
		BidderID:      bid.BidderID,
		Amount:        bid.Amount,
		Customization: bid.Customization,
	}, nil
}

// VerifyProjection compares the item's denormalized winner with the ledger and returns
// ErrProjectionDrift when they disagree
func (s *BiddingService) VerifyProjection(ctx context.Context, itemCode string) error {
	item, err := s.GetItem(ctx, itemCode)
	if err != nil {
		return err
	}

	fromLedger, err := s.RecomputeWinner(ctx, itemCode)
	if errors.Is(err, biddingerrors.ErrNoBids) {
		if item.HasWinner() || item.CurrentAmount != 0 {
			return fmt.Errorf("service: item %s projects winner %s but ledger has none: %w", itemCode, item.CurrentBidID, biddingerrors.ErrProjectionDrift)
		}
		return nil
	}
	if err != nil {
		return err
	}

	if projected := winnerOf(item); projected != fromLedger {
		return fmt.Errorf("service: item %s projects %+v, ledger says %+v: %w", itemCode, projected, fromLedger, biddingerrors.ErrProjectionDrift)
	}

	highest, err := s.repo.GetBidsByItem(ctx, itemCode, 1)
	if err != nil {
		return fmt.Errorf("service: failed to read bid history of item %s: %w", itemCode, err)
	}
	if highest[0].BidID != fromLedger.BidID {
		return fmt.Errorf("service: item %s winning bid %s is not its highest bid %s: %w", itemCode, fromLedger.BidID, highest[0].BidID, biddingerrors.ErrProjectionDrift)
	}
	return nil
}

// VerifyAllProjections runs VerifyProjection for every item and returns the drifted item codes
func (s *BiddingService) VerifyAllProjections(ctx context.Context) ([]string, error) {
	items, err := s.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	var drifted []string
	for _, item := range items {
		err := s.VerifyProjection(ctx, item.Code)
		switch {
		case err == nil:
		case errors.Is(err, biddingerrors.ErrProjectionDrift):
			utils.Error("Projection drift", map[string]any{"item_id": item.Code, "error": err.Error()})
			drifted = append(drifted, item.Code)
		default:
			return drifted, err
		}
	}
	return drifted, nil
}

// publish delivers a change event. Failures are logged only: the ledger is already committed.
// publish detaches from the caller's cancellation but gives up after publishWait, since callers
// may still hold the item lock
func (s *BiddingService) publish(ctx context.Context, ev notify.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishWait)
	defer cancel()

	if err := s.publisher.Publish(ctx, ev); err != nil {
		utils.Warn("Failed to publish change event", map[string]any{
			"type":    ev.Type,
			"item_id": ev.ItemCode,
			"bid_id":  ev.BidID,
			"error":   err.Error(),
		})
	}
}
