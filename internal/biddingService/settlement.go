package bidding

import (
	"claimed-world/internal/biddingerrors"
	"claimed-world/internal/models"
	"claimed-world/internal/notify"
	"claimed-world/internal/payment"
	"claimed-world/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Settle turns a gateway-confirmed payment into either a new winning bid or a discarded attempt.
//
// A confirmation id is settled at most once; later calls replay the recorded outcome with
// Replayed set. Settlements of the same item are serialized by an in-process item lock and by the
// store's version check, so two confirmations can never both win against the same price. Stale
// amounts are recorded as discarded and reported with ErrStaleBid. Transient storage failures are
// retried with backoff and then surfaced; they never turn into a stale outcome.
func (s *BiddingService) Settle(ctx context.Context, req models.SettleRequest) (models.Settlement, error) {
	if err := validateSettleRequest(req); err != nil {
		return models.Settlement{}, err
	}

	var (
		settlement models.Settlement
		attempts   int
		transient  error
	)
	operation := func() error {
		attempts++
		transient = nil
		var err error
		settlement, err = s.settleResolvingConflicts(ctx, req)
		if err == nil {
			return nil
		}
		if !errors.Is(err, biddingerrors.ErrStorageUnavailable) {
			return backoff.Permanent(err)
		}
		transient = err
		return err
	}
	onRetry := func(err error, next time.Duration) {
		utils.Warn("Settlement hit a storage failure, retrying", map[string]any{
			"confirmation_id": req.ConfirmationID,
			"attempt":         attempts,
			"retry_in":        next.String(),
			"error":           err.Error(),
		})
	}

	err := backoff.RetryNotify(operation, s.retry.newBackOff(ctx), onRetry)
	if transient == nil {
		return settlement, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.Settlement{}, fmt.Errorf("service: settlement of %s interrupted: %w", req.ConfirmationID, errors.Join(transient, ctxErr))
	}
	utils.Error("Settlement failed, storage unavailable", map[string]any{
		"confirmation_id": req.ConfirmationID,
		"item_id":         req.ItemCode,
		"attempts":        attempts,
		"error":           transient.Error(),
	})
	return models.Settlement{}, fmt.Errorf("service: settlement of %s gave up after %d attempts: %w", req.ConfirmationID, attempts, transient)
}

// settleResolvingConflicts re-runs settleOnce while another writer keeps moving the item version
func (s *BiddingService) settleResolvingConflicts(ctx context.Context, req models.SettleRequest) (models.Settlement, error) {
	for conflicts := 0; ; conflicts++ {
		settlement, err := s.settleOnce(ctx, req)
		if !errors.Is(err, biddingerrors.ErrVersionConflict) {
			return settlement, err
		}
		if conflicts >= maxConflictRetries {
			utils.Warn("Settlement kept losing version races, giving up", map[string]any{
				"confirmation_id": req.ConfirmationID,
				"item_id":         req.ItemCode,
				"conflicts":       conflicts,
			})
			return models.Settlement{}, err
		}
		utils.Debug("Settlement lost a version race, retrying", map[string]any{
			"confirmation_id": req.ConfirmationID,
			"item_id":         req.ItemCode,
			"conflicts":       conflicts + 1,
		})
	}
}

func validateSettleRequest(req models.SettleRequest) error {
	if req.ConfirmationID == "" {
		return fmt.Errorf("service: %w - missing confirmation ID", biddingerrors.ErrInvalidBid)
	}
	if req.ItemCode == "" || req.BidderID == "" {
		return fmt.Errorf("service: %w - missing itemID or userID", biddingerrors.ErrInvalidBid)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}
	if err := req.Customization.Validate(); err != nil {
		return fmt.Errorf("service: %w - %v", biddingerrors.ErrInvalidCustomization, err)
	}
	return nil
}

// settleOnce runs one Pending -> Committed | Discarded transition
func (s *BiddingService) settleOnce(ctx context.Context, req models.SettleRequest) (models.Settlement, error) {
	if settlement, done, err := s.replay(ctx, req.ConfirmationID); done {
		return settlement, err
	}

	if req.ChargedMinorUnits != nil && *req.ChargedMinorUnits != payment.ToMinorUnits(req.Amount) {
		return s.discardMismatch(ctx, req, fmt.Sprintf("charged %d minor units, bid %d", *req.ChargedMinorUnits, req.Amount))
	}

	if s.verifyAmount {
		// outside the item lock so a slow gateway does not stall other settlements of the item
		charged, err := s.chargedAmount(ctx, req.ConfirmationID)
		if err != nil {
			return models.Settlement{}, err
		}
		if charged != req.Amount {
			return s.discardMismatch(ctx, req, fmt.Sprintf("gateway charged %d, bid %d", charged, req.Amount))
		}
	}

	unlock := s.locks.lock(req.ItemCode)
	defer unlock()

	// a concurrent delivery of the same confirmation may have finished while we waited
	if settlement, done, err := s.replay(ctx, req.ConfirmationID); done {
		return settlement, err
	}

	item, err := s.repo.GetItem(ctx, req.ItemCode)
	if err != nil {
		return models.Settlement{}, fmt.Errorf("service: failed to load item %s: %w", req.ItemCode, err)
	}

	if req.Amount <= item.CurrentAmount {
		return s.discard(ctx, req, item, models.ReasonStaleBid,
			fmt.Errorf("service: %w - amount %d does not exceed current %d", biddingerrors.ErrStaleBid, req.Amount, item.CurrentAmount))
	}

	now := s.timestamp()
	bid := models.Bid{
		BidID:          utils.GenerateOrderedID(),
		ItemCode:       req.ItemCode,
		BidderID:       req.BidderID,
		Amount:         req.Amount,
		CreatedAt:      now,
		IsWinning:      true,
		Customization:  req.Customization,
		ConfirmationID: req.ConfirmationID,
	}
	confirmation := models.Confirmation{
		ConfirmationID: req.ConfirmationID,
		ItemCode:       req.ItemCode,
		BidderID:       req.BidderID,
		Amount:         req.Amount,
		Outcome:        models.OutcomeCommitted,
		BidID:          bid.BidID,
		ProcessedAt:    now,
	}

	if err := s.repo.CommitBid(ctx, models.Commit{
		Bid:             bid,
		ExpectedVersion: item.Version,
		PreviousBidID:   item.CurrentBidID,
		Confirmation:    confirmation,
	}); err != nil {
		return models.Settlement{}, fmt.Errorf("service: failed to commit bid for item %s: %w", req.ItemCode, err)
	}

	settlement := models.Settlement{
		Confirmation:     confirmation,
		PreviousBidderID: item.CurrentBidderID,
		PreviousAmount:   item.CurrentAmount,
	}

	utils.Info("Bid settled", map[string]any{
		"confirmation_id":  req.ConfirmationID,
		"item_id":          req.ItemCode,
		"user_id":          req.BidderID,
		"amount":           req.Amount,
		"bid_id":           bid.BidID,
		"previous_user_id": item.CurrentBidderID,
		"previous_amount":  item.CurrentAmount,
	})

	// still under the item lock so subscribers see events in settlement order
	s.publish(ctx, notify.SettledEvent(settlement, bid.Customization))
	return settlement, nil
}

// replay returns the recorded outcome when the confirmation was already settled
func (s *BiddingService) replay(ctx context.Context, confirmationID string) (models.Settlement, bool, error) {
	c, err := s.repo.GetConfirmation(ctx, confirmationID)
	if errors.Is(err, biddingerrors.ErrConfirmationNotFound) {
		return models.Settlement{}, false, nil
	}
	if err != nil {
		return models.Settlement{}, true, fmt.Errorf("service: failed to look up confirmation %s: %w", confirmationID, err)
	}

	utils.Info("Confirmation replayed", map[string]any{
		"confirmation_id": confirmationID,
		"outcome":         c.Outcome,
	})

	settlement := models.Settlement{Confirmation: c, Replayed: true}
	if c.Outcome == models.OutcomeCommitted {
		return settlement, true, nil
	}
	return settlement, true, fmt.Errorf("service: confirmation %s was discarded: %w", confirmationID, discardCause(c.Reason))
}

func discardCause(reason string) error {
	if reason == models.ReasonAmountMismatch {
		return biddingerrors.ErrAmountMismatch
	}
	return biddingerrors.ErrStaleBid
}

// discard records a rejected confirmation so replays return the same outcome, then reports cause
func (s *BiddingService) discard(ctx context.Context, req models.SettleRequest, item models.Item, reason string, cause error) (models.Settlement, error) {
	confirmation := models.Confirmation{
		ConfirmationID: req.ConfirmationID,
		ItemCode:       req.ItemCode,
		BidderID:       req.BidderID,
		Amount:         req.Amount,
		Outcome:        models.OutcomeDiscarded,
		Reason:         reason,
		ProcessedAt:    s.timestamp(),
	}
	if err := s.repo.RecordDiscard(ctx, confirmation); err != nil {
		return models.Settlement{}, fmt.Errorf("service: failed to record discarded confirmation %s: %w", req.ConfirmationID, err)
	}

	utils.Info("Settlement discarded", map[string]any{
		"confirmation_id": req.ConfirmationID,
		"item_id":         req.ItemCode,
		"user_id":         req.BidderID,
		"amount":          req.Amount,
		"current_amount":  item.CurrentAmount,
		"reason":          reason,
	})

	return models.Settlement{
		Confirmation:     confirmation,
		PreviousBidderID: item.CurrentBidderID,
		PreviousAmount:   item.CurrentAmount,
	}, cause
}

// discardMismatch records a confirmation whose charge differs from the bid it pays for
func (s *BiddingService) discardMismatch(ctx context.Context, req models.SettleRequest, detail string) (models.Settlement, error) {
	item, err := s.repo.GetItem(ctx, req.ItemCode)
	if err != nil {
		return models.Settlement{}, fmt.Errorf("service: failed to load item %s: %w", req.ItemCode, err)
	}
	return s.discard(ctx, req, item, models.ReasonAmountMismatch,
		fmt.Errorf("service: %w - %s", biddingerrors.ErrAmountMismatch, detail))
}

// chargedAmount asks the gateway what was actually charged. Gateway failures are transient: the
// gateway will redeliver the confirmation.
func (s *BiddingService) chargedAmount(ctx context.Context, confirmationID string) (int64, error) {
	if s.gateway == nil {
		return 0, errors.New("service: amount verification needs a payment gateway")
	}
	p, err := s.gateway.LookupPayment(ctx, confirmationID)
	if err != nil {
		return 0, fmt.Errorf("service: %w - payment lookup for %s failed: %v", biddingerrors.ErrStorageUnavailable, confirmationID, err)
	}
	amount, err := p.Amount()
	if err != nil {
		return 0, fmt.Errorf("service: payment %s: %w", confirmationID, err)
	}
	return amount, nil
}
