package repository

//go:generate mockgen -destination=mock_repository.go -package=repository claimed-world/internal/repository AuctionDB

import (
	"claimed-world/internal/biddingerrors"
	model "claimed-world/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// AuctionDB defines the bid ledger storage interface for the auction system
type AuctionDB interface {
	SeedItems(ctx context.Context, items []model.Item) error
	GetItem(ctx context.Context, itemCode string) (model.Item, error)
	ListItems(ctx context.Context) ([]model.Item, error)

	GetConfirmation(ctx context.Context, confirmationID string) (model.Confirmation, error)
	CommitBid(ctx context.Context, commit model.Commit) error
	RecordDiscard(ctx context.Context, confirmation model.Confirmation) error

	GetBid(ctx context.Context, bidID string) (model.Bid, error)
	GetBidsByItem(ctx context.Context, itemCode string, limit int) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, itemCode string) (model.Bid, error)
	GetBidsByUser(ctx context.Context, userID string) ([]model.Bid, error)
	GetItemsByUser(ctx context.Context, userID string) ([]model.Item, error)
	UpdateCustomization(ctx context.Context, bidID, bidderID string, c model.Customization) (model.Bid, error)
	TopBidders(ctx context.Context, limit int) ([]model.BidderRanking, error)
}

type bidRef struct {
	itemCode string
	index    int
}

type bidderTotals struct {
	total     int64
	owned     int
	items     map[string]struct{}
	reachedAt time.Time
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu            sync.RWMutex
	items         map[string]model.Item         // key: itemCode -> value: item with projection
	bids          map[string][]model.Bid        // key: itemCode -> value: bids in settlement order
	bidIndex      map[string]bidRef             // key: bidID
	userBids      map[string][]bidRef           // key: userID
	confirmations map[string]model.Confirmation // key: confirmationID
	bidders       map[string]*bidderTotals      // key: userID -> running aggregates
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items:         make(map[string]model.Item),
		bids:          make(map[string][]model.Bid),
		bidIndex:      make(map[string]bidRef),
		userBids:      make(map[string][]bidRef),
		confirmations: make(map[string]model.Confirmation),
		bidders:       make(map[string]*bidderTotals),
	}
}

// AddItem adds an item to the repository, replacing any existing one. Intended for seeding and tests.
func (r *MemoryRepo) AddItem(item model.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.Code] = item
}

// SeedItems inserts items that do not exist yet. Existing items keep their projection.
func (r *MemoryRepo) SeedItems(_ context.Context, items []model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if item.Code == "" {
			return fmt.Errorf("seed items: %w - empty item code", biddingerrors.ErrInvalidBid)
		}
		if _, ok := r.items[item.Code]; ok {
			continue
		}
		r.items[item.Code] = model.Item{Code: item.Code, Name: item.Name}
	}
	return nil
}

// GetItem returns an item with its winner projection
func (r *MemoryRepo) GetItem(_ context.Context, itemCode string) (model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemCode]
	if !ok {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemCode, biddingerrors.ErrItemNotFound)
	}
	return item, nil
}

// ListItems returns all items ordered by current amount, highest first
func (r *MemoryRepo) ListItems(_ context.Context) ([]model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.Item, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CurrentAmount != items[j].CurrentAmount {
			return items[i].CurrentAmount > items[j].CurrentAmount
		}
		return items[i].Code < items[j].Code
	})
	return items, nil
}

// GetConfirmation returns the recorded outcome of a confirmation id
func (r *MemoryRepo) GetConfirmation(_ context.Context, confirmationID string) (model.Confirmation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.confirmations[confirmationID]
	if !ok {
		return model.Confirmation{}, fmt.Errorf("get confirmation %s: %w", confirmationID, biddingerrors.ErrConfirmationNotFound)
	}
	return c, nil
}

// CommitBid atomically appends a winning bid, flips the previous winner and updates the item projection.
// It fails with ErrVersionConflict when the item or the confirmation changed since the caller read them.
func (r *MemoryRepo) CommitBid(_ context.Context, commit model.Commit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bid := commit.Bid
	item, ok := r.items[bid.ItemCode]
	if !ok {
		return fmt.Errorf("commit bid for item %s: %w", bid.ItemCode, biddingerrors.ErrItemNotFound)
	}
	if item.Version != commit.ExpectedVersion || item.CurrentBidID != commit.PreviousBidID {
		return fmt.Errorf("commit bid for item %s at version %d: %w", bid.ItemCode, commit.ExpectedVersion, biddingerrors.ErrVersionConflict)
	}
	if _, ok := r.confirmations[commit.Confirmation.ConfirmationID]; ok {
		return fmt.Errorf("commit confirmation %s: %w", commit.Confirmation.ConfirmationID, biddingerrors.ErrVersionConflict)
	}
	if _, ok := r.bidIndex[bid.BidID]; ok {
		return fmt.Errorf("commit bid %s: %w", bid.BidID, biddingerrors.ErrVersionConflict)
	}

	if commit.PreviousBidID != "" {
		prev := r.bidIndex[commit.PreviousBidID]
		r.bids[prev.itemCode][prev.index].IsWinning = false
		if totals := r.bidders[item.CurrentBidderID]; totals != nil {
			totals.owned--
		}
	}

	bid.IsWinning = true
	ref := bidRef{itemCode: bid.ItemCode, index: len(r.bids[bid.ItemCode])}
	r.bids[bid.ItemCode] = append(r.bids[bid.ItemCode], bid)
	r.bidIndex[bid.BidID] = ref
	r.userBids[bid.BidderID] = append(r.userBids[bid.BidderID], ref)

	totals := r.bidders[bid.BidderID]
	if totals == nil {
		totals = &bidderTotals{items: make(map[string]struct{})}
		r.bidders[bid.BidderID] = totals
	}
	totals.total += bid.Amount
	totals.owned++
	totals.items[bid.ItemCode] = struct{}{}
	totals.reachedAt = bid.CreatedAt

	item.CurrentAmount = bid.Amount
	item.CurrentBidderID = bid.BidderID
	item.CurrentBidID = bid.BidID
	item.Customization = bid.Customization
	item.Version++
	r.items[bid.ItemCode] = item

	r.confirmations[commit.Confirmation.ConfirmationID] = commit.Confirmation
	return nil
}

// RecordDiscard stores a discarded confirmation so replays return the same outcome
func (r *MemoryRepo) RecordDiscard(_ context.Context, c model.Confirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.confirmations[c.ConfirmationID]; ok {
		return fmt.Errorf("record discard %s: %w", c.ConfirmationID, biddingerrors.ErrVersionConflict)
	}
	r.confirmations[c.ConfirmationID] = c
	return nil
}

// GetBid returns a single bid by id
func (r *MemoryRepo) GetBid(_ context.Context, bidID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.bidIndex[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	return r.bids[ref.itemCode][ref.index], nil
}

// GetBidsByItem returns bids for an item, highest amount first. A limit <= 0 returns all bids.
func (r *MemoryRepo) GetBidsByItem(_ context.Context, itemCode string, limit int) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[itemCode]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for item %s: %w", itemCode, biddingerrors.ErrNoBids)
	}

	// accepted amounts strictly increase, so reverse settlement order is amount order
	n := len(bids)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Bid, 0, n)
	for i := len(bids) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, bids[i])
	}
	return out, nil
}

// GetWinningBid returns the bid flagged as winning for an item, read from the ledger rather than the projection
func (r *MemoryRepo) GetWinningBid(_ context.Context, itemCode string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bids[itemCode] {
		if b.IsWinning {
			return b, nil
		}
	}
	return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemCode, biddingerrors.ErrNoBids)
}

// GetBidsByUser returns all bids of a user, newest first
func (r *MemoryRepo) GetBidsByUser(_ context.Context, userID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs, ok := r.userBids[userID]
	if !ok || len(refs) == 0 {
		return nil, fmt.Errorf("get bids for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}

	bids := make([]model.Bid, 0, len(refs))
	for i := len(refs) - 1; i >= 0; i-- {
		bids = append(bids, r.bids[refs[i].itemCode][refs[i].index])
	}
	return bids, nil
}

// GetItemsByUser returns the items a user currently owns
func (r *MemoryRepo) GetItemsByUser(_ context.Context, userID string) ([]model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.userBids[userID]; !ok {
		return nil, fmt.Errorf("get items for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}

	items := make([]model.Item, 0)
	for _, item := range r.items {
		if item.CurrentBidderID == userID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	return items, nil
}

// UpdateCustomization changes message and color of the caller's own winning bid and mirrors it on the item
func (r *MemoryRepo) UpdateCustomization(_ context.Context, bidID, bidderID string, c model.Customization) (model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.bidIndex[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("update customization of bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	bid := &r.bids[ref.itemCode][ref.index]
	if bid.BidderID != bidderID || !bid.IsWinning {
		return model.Bid{}, fmt.Errorf("update customization of bid %s: %w", bidID, biddingerrors.ErrNotAuthorized)
	}

	bid.Customization = c
	item := r.items[ref.itemCode]
	item.Customization = c
	r.items[ref.itemCode] = item
	return *bid, nil
}

// TopBidders returns the leaderboard from the running per-bidder aggregates
func (r *MemoryRepo) TopBidders(_ context.Context, limit int) ([]model.BidderRanking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]model.BidderRanking, 0, len(r.bidders))
	for userID, totals := range r.bidders {
		rows = append(rows, model.BidderRanking{
			BidderID:   userID,
			TotalSpend: totals.total,
			ItemsOwned: totals.owned,
			ItemCount:  len(totals.items),
			ReachedAt:  totals.reachedAt,
		})
	}
	SortRankings(rows)

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// SortRankings orders rows by total spend, then by who reached that total first, then by bidder id.
func SortRankings(rows []model.BidderRanking) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TotalSpend != b.TotalSpend {
			return a.TotalSpend > b.TotalSpend
		}
		if !a.ReachedAt.Equal(b.ReachedAt) {
			return a.ReachedAt.Before(b.ReachedAt)
		}
		return a.BidderID < b.BidderID
	})
}
