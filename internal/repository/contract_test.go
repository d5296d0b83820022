package repository

import (
	"claimed-world/internal/biddingerrors"
	model "claimed-world/internal/models"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// settleBid commits a winning bid on top of the item's current state, the way the settlement processor does
func settleBid(t *testing.T, db AuctionDB, itemCode, bidID, bidderID string, amount int64, at time.Time) model.Bid {
	t.Helper()
	ctx := context.Background()

	item, err := db.GetItem(ctx, itemCode)
	require.NoError(t, err)

	bid := model.Bid{
		BidID:          bidID,
		ItemCode:       itemCode,
		BidderID:       bidderID,
		Amount:         amount,
		CreatedAt:      at,
		IsWinning:      true,
		Customization:  model.Customization{Color: model.DefaultColor},
		ConfirmationID: "cs_" + bidID,
	}
	err = db.CommitBid(ctx, model.Commit{
		Bid:             bid,
		ExpectedVersion: item.Version,
		PreviousBidID:   item.CurrentBidID,
		Confirmation: model.Confirmation{
			ConfirmationID: bid.ConfirmationID,
			ItemCode:       itemCode,
			BidderID:       bidderID,
			Amount:         amount,
			Outcome:        model.OutcomeCommitted,
			BidID:          bidID,
			ProcessedAt:    at,
		},
	})
	require.NoError(t, err)
	return bid
}

func seedCountries(t *testing.T, db AuctionDB) {
	t.Helper()
	require.NoError(t, db.SeedItems(context.Background(), []model.Item{
		{Code: "FR", Name: "France"},
		{Code: "DE", Name: "Germany"},
		{Code: "IT", Name: "Italy"},
	}))
}

// testAuctionDB runs the behaviour every AuctionDB implementation must share
func testAuctionDB(t *testing.T, newDB func(t *testing.T) AuctionDB) {
	t.Run("seed_items_keeps_existing_projection", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)
		settleBid(t, db, "FR", "bid-1", "alice", 10, baseTime)

		require.NoError(t, db.SeedItems(ctx, []model.Item{{Code: "FR", Name: "France"}, {Code: "ES", Name: "Spain"}}))

		item, err := db.GetItem(ctx, "FR")
		require.NoError(t, err)
		require.Equal(t, int64(10), item.CurrentAmount)
		require.Equal(t, "alice", item.CurrentBidderID)

		items, err := db.ListItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 4)
		require.Equal(t, "FR", items[0].Code)

		require.ErrorIs(t, db.SeedItems(ctx, []model.Item{{Name: "Nowhere"}}), biddingerrors.ErrInvalidBid)
	})

	t.Run("get_item_not_found", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		_, err := db.GetItem(context.Background(), "XX")
		require.ErrorIs(t, err, biddingerrors.ErrItemNotFound)
	})

	t.Run("commit_flips_previous_winner", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)

		first := settleBid(t, db, "FR", "bid-1", "alice", 10, baseTime)
		second := settleBid(t, db, "FR", "bid-2", "bob", 15, baseTime.Add(time.Second))

		item, err := db.GetItem(ctx, "FR")
		require.NoError(t, err)
		require.Equal(t, int64(15), item.CurrentAmount)
		require.Equal(t, "bob", item.CurrentBidderID)
		require.Equal(t, second.BidID, item.CurrentBidID)
		require.Equal(t, int64(2), item.Version)

		winning, err := db.GetWinningBid(ctx, "FR")
		require.NoError(t, err)
		require.Equal(t, second, winning)

		old, err := db.GetBid(ctx, first.BidID)
		require.NoError(t, err)
		require.False(t, old.IsWinning)

		bids, err := db.GetBidsByItem(ctx, "FR", 0)
		require.NoError(t, err)
		require.Len(t, bids, 2)
		require.Equal(t, []int64{15, 10}, []int64{bids[0].Amount, bids[1].Amount})

		limited, err := db.GetBidsByItem(ctx, "FR", 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		require.Equal(t, second.BidID, limited[0].BidID)

		c, err := db.GetConfirmation(ctx, second.ConfirmationID)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeCommitted, c.Outcome)
		require.Equal(t, second.BidID, c.BidID)
	})

	t.Run("commit_rejects_stale_version", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)
		settleBid(t, db, "FR", "bid-1", "alice", 10, baseTime)

		err := db.CommitBid(ctx, model.Commit{
			Bid:             model.Bid{BidID: "bid-2", ItemCode: "FR", BidderID: "bob", Amount: 12, CreatedAt: baseTime, ConfirmationID: "cs_2"},
			ExpectedVersion: 0,
			Confirmation:    model.Confirmation{ConfirmationID: "cs_2", ItemCode: "FR", Outcome: model.OutcomeCommitted, ProcessedAt: baseTime},
		})
		require.ErrorIs(t, err, biddingerrors.ErrVersionConflict)

		item, err := db.GetItem(ctx, "FR")
		require.NoError(t, err)
		require.Equal(t, "alice", item.CurrentBidderID)

		_, err = db.GetBid(ctx, "bid-2")
		require.ErrorIs(t, err, biddingerrors.ErrBidNotFound)
		_, err = db.GetConfirmation(ctx, "cs_2")
		require.ErrorIs(t, err, biddingerrors.ErrConfirmationNotFound)
	})

	t.Run("commit_rejects_recorded_confirmation", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)
		settleBid(t, db, "FR", "bid-1", "alice", 10, baseTime)

		item, err := db.GetItem(ctx, "FR")
		require.NoError(t, err)
		err = db.CommitBid(ctx, model.Commit{
			Bid:             model.Bid{BidID: "bid-2", ItemCode: "FR", BidderID: "alice", Amount: 20, CreatedAt: baseTime, ConfirmationID: "cs_bid-1"},
			ExpectedVersion: item.Version,
			PreviousBidID:   item.CurrentBidID,
			Confirmation:    model.Confirmation{ConfirmationID: "cs_bid-1", ItemCode: "FR", Outcome: model.OutcomeCommitted, ProcessedAt: baseTime},
		})
		require.ErrorIs(t, err, biddingerrors.ErrVersionConflict)

		item, err = db.GetItem(ctx, "FR")
		require.NoError(t, err)
		require.Equal(t, int64(10), item.CurrentAmount)
	})

	t.Run("commit_unknown_item", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		err := db.CommitBid(context.Background(), model.Commit{
			Bid:          model.Bid{BidID: "bid-1", ItemCode: "XX", BidderID: "alice", Amount: 5, CreatedAt: baseTime, ConfirmationID: "cs_1"},
			Confirmation: model.Confirmation{ConfirmationID: "cs_1", ItemCode: "XX", Outcome: model.OutcomeCommitted, ProcessedAt: baseTime},
		})
		require.ErrorIs(t, err, biddingerrors.ErrItemNotFound)
	})

	t.Run("record_discard_once", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)

		discard := model.Confirmation{
			ConfirmationID: "cs_late",
			ItemCode:       "FR",
			BidderID:       "carol",
			Amount:         3,
			Outcome:        model.OutcomeDiscarded,
			Reason:         model.ReasonStaleBid,
			ProcessedAt:    baseTime,
		}
		require.NoError(t, db.RecordDiscard(ctx, discard))
		require.ErrorIs(t, db.RecordDiscard(ctx, discard), biddingerrors.ErrVersionConflict)

		got, err := db.GetConfirmation(ctx, "cs_late")
		require.NoError(t, err)
		require.Equal(t, discard, got)

		_, err = db.GetBidsByItem(ctx, "FR", 10)
		require.ErrorIs(t, err, biddingerrors.ErrNoBids)
		_, err = db.GetWinningBid(ctx, "FR")
		require.ErrorIs(t, err, biddingerrors.ErrNoBids)
	})

	t.Run("user_queries", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)

		settleBid(t, db, "FR", "bid-1", "alice", 10, baseTime)
		settleBid(t, db, "DE", "bid-2", "alice", 7, baseTime.Add(time.Second))
		settleBid(t, db, "FR", "bid-3", "bob", 11, baseTime.Add(2*time.Second))

		bids, err := db.GetBidsByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, bids, 2)
		require.Equal(t, "bid-2", bids[0].BidID)
		require.Equal(t, "bid-1", bids[1].BidID)

		items, err := db.GetItemsByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, "DE", items[0].Code)

		_, err = db.GetBidsByUser(ctx, "nobody")
		require.ErrorIs(t, err, biddingerrors.ErrUserNoBids)
		_, err = db.GetItemsByUser(ctx, "nobody")
		require.ErrorIs(t, err, biddingerrors.ErrUserNoBids)
	})

	t.Run("update_customization", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)

		old := settleBid(t, db, "IT", "bid-1", "alice", 10, baseTime)
		current := settleBid(t, db, "IT", "bid-2", "bob", 20, baseTime.Add(time.Second))
		custom := model.Customization{Message: "ciao", Color: 0x00FF00}

		updated, err := db.UpdateCustomization(ctx, current.BidID, "bob", custom)
		require.NoError(t, err)
		require.Equal(t, custom, updated.Customization)
		require.True(t, updated.IsWinning)

		item, err := db.GetItem(ctx, "IT")
		require.NoError(t, err)
		require.Equal(t, custom, item.Customization)

		_, err = db.UpdateCustomization(ctx, current.BidID, "alice", custom)
		require.ErrorIs(t, err, biddingerrors.ErrNotAuthorized)
		_, err = db.UpdateCustomization(ctx, old.BidID, "alice", custom)
		require.ErrorIs(t, err, biddingerrors.ErrNotAuthorized)
		_, err = db.UpdateCustomization(ctx, "missing", "alice", custom)
		require.ErrorIs(t, err, biddingerrors.ErrBidNotFound)
	})

	t.Run("top_bidders", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)

		// alice reaches 20 before bob does
		settleBid(t, db, "FR", "bid-1", "alice", 10, baseTime)
		settleBid(t, db, "DE", "bid-2", "bob", 5, baseTime.Add(1*time.Second))
		settleBid(t, db, "IT", "bid-3", "alice", 10, baseTime.Add(2*time.Second))
		settleBid(t, db, "DE", "bid-4", "bob", 15, baseTime.Add(3*time.Second))
		settleBid(t, db, "FR", "bid-5", "carol", 11, baseTime.Add(4*time.Second))

		rankings, err := db.TopBidders(ctx, 0)
		require.NoError(t, err)
		require.Len(t, rankings, 3)

		require.Equal(t, model.BidderRanking{BidderID: "alice", TotalSpend: 20, ItemsOwned: 1, ItemCount: 2, ReachedAt: baseTime.Add(2 * time.Second)}, rankings[0])
		require.Equal(t, model.BidderRanking{BidderID: "bob", TotalSpend: 20, ItemsOwned: 1, ItemCount: 1, ReachedAt: baseTime.Add(3 * time.Second)}, rankings[1])
		require.Equal(t, model.BidderRanking{BidderID: "carol", TotalSpend: 11, ItemsOwned: 1, ItemCount: 1, ReachedAt: baseTime.Add(4 * time.Second)}, rankings[2])

		top, err := db.TopBidders(ctx, 1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		require.Equal(t, "alice", top[0].BidderID)
	})

	t.Run("many_sequential_bids_keep_one_winner", func(t *testing.T) {
		t.Parallel()
		db := newDB(t)
		ctx := context.Background()
		seedCountries(t, db)

		for i := 1; i <= 50; i++ {
			settleBid(t, db, "FR", fmt.Sprintf("bid-%d", i), fmt.Sprintf("user-%d", i%7), int64(i), baseTime.Add(time.Duration(i)*time.Millisecond))
		}

		bids, err := db.GetBidsByItem(ctx, "FR", 0)
		require.NoError(t, err)
		require.Len(t, bids, 50)

		winners := 0
		for _, b := range bids {
			if b.IsWinning {
				winners++
				require.Equal(t, int64(50), b.Amount)
			}
		}
		require.Equal(t, 1, winners)
	})
}
