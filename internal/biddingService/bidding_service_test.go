package bidding

import (
	"claimed-world/internal/biddingerrors"
	model "claimed-world/internal/models"
	"claimed-world/internal/notify"
	"claimed-world/internal/payment"
	"claimed-world/internal/repository"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newSigner(t *testing.T) *payment.IntentSigner {
	t.Helper()
	signer, err := payment.NewIntentSigner("intent-secret", time.Minute)
	require.NoError(t, err)
	return signer
}

// Tests ProposeBid
func TestBiddingService_ProposeBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	mockGateway := payment.NewMockGateway(ctrl)
	service := NewBiddingService(mockRepo, WithGateway(mockGateway, newSigner(t)))

	france := model.Item{Code: "FR", Name: "France", CurrentAmount: 10, CurrentBidderID: "alice", CurrentBidID: "bid-1"}

	// Table-driven test cases
	tests := []struct {
		name          string
		itemCode      string
		userID        string
		amount        int64
		custom        model.Customization
		mockSetup     func()
		expectError   bool
		expectedError error
	}{
		{
			name:     "valid_bid",
			itemCode: "FR",
			userID:   "bob",
			amount:   11,
			custom:   model.Customization{Message: "salut", Color: 0x0055A4},
			mockSetup: func() {
				mockRepo.EXPECT().GetItem(gomock.Any(), "FR").Return(france, nil)
				mockGateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
						require.Equal(t, "FR", req.ItemCode)
						require.Equal(t, "France", req.ItemName)
						require.Equal(t, int64(11), req.Amount)
						require.Equal(t, "#0055A4", req.Color)
						require.NotEmpty(t, req.Token)
						return payment.Session{ID: "cs_1", URL: "http://gateway/cs_1"}, nil
					})
			},
		},
		{
			name:     "first_bid_on_free_item",
			itemCode: "DE",
			userID:   "bob",
			amount:   1,
			mockSetup: func() {
				mockRepo.EXPECT().GetItem(gomock.Any(), "DE").Return(model.Item{Code: "DE", Name: "Germany"}, nil)
				mockGateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(payment.Session{ID: "cs_2"}, nil)
			},
		},
		{
			name:          "empty_itemID",
			itemCode:      "",
			userID:        "bob",
			amount:        11,
			mockSetup:     func() {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "empty_userID",
			itemCode:      "FR",
			userID:        "",
			amount:        11,
			mockSetup:     func() {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "zero_amount",
			itemCode:      "FR",
			userID:        "bob",
			amount:        0,
			mockSetup:     func() {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "message_too_long",
			itemCode:      "FR",
			userID:        "bob",
			amount:        11,
			custom:        model.Customization{Message: strings.Repeat("x", 51)},
			mockSetup:     func() {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidCustomization,
		},
		{
			name:     "equal_to_current",
			itemCode: "FR",
			userID:   "bob",
			amount:   10,
			mockSetup: func() {
				mockRepo.EXPECT().GetItem(gomock.Any(), "FR").Return(france, nil)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrBidTooLow,
		},
		{
			name:     "unknown_item",
			itemCode: "XX",
			userID:   "bob",
			amount:   10,
			mockSetup: func() {
				mockRepo.EXPECT().GetItem(gomock.Any(), "XX").Return(model.Item{}, biddingerrors.ErrItemNotFound)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrItemNotFound,
		},
		{
			name:     "gateway_fails",
			itemCode: "FR",
			userID:   "bob",
			amount:   12,
			mockSetup: func() {
				mockRepo.EXPECT().GetItem(gomock.Any(), "FR").Return(france, nil)
				mockGateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(payment.Session{}, errors.New("gateway down"))
			},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			intent, err := service.ProposeBid(context.Background(), tc.itemCode, tc.amount, tc.userID, tc.custom)
			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.ErrorIs(t, err, tc.expectedError)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.itemCode, intent.ItemCode)
			require.Equal(t, tc.userID, intent.BidderID)
			require.Equal(t, tc.amount, intent.Amount)
			require.NotEmpty(t, intent.IntentID)
			require.NotEmpty(t, intent.SessionID)
			require.NotEmpty(t, intent.Token)
		})
	}
}

func TestBiddingService_ProposeBidWithoutGateway(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	repo.AddItem(model.Item{Code: "FR", Name: "France"})
	service := NewBiddingService(repo)

	_, err := service.ProposeBid(context.Background(), "FR", 5, "alice", model.Customization{})
	require.Error(t, err)

	minimum, err := service.MinimumBid(context.Background(), "FR")
	require.NoError(t, err)
	require.Equal(t, int64(1), minimum)
}

// Tests CurrentWinner
func TestBiddingService_CurrentWinner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo)

	custom := model.Customization{Message: "mine", Color: 0xFF0000}
	mockRepo.EXPECT().GetItem(gomock.Any(), "FR").Return(model.Item{
		Code: "FR", CurrentAmount: 15, CurrentBidderID: "bob", CurrentBidID: "bid-2", Customization: custom,
	}, nil)
	winner, err := service.CurrentWinner(context.Background(), "FR")
	require.NoError(t, err)
	require.Equal(t, model.Winner{ItemCode: "FR", BidID: "bid-2", BidderID: "bob", Amount: 15, Customization: custom}, winner)

	mockRepo.EXPECT().GetItem(gomock.Any(), "DE").Return(model.Item{Code: "DE"}, nil)
	_, err = service.CurrentWinner(context.Background(), "DE")
	require.ErrorIs(t, err, biddingerrors.ErrNoBids)

	_, err = service.CurrentWinner(context.Background(), "")
	require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)
}

// Tests the read operations that only validate input and delegate to the repository
func TestBiddingService_Reads(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo)
	ctx := context.Background()

	t.Run("bids_for_item", func(t *testing.T) {
		mockRepo.EXPECT().GetBidsByItem(gomock.Any(), "FR", 10).Return([]model.Bid{{BidID: "bid-1"}}, nil)
		bids, err := service.GetBidsForItem(ctx, "FR", 10)
		require.NoError(t, err)
		require.Len(t, bids, 1)

		mockRepo.EXPECT().GetBidsByItem(gomock.Any(), "DE", 10).Return(nil, biddingerrors.ErrNoBids)
		_, err = service.GetBidsForItem(ctx, "DE", 10)
		require.ErrorIs(t, err, biddingerrors.ErrNoBids)

		_, err = service.GetBidsForItem(ctx, "", 10)
		require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)
		_, err = service.GetBidsForItem(ctx, "FR", -1)
		require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)
	})

	t.Run("bids_by_user", func(t *testing.T) {
		mockRepo.EXPECT().GetBidsByUser(gomock.Any(), "alice").Return([]model.Bid{{BidID: "bid-1"}, {BidID: "bid-2"}}, nil)
		bids, err := service.GetBidsByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, bids, 2)

		_, err = service.GetBidsByUser(ctx, "")
		require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)
	})

	t.Run("items_by_user", func(t *testing.T) {
		mockRepo.EXPECT().GetItemsByUser(gomock.Any(), "ghost").Return(nil, biddingerrors.ErrUserNoBids)
		_, err := service.GetItemsByUser(ctx, "ghost")
		require.ErrorIs(t, err, biddingerrors.ErrUserNoBids)

		_, err = service.GetItemsByUser(ctx, "")
		require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)
	})

	t.Run("top_bidders", func(t *testing.T) {
		mockRepo.EXPECT().TopBidders(gomock.Any(), 3).Return([]model.BidderRanking{{BidderID: "alice", TotalSpend: 30}}, nil)
		rankings, err := service.TopBidders(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, "alice", rankings[0].BidderID)

		mockRepo.EXPECT().TopBidders(gomock.Any(), 3).Return(nil, biddingerrors.ErrStorageUnavailable)
		_, err = service.TopBidders(ctx, 3)
		require.ErrorIs(t, err, biddingerrors.ErrStorageUnavailable)

		_, err = service.TopBidders(ctx, -1)
		require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)
	})

	t.Run("list_items", func(t *testing.T) {
		mockRepo.EXPECT().ListItems(gomock.Any()).Return([]model.Item{{Code: "FR"}, {Code: "DE"}}, nil)
		items, err := service.ListItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
	})
}

// Tests UpdateCustomization
func TestBiddingService_UpdateCustomization(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	mockPublisher := notify.NewMockPublisher(ctrl)
	service := NewBiddingService(mockRepo, WithPublisher(mockPublisher), WithClock(func() time.Time { return fixedNow }))

	custom := model.Customization{Message: strings.Repeat("é", model.MaxMessageLength), Color: 0x00FF00}

	tests := []struct {
		name          string
		bidID         string
		userID        string
		custom        model.Customization
		mockSetup     func()
		expectedError error
	}{
		{
			name:   "owner_updates",
			bidID:  "bid-1",
			userID: "alice",
			custom: custom,
			mockSetup: func() {
				updated := model.Bid{BidID: "bid-1", ItemCode: "FR", BidderID: "alice", Amount: 10, IsWinning: true, Customization: custom}
				mockRepo.EXPECT().UpdateCustomization(gomock.Any(), "bid-1", "alice", custom).Return(updated, nil)
				mockPublisher.EXPECT().Publish(gomock.Any(), notify.CustomizedEvent(updated, fixedNow)).Return(nil)
			},
		},
		{
			name:   "publish_failure_is_not_an_error",
			bidID:  "bid-1",
			userID: "alice",
			custom: custom,
			mockSetup: func() {
				mockRepo.EXPECT().UpdateCustomization(gomock.Any(), "bid-1", "alice", custom).Return(model.Bid{BidID: "bid-1"}, nil)
				mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("nats down"))
			},
		},
		{
			name:   "not_owner",
			bidID:  "bid-1",
			userID: "mallory",
			custom: custom,
			mockSetup: func() {
				mockRepo.EXPECT().UpdateCustomization(gomock.Any(), "bid-1", "mallory", custom).Return(model.Bid{}, biddingerrors.ErrNotAuthorized)
			},
			expectedError: biddingerrors.ErrNotAuthorized,
		},
		{
			name:          "message_too_long",
			bidID:         "bid-1",
			userID:        "alice",
			custom:        model.Customization{Message: strings.Repeat("é", model.MaxMessageLength+1)},
			mockSetup:     func() {},
			expectedError: biddingerrors.ErrInvalidCustomization,
		},
		{
			name:          "color_out_of_range",
			bidID:         "bid-1",
			userID:        "alice",
			custom:        model.Customization{Color: model.MaxColor + 1},
			mockSetup:     func() {},
			expectedError: biddingerrors.ErrInvalidCustomization,
		},
		{
			name:          "missing_user",
			bidID:         "bid-1",
			userID:        "",
			mockSetup:     func() {},
			expectedError: biddingerrors.ErrInvalidBid,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			_, err := service.UpdateCustomization(context.Background(), tc.bidID, tc.userID, tc.custom)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
		})
	}
}

// Tests VerifyProjection against a memory repository
func TestBiddingService_VerifyProjection(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.SeedItems(context.Background(), []model.Item{{Code: "FR", Name: "France"}, {Code: "DE", Name: "Germany"}}))
	service := NewBiddingService(repo)
	ctx := context.Background()

	require.NoError(t, service.VerifyProjection(ctx, "FR"))

	_, err := service.Settle(ctx, model.SettleRequest{ConfirmationID: "cs_1", ItemCode: "FR", BidderID: "alice", Amount: 10})
	require.NoError(t, err)
	_, err = service.Settle(ctx, model.SettleRequest{ConfirmationID: "cs_2", ItemCode: "FR", BidderID: "bob", Amount: 15})
	require.NoError(t, err)
	require.NoError(t, service.VerifyProjection(ctx, "FR"))

	winner, err := service.RecomputeWinner(ctx, "FR")
	require.NoError(t, err)
	projected, err := service.CurrentWinner(ctx, "FR")
	require.NoError(t, err)
	require.Equal(t, projected, winner)

	// corrupt the projection behind the ledger's back
	item, err := repo.GetItem(ctx, "FR")
	require.NoError(t, err)
	item.CurrentAmount = 99
	repo.AddItem(item)
	require.ErrorIs(t, service.VerifyProjection(ctx, "FR"), biddingerrors.ErrProjectionDrift)

	repo.AddItem(model.Item{Code: "DE", Name: "Germany", CurrentAmount: 5, CurrentBidID: "ghost"})
	require.ErrorIs(t, service.VerifyProjection(ctx, "DE"), biddingerrors.ErrProjectionDrift)

	drifted, err := service.VerifyAllProjections(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"FR", "DE"}, drifted)
}
