package helpers

import (
	model "claimed-world/internal/models"
	"time"
)

// Request/Response DTOs
type ProposeBidRequest struct {
	ItemID  string `json:"item_id" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
	Message string `json:"message"`
	Color   string `json:"color"`
}

type CustomizationRequest struct {
	Message string `json:"message"`
	Color   string `json:"color"`
}

type IntentResponse struct {
	IntentID    string `json:"intent_id"`
	ItemID      string `json:"item_id"`
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`
	MinimumBid  int64  `json:"minimum_bid"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	ItemID    string `json:"item_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
	IsWinning bool   `json:"is_winning"`
	Message   string `json:"message"`
	Color     string `json:"color"`
}

type ItemResponse struct {
	ItemID          string `json:"item_id"`
	Name            string `json:"name"`
	CurrentAmount   int64  `json:"current_amount"`
	CurrentBidderID string `json:"current_bidder_id,omitempty"`
	CurrentBidID    string `json:"current_bid_id,omitempty"`
	MinimumBid      int64  `json:"minimum_bid"`
	Message         string `json:"message"`
	Color           string `json:"color"`
}

type SettlementResponse struct {
	ConfirmationID   string `json:"confirmation_id"`
	ItemID           string `json:"item_id"`
	UserID           string `json:"user_id"`
	Amount           int64  `json:"amount"`
	Outcome          string `json:"outcome"`
	Reason           string `json:"reason,omitempty"`
	BidID            string `json:"bid_id,omitempty"`
	PreviousBidderID string `json:"previous_user_id,omitempty"`
	Replayed         bool   `json:"replayed"`
}

func ToIntentResponse(in model.BidIntent) IntentResponse {
	return IntentResponse{
		IntentID:    in.IntentID,
		ItemID:      in.ItemCode,
		UserID:      in.BidderID,
		Amount:      in.Amount,
		MinimumBid:  in.MinimumBid,
		SessionID:   in.SessionID,
		CheckoutURL: in.CheckoutURL,
		ExpiresAt:   in.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func ToBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		ItemID:    b.ItemCode,
		UserID:    b.BidderID,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		IsWinning: b.IsWinning,
		Message:   b.Customization.Message,
		Color:     b.Customization.Color.String(),
	}
}

func ToBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, ToBidResponse(b))
	}
	return out
}

// ToItemResponse renders an item for the map. Unclaimed items show the default color.
func ToItemResponse(i model.Item) ItemResponse {
	color := i.Customization.Color
	if !i.HasWinner() {
		color = model.DefaultColor
	}
	return ItemResponse{
		ItemID:          i.Code,
		Name:            i.Name,
		CurrentAmount:   i.CurrentAmount,
		CurrentBidderID: i.CurrentBidderID,
		CurrentBidID:    i.CurrentBidID,
		MinimumBid:      i.MinimumBid(),
		Message:         i.Customization.Message,
		Color:           color.String(),
	}
}

func ToItemResponses(items []model.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, ToItemResponse(i))
	}
	return out
}

func ToSettlementResponse(s model.Settlement) SettlementResponse {
	return SettlementResponse{
		ConfirmationID:   s.ConfirmationID,
		ItemID:           s.ItemCode,
		UserID:           s.BidderID,
		Amount:           s.Amount,
		Outcome:          string(s.Outcome),
		Reason:           s.Reason,
		BidID:            s.BidID,
		PreviousBidderID: s.PreviousBidderID,
		Replayed:         s.Replayed,
	}
}
