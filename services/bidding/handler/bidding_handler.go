package handler

//go:generate mockgen -destination=mock_service.go -package=handler claimed-world/services/bidding/handler BiddingServiceInterface

import (
	"context"
	"errors"
	"net/http"

	"claimed-world/internal/biddingerrors"
	model "claimed-world/internal/models"
	"claimed-world/services/bidding/helpers"
	"claimed-world/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

type BiddingServiceInterface interface {
	ProposeBid(ctx context.Context, itemCode string, amount int64, bidderID string, custom model.Customization) (model.BidIntent, error)
	Settle(ctx context.Context, req model.SettleRequest) (model.Settlement, error)
	GetItem(ctx context.Context, itemCode string) (model.Item, error)
	ListItems(ctx context.Context) ([]model.Item, error)
	CurrentWinner(ctx context.Context, itemCode string) (model.Winner, error)
	GetBidsForItem(ctx context.Context, itemCode string, limit int) ([]model.Bid, error)
	GetBidsByUser(ctx context.Context, userID string) ([]model.Bid, error)
	GetItemsByUser(ctx context.Context, userID string) ([]model.Item, error)
	TopBidders(ctx context.Context, limit int) ([]model.BidderRanking, error)
	UpdateCustomization(ctx context.Context, bidID, bidderID string, custom model.Customization) (model.Bid, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// ProposeBidHandler handles POST /intents
func (h *BiddingHandler) ProposeBidHandler(c *gin.Context) {
	var req helpers.ProposeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ProposeBidHandler", err)
		return
	}
	userID := helpers.UserID(c)

	custom, err := helpers.ParseCustomization(req.Message, req.Color)
	if err != nil {
		helpers.HandleServiceError(c, "ProposeBidHandler", err, map[string]any{"item_id": req.ItemID, "user_id": userID})
		return
	}

	intent, err := h.service.ProposeBid(c.Request.Context(), req.ItemID, req.Amount, userID, custom)
	if err != nil {
		helpers.HandleServiceError(c, "ProposeBidHandler", err, map[string]any{
			"item_id": req.ItemID,
			"user_id": userID,
			"amount":  req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToIntentResponse(intent), "bid intent created, complete the payment to claim the item")
	helpers.LogSuccess("ProposeBidHandler", "bid intent created", map[string]any{
		"intent_id":  intent.IntentID,
		"item_id":    intent.ItemCode,
		"user_id":    userID,
		"amount":     intent.Amount,
		"session_id": intent.SessionID,
	})
}

// ListItemsHandler handles GET /items
func (h *BiddingHandler) ListItemsHandler(c *gin.Context) {
	items, err := h.service.ListItems(c.Request.Context())
	if err != nil {
		helpers.HandleServiceError(c, "ListItemsHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToItemResponses(items), "items retrieved successfully")
}

// GetItemHandler handles GET /items/:item_id
func (h *BiddingHandler) GetItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		helpers.HandleServiceError(c, "GetItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToItemResponse(item), "item retrieved successfully")
}

// GetBidsByItemHandler handles GET /items/:item_id/bids
func (h *BiddingHandler) GetBidsByItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	limit, err := helpers.ParseLimit(c, defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		helpers.HandleServiceError(c, "GetBidsByItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	bids, err := h.service.GetBidsForItem(c.Request.Context(), itemID, limit)
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		helpers.HandleServiceError(c, "GetBidsByItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByItemHandler", "bids retrieved successfully", map[string]any{
		"item_id": itemID,
		"count":   len(bids),
	})
}

// GetWinningBidHandler handles GET /items/:item_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	winner, err := h.service.CurrentWinner(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"item_id": itemID})
			return
		}
		helpers.HandleServiceError(c, "GetWinningBidHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, winner, "winning bid retrieved successfully")
}

// GetBidsByUserHandler handles GET /users/:user_id/bids
func (h *BiddingHandler) GetBidsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	bids, err := h.service.GetBidsByUser(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		helpers.HandleServiceError(c, "GetBidsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
}

// GetItemsByUserHandler handles GET /users/:user_id/items
func (h *BiddingHandler) GetItemsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	items, err := h.service.GetItemsByUser(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		helpers.HandleServiceError(c, "GetItemsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToItemResponses(items), "items retrieved successfully")
	helpers.LogSuccess("GetItemsByUserHandler", "items retrieved successfully", map[string]any{
		"user_id":     userID,
		"items_count": len(items),
	})
}

// TopBiddersHandler handles GET /rankings
func (h *BiddingHandler) TopBiddersHandler(c *gin.Context) {
	limit, err := helpers.ParseLimit(c, defaultRankingLimit, maxRankingLimit)
	if err != nil {
		helpers.HandleServiceError(c, "TopBiddersHandler", err, nil)
		return
	}

	rankings, err := h.service.TopBidders(c.Request.Context(), limit)
	if err != nil {
		helpers.HandleServiceError(c, "TopBiddersHandler", err, map[string]any{"limit": limit})
		return
	}
	if rankings == nil {
		rankings = []model.BidderRanking{}
	}

	utils.JSONResponse(c, http.StatusOK, rankings, "rankings retrieved successfully")
}

// UpdateCustomizationHandler handles PATCH /bids/:bid_id/customization
func (h *BiddingHandler) UpdateCustomizationHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	userID := helpers.UserID(c)

	var req helpers.CustomizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateCustomizationHandler", err)
		return
	}

	fields := map[string]any{"bid_id": bidID, "user_id": userID}
	custom, err := helpers.ParseCustomization(req.Message, req.Color)
	if err != nil {
		helpers.HandleServiceError(c, "UpdateCustomizationHandler", err, fields)
		return
	}

	bid, err := h.service.UpdateCustomization(c.Request.Context(), bidID, userID, custom)
	if err != nil {
		helpers.HandleServiceError(c, "UpdateCustomizationHandler", err, fields)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponse(bid), "customization updated successfully")
	helpers.LogSuccess("UpdateCustomizationHandler", "customization updated", map[string]any{
		"bid_id":  bid.BidID,
		"item_id": bid.ItemCode,
		"user_id": userID,
	})
}

// HealthHandler handles GET /health
func HealthHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, gin.H{"service": "claimed-world"}, "healthy")
}
