package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"claimed-world/internal/biddingerrors"
	"claimed-world/internal/payment"
	"claimed-world/services/bidding/helpers"
	"claimed-world/utils"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

// WebhookHandler turns signed gateway deliveries into settlements
type WebhookHandler struct {
	service BiddingServiceInterface
	webhook *payment.Webhook
}

func NewWebhookHandler(service BiddingServiceInterface, webhook *payment.Webhook) *WebhookHandler {
	return &WebhookHandler{service: service, webhook: webhook}
}

// PaymentWebhookHandler handles POST /webhooks/payments.
//
// Every terminal outcome, including stale and mismatched bids, is acknowledged with 200 so the
// gateway stops redelivering. Storage failures answer 503 and the gateway retries with the same
// confirmation id.
func (h *WebhookHandler) PaymentWebhookHandler(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		helpers.HandleBindError(c, "PaymentWebhookHandler", err)
		return
	}
	if len(payload) > maxWebhookBody {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, nil, "payload too large")
		return
	}

	h.deliver(c, payload, c.GetHeader(payment.SignatureHeader))
}

func (h *WebhookHandler) deliver(c *gin.Context, payload []byte, signature string) {
	ev, err := h.webhook.ParseEvent(payload, signature)
	if err != nil {
		helpers.HandleServiceError(c, "PaymentWebhookHandler", err, nil)
		return
	}

	req, err := h.webhook.SettleRequest(ev)
	if errors.Is(err, payment.ErrIgnoredEvent) {
		utils.JSONResponse(c, http.StatusOK, gin.H{"event_id": ev.ID, "type": ev.Type}, "event ignored")
		utils.Debug("PaymentWebhookHandler: event ignored", map[string]any{"event_id": ev.ID, "reason": err.Error()})
		return
	}
	if err != nil {
		helpers.HandleServiceError(c, "PaymentWebhookHandler", err, map[string]any{"event_id": ev.ID})
		return
	}

	settlement, err := h.service.Settle(c.Request.Context(), req)
	switch {
	case err == nil:
		utils.JSONResponse(c, http.StatusOK, helpers.ToSettlementResponse(settlement), "bid settled")
		helpers.LogSuccess("PaymentWebhookHandler", "bid settled", map[string]any{
			"event_id":        ev.ID,
			"confirmation_id": req.ConfirmationID,
			"item_id":         req.ItemCode,
			"replayed":        settlement.Replayed,
		})

	case errors.Is(err, biddingerrors.ErrStaleBid), errors.Is(err, biddingerrors.ErrAmountMismatch):
		_, message := helpers.MapErrorToHTTP(err)
		utils.JSONResponse(c, http.StatusOK, helpers.ToSettlementResponse(settlement), message)
		utils.Info("PaymentWebhookHandler: payment settled as discarded bid", map[string]any{
			"event_id":        ev.ID,
			"confirmation_id": req.ConfirmationID,
			"item_id":         req.ItemCode,
			"user_id":         req.BidderID,
			"reason":          settlement.Reason,
		})

	default:
		helpers.HandleServiceError(c, "PaymentWebhookHandler", err, map[string]any{
			"event_id":        ev.ID,
			"confirmation_id": req.ConfirmationID,
			"item_id":         req.ItemCode,
		})
	}
}

// CheckoutHandler completes sessions of the in-process gateway and delivers the resulting webhook.
// It stands in for the hosted checkout page in development.
type CheckoutHandler struct {
	gateway  *payment.LocalGateway
	webhooks *WebhookHandler
}

func NewCheckoutHandler(gateway *payment.LocalGateway, webhooks *WebhookHandler) *CheckoutHandler {
	return &CheckoutHandler{gateway: gateway, webhooks: webhooks}
}

// CompleteCheckoutHandler handles POST /checkout/:session_id
func (h *CheckoutHandler) CompleteCheckoutHandler(c *gin.Context) {
	sessionID := c.Param("session_id")

	payload, signature, err := h.gateway.Complete(sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, payment.ErrSessionNotFound):
			status = http.StatusNotFound
		case errors.Is(err, payment.ErrSessionExpired):
			status = http.StatusGone
		case errors.Is(err, payment.ErrSessionComplete):
			status = http.StatusConflict
		}
		utils.JSONError(c, status, fmt.Errorf("checkout failed: %w", err), "checkout failed")
		utils.Warn("CompleteCheckoutHandler: checkout failed", map[string]any{"session_id": sessionID, "error": err.Error()})
		return
	}

	h.webhooks.deliver(c, payload, signature)
}
