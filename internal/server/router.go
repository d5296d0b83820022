package server

import (
	"claimed-world/internal/notify"
	"claimed-world/internal/payment"
	handler "claimed-world/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// Dependencies are the components the router exposes
type Dependencies struct {
	Service handler.BiddingServiceInterface
	Webhook *payment.Webhook
	Hub     *notify.Hub
	// Checkout enables the development checkout route when the in-process gateway is used
	Checkout *payment.LocalGateway
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(deps.Service)
	webhookHandler := handler.NewWebhookHandler(deps.Service, deps.Webhook)
	feedHandler := handler.NewFeedHandler(deps.Service, deps.Hub)

	router.GET("/health", handler.HealthHandler)
	router.GET("/rankings", biddingHandler.TopBiddersHandler)
	router.POST("/webhooks/payments", webhookHandler.PaymentWebhookHandler)

	authed := router.Group("", AuthMiddleware)
	{
		authed.POST("/intents", biddingHandler.ProposeBidHandler)
		authed.PATCH("/bids/:bid_id/customization", biddingHandler.UpdateCustomizationHandler)
	}

	items := router.Group("/items")
	{
		items.GET("", biddingHandler.ListItemsHandler)
		items.GET("/:item_id", biddingHandler.GetItemHandler)
		items.GET("/:item_id/bids", biddingHandler.GetBidsByItemHandler)
		items.GET("/:item_id/winning", biddingHandler.GetWinningBidHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/bids", biddingHandler.GetBidsByUserHandler)
		users.GET("/:user_id/items", biddingHandler.GetItemsByUserHandler)
	}

	ws := router.Group("/ws")
	{
		ws.GET("/items", feedHandler.AllItemsFeedHandler)
		ws.GET("/items/:item_id", feedHandler.ItemFeedHandler)
	}

	if deps.Checkout != nil {
		checkout := handler.NewCheckoutHandler(deps.Checkout, webhookHandler)
		router.POST("/checkout/:session_id", checkout.CompleteCheckoutHandler)
	}

	return router
}
