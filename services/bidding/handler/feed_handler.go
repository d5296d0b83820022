package handler

import (
	"net/http"
	"time"

	"claimed-world/internal/notify"
	"claimed-world/services/bidding/helpers"
	"claimed-world/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = 54 * time.Second
	feedReadLimit  = 512
)

// FeedHandler streams change events over websockets
type FeedHandler struct {
	service  BiddingServiceInterface
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

func NewFeedHandler(service BiddingServiceInterface, hub *notify.Hub) *FeedHandler {
	return &FeedHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the map is served from other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type feedHello struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id,omitempty"`
	SubscriberID string `json:"subscriber_id"`
}

// ItemFeedHandler handles GET /ws/items/:item_id
func (h *FeedHandler) ItemFeedHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	if _, err := h.service.GetItem(c.Request.Context(), itemID); err != nil {
		helpers.HandleServiceError(c, "ItemFeedHandler", err, map[string]any{"item_id": itemID})
		return
	}
	h.serve(c, itemID)
}

// AllItemsFeedHandler handles GET /ws/items
func (h *FeedHandler) AllItemsFeedHandler(c *gin.Context) {
	h.serve(c, notify.AllItems)
}

func (h *FeedHandler) serve(c *gin.Context, itemID string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered the request
		utils.Warn("FeedHandler: websocket upgrade failed", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(itemID)
	defer h.hub.Unsubscribe(sub)

	utils.Info("FeedHandler: subscriber connected", map[string]any{"item_id": itemID, "subscriber_id": sub.ID})

	closed := make(chan struct{})
	go readPump(conn, closed)
	writePump(conn, sub, closed)

	utils.Info("FeedHandler: subscriber disconnected", map[string]any{"item_id": itemID, "subscriber_id": sub.ID})
}

// writePump forwards hub events to the connection until the client leaves or the hub drops it
func writePump(conn *websocket.Conn, sub *notify.Subscription, closed <-chan struct{}) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	if err := conn.WriteJSON(feedHello{Type: "connected", ItemID: sub.ItemCode, SubscriberID: sub.ID}); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscription ended"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}

// readPump discards client input and closes closed when the connection goes away
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(feedReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Debug("FeedHandler: connection closed", map[string]any{"error": err.Error()})
			}
			return
		}
	}
}
