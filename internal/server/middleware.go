package server

import (
	"claimed-world/services/bidding/helpers"
	"claimed-world/utils"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the authenticated caller, set by the fronting identity proxy
const UserIDHeader = "X-User-ID"

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if userID := helpers.UserID(c); userID != "" {
		fields["user_id"] = userID
	}
	utils.Info("HTTP Request", fields)
}

// AuthMiddleware rejects requests without a caller identity and stores it for the handlers
func AuthMiddleware(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if userID == "" {
		utils.AbortJSONError(c, http.StatusUnauthorized, errors.New("missing "+UserIDHeader+" header"), "authentication required")
		return
	}
	c.Set(helpers.UserIDKey, userID)
	c.Next()
}
