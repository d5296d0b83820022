package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"claimed-world/internal/biddingerrors"
	model "claimed-world/internal/models"
	"claimed-world/utils"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key the auth middleware stores the caller under
const UserIDKey = "user_id"

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// HandleServiceError maps err to a status, sends it and logs it
func HandleServiceError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["status"] = status
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrItemNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, biddingerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for item"
	case errors.Is(err, biddingerrors.ErrUserNoBids):
		return http.StatusNotFound, "no bids found for user"
	case errors.Is(err, biddingerrors.ErrInvalidCustomization):
		return http.StatusBadRequest, "invalid customization"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrStaleBid):
		return http.StatusConflict, "bid was outbid before settlement"
	case errors.Is(err, biddingerrors.ErrAmountMismatch):
		return http.StatusConflict, "charged amount does not match bid"
	case errors.Is(err, biddingerrors.ErrNotAuthorized):
		return http.StatusForbidden, "not the current winner of this bid"
	case errors.Is(err, biddingerrors.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid signature"
	case errors.Is(err, biddingerrors.ErrInvalidIntent):
		return http.StatusBadRequest, "invalid bid intent"
	case errors.Is(err, biddingerrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable, retry later"
	case errors.Is(err, biddingerrors.ErrVersionConflict):
		return http.StatusServiceUnavailable, "item is being settled concurrently, retry later"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// ParseCustomization converts the wire form of a customization. An empty color means the default.
func ParseCustomization(message, color string) (model.Customization, error) {
	custom := model.Customization{Message: message, Color: model.DefaultColor}
	if color != "" {
		parsed, err := model.ParseColor(color)
		if err != nil {
			return model.Customization{}, fmt.Errorf("%w - %v", biddingerrors.ErrInvalidCustomization, err)
		}
		custom.Color = parsed
	}
	if err := custom.Validate(); err != nil {
		return model.Customization{}, fmt.Errorf("%w - %v", biddingerrors.ErrInvalidCustomization, err)
	}
	return custom, nil
}

// ParseLimit reads the "limit" query parameter. Missing means def; values above max are capped.
func ParseLimit(c *gin.Context, def, maxLimit int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("%w - limit must be a positive integer", biddingerrors.ErrInvalidBid)
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

// UserID returns the authenticated caller set by the auth middleware
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
