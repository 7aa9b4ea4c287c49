package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-engine/internal/auctionerrors"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// minorUnitsPerMajor scales cents to the display currency.
var minorUnitsPerMajor = decimal.NewFromInt(100)

// DisplayAmount renders an integer minor-unit amount as a two-decimal string
// (e.g. 600 -> "6.00"). All internal arithmetic stays on integers; scaling
// happens only at this boundary.
func DisplayAmount(minor int64) string {
	return decimal.NewFromInt(minor).DivRound(minorUnitsPerMajor, 2).StringFixed(2)
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrWalletNotFound):
		return http.StatusNotFound, "wallet not found"
	case errors.Is(err, auctionerrors.ErrGrantNotFound):
		return http.StatusNotFound, "grant not found"
	case errors.Is(err, auctionerrors.ErrInvalidBid), errors.Is(err, auctionerrors.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusGone, "auction is closed"
	case errors.Is(err, auctionerrors.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient funds"
	case errors.Is(err, auctionerrors.ErrGrantExpired):
		return http.StatusGone, "grant expired"
	case errors.Is(err, auctionerrors.ErrGrantExhausted):
		return http.StatusConflict, "grant download limit reached"
	case errors.Is(err, auctionerrors.ErrDuplicateAuction):
		return http.StatusConflict, "auction already exists"
	case errors.Is(err, auctionerrors.ErrConcurrentUpdate):
		return http.StatusServiceUnavailable, "try again"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
