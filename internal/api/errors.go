package api

import (
	"github.com/gin-gonic/gin"

	"github.com/waleedsbi/atm-master/internal/httputil"
	"github.com/waleedsbi/atm-master/internal/metrics"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeForbidden      = "forbidden"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeInternalError  = "internal_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondErrorDetails is respondError with a details payload.
func respondErrorDetails(c *gin.Context, status int, code, message string, details any) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondErrorDetails(c, status, code, message, details)
}
