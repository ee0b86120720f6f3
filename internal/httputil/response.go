// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// ErrorResponse is the JSON envelope of every error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	RespondErrorDetails(c, status, code, message, nil)
}

// RespondErrorDetails is RespondError with an extra details payload.
func RespondErrorDetails(c *gin.Context, status int, code, message string, details any) {
	var requestID string
	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok {
			requestID = s
		}
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestID,
	})
}
