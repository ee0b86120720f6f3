package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a structured error response from the API.
type APIError struct {
	StatusCode int             `json:"-"`
	Code       string          `json:"code"`
	Message    string          `json:"error"`
	Details    json.RawMessage `json:"details,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("atm: %d %s: %s", e.StatusCode, e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " " + string(e.Details)
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request_id=%s)", e.RequestID)
	}
	return msg
}

func hasStatus(err error, status int) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == status
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsConflict returns true if the error is a 409, i.e. another backup or
// restore is running.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool { return hasStatus(err, http.StatusTooManyRequests) }

// IsForbidden returns true if the key lacks the required permission.
func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
