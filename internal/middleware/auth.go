package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/models"
)

// authTimingFloor is the minimum response time for rejected credentials so
// that valid and invalid API keys cannot be told apart by latency.
const authTimingFloor = 50 * time.Millisecond

// UserKey is the gin context key holding the authenticated *models.User.
const UserKey = "user"

// UserLookup resolves an API key to the user that owns it.
type UserLookup interface {
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
}

// truncateKey returns at most the first 4 characters of key followed by "...".
func truncateKey(key string) string {
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return key
}

func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// AuthMiddleware authenticates requests via Bearer API key and stores the
// resolved user under UserKey.
func AuthMiddleware(lookup UserLookup, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		user, err := lookup.GetUserByAPIKey(c.Request.Context(), apiKey)
		if err != nil || user == nil {
			logAuthFailure(log, c, apiKey)
			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// RequirePermission rejects callers whose user lacks perm.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).Can(perm) {
			respondError(c, http.StatusForbidden, "forbidden", "missing permission "+perm)
			return
		}

		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}

	u, _ := v.(*models.User)

	return u
}

// ExtractBearerToken extracts the API key from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func logAuthFailure(log *logrus.Logger, c *gin.Context, apiKey string) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"request_id": c.GetString(RequestIDKey),
		"key_prefix": truncateKey(apiKey),
	}).Warn("authentication failed: invalid api key")
}
