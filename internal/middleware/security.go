package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders sets common security response headers. Responses carry
// database contents, so nothing may be cached.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		h.Set("Pragma", "no-cache")

		c.Next()
	}
}
