// Package middleware provides HTTP middleware for the ATM Master API.
package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// maxBuckets bounds the number of tracked client IPs.
const maxBuckets = 100_000

// RateLimiter is a token bucket limiter keyed by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// take refills the bucket and consumes one token. When none is left it
// returns how long the caller should wait.
func (rl *RateLimiter) take(b *bucket, now time.Time) (bool, time.Duration) {
	b.tokens = math.Min(rl.burst, b.tokens+now.Sub(b.lastFill).Seconds()*rl.rate)
	b.lastFill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	wait := time.Duration((1 - b.tokens) / rl.rate * float64(time.Second))

	return false, wait
}

// NewRateLimiter creates a RateLimiter allowing ratePerSec requests per
// second with the given burst. Stale buckets are evicted until ctx ends.
func NewRateLimiter(ctx context.Context, ratePerSec, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    float64(max(ratePerSec, 1)),
		burst:   float64(max(burst, 1)),
	}
	go rl.startCleanup(ctx)

	return rl
}

func (rl *RateLimiter) startCleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	const maxAge = 10 * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, b := range rl.buckets {
				if now.Sub(b.lastFill) > maxAge {
					delete(rl.buckets, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Handler returns Gin middleware that applies rate limiting per client IP.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Proxy headers are not trusted (SetTrustedProxies(nil)), so
		// ClientIP is the socket peer.
		ip := c.ClientIP()
		now := time.Now()

		rl.mu.Lock()
		b, ok := rl.buckets[ip]
		if !ok {
			if len(rl.buckets) >= maxBuckets {
				rl.mu.Unlock()
				respondError(c, http.StatusTooManyRequests, "rate_limited", "too many clients")

				return
			}

			b = &bucket{tokens: rl.burst, lastFill: now}
			rl.buckets[ip] = b
		}

		allowed, wait := rl.take(b, now)
		rl.mu.Unlock()

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			respondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")

			return
		}

		c.Next()
	}
}
