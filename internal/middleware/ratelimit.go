package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
	"github.com/noah-isme/sma-lms-gradesync/pkg/response"
)

const (
	rateLimitCleanupInterval = 5 * time.Minute
	rateLimitEntryTTL        = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rps      rate.Limit
	burst    int
}

func newRateLimiterMap(requestsPerMinute int) *rateLimiterMap {
	return &rateLimiterMap{
		limiters: make(map[string]*ipLimiter, 64),
		rps:      rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    requestsPerMinute,
	}
}

func (rl *rateLimiterMap) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[ip] = &ipLimiter{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (rl *rateLimiterMap) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rateLimitEntryTTL {
			delete(rl.limiters, ip)
		}
	}
}

func (rl *rateLimiterMap) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rateLimitCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

// RateLimit throttles each client IP to requestsPerMinute, allowing bursts of the same size.
// A non-positive limit disables throttling. Idle entries are dropped until ctx ends.
func RateLimit(ctx context.Context, requestsPerMinute int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := newRateLimiterMap(requestsPerMinute)
	go limiters.cleanup(ctx)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
