package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a token bucket per client. Buckets hold up to burst tokens
// and gain refill tokens every period. Idle buckets that have refilled
// completely are dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	burst     int
	refill    int
	period    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens   int
	refilled time.Time
}

// NewRateLimiter creates a limiter allowing burst requests at once and
// refill more every period.
func NewRateLimiter(burst, refill int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		burst:   burst,
		refill:  max(1, refill),
		period:  period,
		now:     time.Now,
	}
}

// NewAPILimiter is the limit for read endpoints: 100 requests, 10 more per
// minute.
func NewAPILimiter() *RateLimiter {
	return NewRateLimiter(100, 10, time.Minute)
}

// NewGenerationLimiter is the limit for routes that draw ids: 20 requests,
// 2 more per minute.
func NewGenerationLimiter() *RateLimiter {
	return NewRateLimiter(20, 2, time.Minute)
}

// Allow takes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	_, _, ok := rl.take(key)
	return ok
}

// take removes a token for key. It returns the tokens left and, when the
// bucket is empty, how long until the next refill.
func (rl *RateLimiter) take(key string) (int, time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, refilled: now}
		rl.buckets[key] = b
	}

	if periods := int(now.Sub(b.refilled) / rl.period); periods > 0 {
		b.tokens = min(rl.burst, b.tokens+periods*rl.refill)
		b.refilled = b.refilled.Add(time.Duration(periods) * rl.period)
	}

	if b.tokens == 0 {
		return 0, b.refilled.Add(rl.period).Sub(now), false
	}
	b.tokens--
	return b.tokens, 0, true
}

// sweep drops buckets that would be full again. Runs at most once a period.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.period {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.buckets {
		missing := rl.burst - b.tokens
		periods := (missing + rl.refill - 1) / rl.refill
		if now.Sub(b.refilled) >= time.Duration(periods)*rl.period {
			delete(rl.buckets, key)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// clientKey prefers the token subject so an admin is limited across
// addresses.
func clientKey(c *gin.Context) string {
	if id, ok := GetUserID(c); ok {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware rejects requests with 429 once the client's bucket is
// empty.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, wait, ok := rl.take(clientKey(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			RespondErrorWithRetry(c, http.StatusTooManyRequests, ErrCodeRateLimited, "too many requests, please try again later", wait)
			return
		}
		c.Next()
	}
}
