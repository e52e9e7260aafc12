package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// CircuitState is the state of a Breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // ids are drawn normally
	CircuitOpen                         // allocator failing, reject
	CircuitHalfOpen                     // cooldown over, probing
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	Failures int           // consecutive allocator failures before opening
	Probes   int           // successful probes needed to close again
	Cooldown time.Duration // time spent open before probing
}

// DefaultBreakerConfig opens after five failed draws and probes after 30s.
var DefaultBreakerConfig = BreakerConfig{Failures: 5, Probes: 2, Cooldown: 30 * time.Second}

// Breaker stops routes from hammering an allocator backend that keeps
// failing. Only allocator outages count; bad input and synthesis errors do
// not.
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    CircuitState
	failures int
	probes   int
	openedAt time.Time
	now      func() time.Time
	onChange func(from, to CircuitState)
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithStateListener is called, under the breaker's lock, on every transition.
func WithStateListener(fn func(from, to CircuitState)) BreakerOption {
	return func(b *Breaker) { b.onChange = fn }
}

func withBreakerClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

func NewBreaker(cfg BreakerConfig, opts ...BreakerOption) *Breaker {
	b := &Breaker{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a request may try the allocator. When it may not,
// the second value is the time left before probing starts.
func (b *Breaker) Allow() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitOpen {
		return true, 0
	}
	left := b.cfg.Cooldown - b.now().Sub(b.openedAt)
	if left > 0 {
		return false, left
	}
	b.transition(CircuitHalfOpen)
	b.probes = 0
	return true, 0
}

// Success records a draw that reached the allocator.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == CircuitHalfOpen {
		b.probes++
		if b.probes >= b.cfg.Probes {
			b.transition(CircuitClosed)
		}
	}
}

// Failure records an allocator outage.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == CircuitHalfOpen || b.failures >= b.cfg.Failures {
		b.openedAt = b.now()
		b.transition(CircuitOpen)
	}
}

func (b *Breaker) transition(to CircuitState) {
	if b.state == to {
		return
	}
	if b.onChange != nil {
		b.onChange(b.state, to)
	}
	b.state = to
}

// CircuitBreakerMiddleware rejects requests while b is open. Admitted
// requests answered with 503 count as allocator failures; any other status
// counts as a success.
func CircuitBreakerMiddleware(b *Breaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := b.Allow()
		if !ok {
			RespondErrorWithRetry(c, http.StatusServiceUnavailable, ErrCodeCircuitOpen,
				"id allocator is temporarily unavailable due to repeated failures", wait)
			return
		}
		c.Next()

		if c.Writer.Status() == http.StatusServiceUnavailable {
			b.Failure()
		} else {
			b.Success()
		}
	}
}
