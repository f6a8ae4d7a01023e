package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per client address.
type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	every    time.Duration
	burst    int
	log      zerolog.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows burst requests per address, refilled one every
// every. Stop ends the background cleanup.
func NewRateLimiter(every time.Duration, burst int, log zerolog.Logger) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		every:    every,
		burst:    burst,
		log:      log,
		done:     make(chan struct{}),
	}
	go rl.cleanupVisitors()
	return rl
}

// getVisitor returns the limiter for identifier, adding it if not seen
// before.
func (rl *RateLimiter) getVisitor(identifier string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[identifier]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(rl.every), rl.burst)}
		rl.visitors[identifier] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors deletes visitors that have not been seen in a while
func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mtx.Lock()
			for identifier, v := range rl.visitors {
				if time.Since(v.lastSeen) > visitorTTL {
					delete(rl.visitors, identifier)
				}
			}
			rl.mtx.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Limit is a middleware to rate limit the handler
func (rl *RateLimiter) Limit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.IP()
		if !rl.getVisitor(identifier).Allow() {
			rl.log.Warn().Str("ip", identifier).Str("path", c.Path()).Msg("too many requests")
			return &types.CustomError{
				Code:    fiber.StatusTooManyRequests,
				Message: "Too many requests",
				Type:    "rate_limit",
			}
		}
		return c.Next()
	}
}
