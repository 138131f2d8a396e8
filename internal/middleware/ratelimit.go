package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RateLimiter is a fixed-window request limiter keyed by client IP and route.
// It protects the credential endpoints from brute forcing; it is not meant
// to be a general traffic shaper.
type RateLimiter struct {
	enabled bool
	limit   int
	window  time.Duration
	entries sync.Map // key -> *windowEntry

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// windowEntry tracks one client window
type windowEntry struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// NewRateLimiter creates a limiter allowing limit requests per window per key
func NewRateLimiter(enabled bool, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		enabled: enabled,
		limit:   limit,
		window:  window,
	}
}

// Allow reports whether a request for key may proceed and, when it may not,
// how long the client should wait before retrying.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	r.sweep(now)

	actual, _ := r.entries.LoadOrStore(key, &windowEntry{})
	entry := actual.(*windowEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.Sub(entry.windowStart) >= r.window {
		// New window
		entry.windowStart = now
		entry.count = 0
	}

	if entry.count >= r.limit {
		return false, r.window - now.Sub(entry.windowStart)
	}

	entry.count++
	return true, 0
}

// Reset clears the window for the given key
func (r *RateLimiter) Reset(key string) {
	r.entries.Delete(key)
}

// sweep drops entries whose window expired more than a full window ago,
// so the map does not grow with every client ever seen. Runs at most
// once per window.
func (r *RateLimiter) sweep(now time.Time) {
	r.sweepMu.Lock()
	if now.Sub(r.lastSweep) < r.window {
		r.sweepMu.Unlock()
		return
	}
	r.lastSweep = now
	r.sweepMu.Unlock()

	cutoff := now.Add(-2 * r.window)
	r.entries.Range(func(key, value any) bool {
		entry := value.(*windowEntry)
		entry.mu.Lock()
		stale := entry.windowStart.Before(cutoff)
		entry.mu.Unlock()
		if stale {
			r.entries.Delete(key)
		}
		return true
	})
}

// Middleware returns an Echo middleware enforcing the limit per IP and route
func (r *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !r.enabled {
				return next(c)
			}

			log := logger.FromContext(c)
			key := fmt.Sprintf("%s:%s", c.RealIP(), c.Path())

			allowed, retryAfter := r.Allow(key)
			if !allowed {
				log.Warn("Request rate limited",
					zap.String("ip", c.RealIP()),
					zap.String("path", c.Path()),
					zap.Duration("retry_after", retryAfter))
				prometheus.RecordRateLimited(c.Path())

				seconds := int(retryAfter.Seconds())
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error": "too many requests, please try again later",
				})
			}

			return next(c)
		}
	}
}
