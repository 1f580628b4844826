package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window counter per client. Each client gets its own
// window so one chatty autosave loop cannot reset everyone else's budget.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*clientWindow
	rate    int
	window  time.Duration
}

type clientWindow struct {
	count   int
	started time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*clientWindow),
		rate:    rate,
		window:  window,
	}
}

// Allow records one request for the client and reports whether it fits the
// current window.
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[client]
	if !ok || now.Sub(w.started) > l.window {
		// Expired entries for other clients go at the same time
		for key, win := range l.windows {
			if now.Sub(win.started) > l.window {
				delete(l.windows, key)
			}
		}
		l.windows[client] = &clientWindow{count: 1, started: now}
		return true
	}

	if w.count >= l.rate {
		return false
	}
	w.count++
	return true
}

// RateLimit middleware limits requests per client IP. It runs before auth,
// so the IP is the only identity available.
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiter.Allow(clientIP) {
			slog.Warn("rate limit exceeded",
				"client_ip", clientIP,
				"request_id", GetRequestID(c),
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
