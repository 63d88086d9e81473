package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/examhall/examhall-backend/internal/response"
)

// RateLimiter is a fixed-window per-IP limiter. Windows reset wholesale
// rather than refilling gradually, which is coarse but cheap and good
// enough to blunt credential stuffing on the login endpoints.
type RateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	interval time.Duration
}

type window struct {
	count   int
	startAt time.Time
}

// NewRateLimiter allows limit requests per interval per client IP.
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		interval: interval,
	}
	go rl.reap()
	return rl
}

// Middleware returns the Gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.startAt) >= rl.interval {
		rl.windows[ip] = &window{count: 1, startAt: now}
		return true
	}

	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// reap drops windows that expired long ago so the map does not grow with
// every IP ever seen.
func (rl *RateLimiter) reap() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-2 * rl.interval)
		rl.mu.Lock()
		for ip, w := range rl.windows {
			if w.startAt.Before(cutoff) {
				delete(rl.windows, ip)
			}
		}
		rl.mu.Unlock()
	}
}
