package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// FixedWindowLimiter enforces a per-client-IP fixed window: at most limit
// requests per window, counters reset when the window containing the first
// request expires. The clock is injectable so tests can drive time.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	length  time.Duration
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewFixedWindowLimiter(limit int, length time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		length:  length,
		now:     time.Now,
	}
}

// WithClock replaces the time source; test hook.
func (l *FixedWindowLimiter) WithClock(now func() time.Time) *FixedWindowLimiter {
	l.now = now
	return l
}

// Allow records a request for the key and reports whether it is within the
// limit.
func (l *FixedWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.length {
		l.windows[key] = &window{start: now, count: 1}
		l.evictExpired(now)
		return true
	}

	w.count++
	return w.count <= l.limit
}

// evictExpired drops stale windows so the map does not grow with every IP
// ever seen. Called with the lock held.
func (l *FixedWindowLimiter) evictExpired(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.length {
			delete(l.windows, key)
		}
	}
}

func (l *FixedWindowLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:      http.StatusTooManyRequests,
				Message:   "too many requests, slow down",
				RequestID: c.GetString(ContextRequestID),
			})
			return
		}
		c.Next()
	}
}
