package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"clause-extractor/internal/transport/http/response"
)

// rateLimiter is a fixed-window per-IP counter.
type rateLimiter struct {
	mu        sync.Mutex
	tokens    map[string]int
	lastReset time.Time
	rate      int
	window    time.Duration
}

// RateLimit limits requests per client IP within the window. A rate of zero
// disables the limiter.
func RateLimit(rate int, window time.Duration) gin.HandlerFunc {
	limiter := &rateLimiter{
		tokens:    make(map[string]int),
		lastReset: time.Now(),
		rate:      rate,
		window:    window,
	}

	return func(c *gin.Context) {
		if limiter.rate <= 0 {
			c.Next()
			return
		}

		clientIP := c.ClientIP()

		limiter.mu.Lock()
		if time.Since(limiter.lastReset) > limiter.window {
			limiter.tokens = make(map[string]int)
			limiter.lastReset = time.Now()
		}

		count := limiter.tokens[clientIP]
		if count >= limiter.rate {
			limiter.mu.Unlock()

			slog.Warn("rate limit exceeded",
				"client_ip", clientIP,
				"request_id", GetRequestID(c),
			)
			response.Error(c, http.StatusTooManyRequests, response.KindInvalidRequest,
				"rate limit exceeded, try again later")
			c.Abort()
			return
		}

		limiter.tokens[clientIP] = count + 1
		limiter.mu.Unlock()

		c.Next()
	}
}
