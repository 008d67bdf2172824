package middleware

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

type windowCounter interface {
	// Incr increments key and returns the new value. The key expires after
	// window when it is created.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter is a fixed-window limiter keyed by client address. Counters
// live in Redis so every replica shares them.
type RateLimiter struct {
	counter windowCounter
	limit   int
	window  time.Duration
	prefix  string
}

func NewRateLimiter(counter windowCounter, name string, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		prefix:  "ratelimit:" + name + ":",
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := time.Now().UnixNano() / int64(rl.window)
		key := fmt.Sprintf("%s%s:%d", rl.prefix, clientIP(r), bucket)

		count, err := rl.counter.Incr(r.Context(), key, rl.window)
		if err != nil {
			// Fail open: the limiter only protects against trigger floods.
			log.Printf("rate limiter unavailable: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(rl.limit) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP drops the port so every connection from one host shares a window.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
