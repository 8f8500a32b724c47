// Package ratelimit guards the credential endpoints with a per-client
// sliding-window limiter. Windows live in memory; limits are per process.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limiter tracks request timestamps per key over a sliding window. The
// window survives boundary bursts that a fixed counter would let through.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string][]time.Time
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]time.Time),
	}
}

// Allow records one request for key and reports whether it fits the window.
// The second return is the seconds until the oldest request expires, for the
// Retry-After header.
func (l *Limiter) Allow(key string) (bool, int) {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.buckets[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.buckets[key] = kept
		retry := int(time.Until(kept[0].Add(l.window)).Seconds()) + 1
		return false, retry
	}
	l.buckets[key] = append(kept, now)
	return true, 0
}

// Reset clears the window for a key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
// Mount it on login and registration routes only; authenticated traffic is
// not metered.
func Middleware(l *Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := l.Allow(r.RemoteAddr)
			if !ok {
				log.Warn("rate limit exceeded",
					zap.String("remote", r.RemoteAddr),
					zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"message":"Too many requests, slow down"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
