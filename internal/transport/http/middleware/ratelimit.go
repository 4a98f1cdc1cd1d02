package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"nomina/internal/transport/http/api"
)

type rateBucket struct {
	count int
	reset time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	log     *zap.Logger
	now     func() time.Time
	clients map[string]*rateBucket
}

// RateLimit throttles requests per tenant and user, falling back to the client
// address for anonymous callers. It guards the routes that start calculation
// runs. A non-positive limit disables it.
func RateLimit(limit int, window time.Duration, log *zap.Logger) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, window, log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRateLimiter(limit int, window time.Duration, log *zap.Logger) *rateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		log:     log,
		now:     time.Now,
		clients: map[string]*rateBucket{},
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.TenantID + ":" + user.UserID
	}
	return "ip:" + clientIP(r)
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 {
		return true
	}

	key := actorOrIPKey(r)
	now := rl.now()

	rl.mu.Lock()
	bucket, ok := rl.clients[key]
	if !ok || now.After(bucket.reset) {
		bucket = &rateBucket{reset: now.Add(rl.window)}
		rl.clients[key] = bucket
	}
	bucket.count++
	remaining := rl.limit - bucket.count
	resetIn := durationSeconds(bucket.reset.Sub(now))
	overLimit := bucket.count > rl.limit
	rl.mu.Unlock()

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))

	if overLimit {
		w.Header().Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
		rl.log.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("limit", rl.limit),
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many calculation runs", GetRequestID(r.Context()))
		return false
	}
	return true
}

func durationSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return max(int(d.Seconds()), 1)
}
