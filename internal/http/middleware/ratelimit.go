package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/http/respond"
)

// RateLimiter is a per-client token bucket for the public endpoints.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewRateLimiter creates a limiter allowing rate requests/sec with the given
// burst per client. Idle buckets are evicted on later calls.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		now:     time.Now,
	}
}

const bucketIdleTTL = 10 * time.Minute

// Allow reports whether client may make another request now.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[client]
	if !ok {
		rl.evictIdle(now)
		b = &bucket{tokens: float64(rl.burst), lastTime: now}
		rl.buckets[client] = b
	}

	b.tokens += now.Sub(b.lastTime).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-bucketIdleTTL)
	for client, b := range rl.buckets {
		if b.lastTime.Before(cutoff) {
			delete(rl.buckets, client)
		}
	}
}

// RateLimit rejects requests beyond the limiter's budget with 429. It keys on
// RemoteAddr, which chi's RealIP middleware rewrites from proxy headers.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && limiter.rate > 0 && !limiter.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				respond.Fail(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
