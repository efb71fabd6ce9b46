package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/logging"
)

// bucketExpiry is how long an idle client's bucket is kept.
const bucketExpiry = 10 * time.Minute

// RateLimiter implements per-client token bucket rate limiting.
type RateLimiter struct {
	buckets           *gocache.Cache
	requestsPerMinute int
	burst             int
	logger            logging.Logger
	mutex             sync.Mutex
}

// TokenBucket holds the remaining tokens of one client.
type TokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mutex      sync.Mutex
}

// RateLimitResult represents the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter allows requestsPerMinute requests per client, all of which
// may arrive in a burst. A non-positive rate disables limiting.
func NewRateLimiter(requestsPerMinute int, logger logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RateLimiter{
		buckets:           gocache.New(bucketExpiry, bucketExpiry/2),
		requestsPerMinute: requestsPerMinute,
		burst:             requestsPerMinute,
		logger:            logger.WithComponent("ratelimit"),
	}
}

// Enabled reports whether the limiter rejects anything.
func (rl *RateLimiter) Enabled() bool {
	return rl != nil && rl.requestsPerMinute > 0
}

// Check consumes one token for key, usually the client IP.
func (rl *RateLimiter) Check(key string) RateLimitResult {
	if !rl.Enabled() {
		return RateLimitResult{Allowed: true}
	}
	return rl.getBucket(key).consume(time.Now())
}

// ActiveClients returns the number of clients with a live bucket.
func (rl *RateLimiter) ActiveClients() int {
	if rl == nil {
		return 0
	}
	return rl.buckets.ItemCount()
}

func (rl *RateLimiter) getBucket(key string) *TokenBucket {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if v, ok := rl.buckets.Get(key); ok {
		// Touch to extend the expiry of an active client.
		rl.buckets.SetDefault(key, v)
		return v.(*TokenBucket)
	}
	bucket := &TokenBucket{
		tokens:     float64(rl.burst),
		capacity:   float64(rl.burst),
		refillRate: float64(rl.requestsPerMinute) / 60,
		lastRefill: time.Now(),
	}
	rl.buckets.SetDefault(key, bucket)
	return bucket
}

func (tb *TokenBucket) consume(now time.Time) RateLimitResult {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	if elapsed := now.Sub(tb.lastRefill).Seconds(); elapsed > 0 {
		tb.tokens += elapsed * tb.refillRate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return RateLimitResult{Allowed: true, Remaining: int(tb.tokens)}
	}

	missing := 1 - tb.tokens
	return RateLimitResult{
		Allowed:    false,
		RetryAfter: time.Duration(missing / tb.refillRate * float64(time.Second)),
	}
}

// RateLimitMiddleware rejects requests over the limit with 429.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !rl.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			result := rl.Check(ip)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			if !result.Allowed {
				seconds := int(result.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				rl.logger.Warn(r.Context(),
					errors.NewSecurityError("RATE_LIMITED", "rate limit exceeded"),
					"rejecting request", "ip", ip, "path", r.URL.Path)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
