// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	"github.com/dalemusser/onepager/internal/app/system/auth"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter hands out a token bucket per key. Buckets live in a bounded LRU,
// so a key idle long enough to be evicted starts over with a full bucket.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

// New creates a limiter allowing perMinute sustained requests per key with
// bursts of up to burst. size bounds how many keys are tracked.
func New(perMinute float64, burst, size int) (*Limiter, error) {
	if perMinute <= 0 || burst <= 0 {
		return nil, fmt.Errorf("ratelimit: rate and burst must be positive")
	}
	buckets, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: %w", err)
	}
	return &Limiter{
		buckets: buckets,
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
	}, nil
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(l.limit, l.burst)
	l.buckets.Add(key, b)
	return b
}

// Allow reports whether key may proceed now. When it may not, wait is how
// long until a token is available.
func (l *Limiter) Allow(key string) (ok bool, wait time.Duration) {
	return l.allowAt(key, time.Now())
}

func (l *Limiter) allowAt(key string, now time.Time) (bool, time.Duration) {
	res := l.bucket(key).ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.buckets.Remove(key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	return l.buckets.Len()
}

// Key returns the bucket key for a request: the signed-in user when there
// is one, otherwise the client address.
func Key(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return "user:" + u.ID
	}
	return "ip:" + ClientIP(r)
}

// ClientIP extracts the client IP from an HTTP request. chi's RealIP
// middleware runs first and folds trusted proxy headers into RemoteAddr.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}

// Middleware rejects requests over the limit with a JSON 429 and a
// Retry-After header in whole seconds.
func Middleware(l *Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := Key(r)
			ok, wait := l.Allow(key)
			if !ok {
				if wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				logger.Debug("rate limited",
					zap.String("key", key),
					zap.String("path", r.URL.Path),
					zap.Duration("wait", wait))
				uierrors.Write(w, http.StatusTooManyRequests, "too many refreshes; try again shortly")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
