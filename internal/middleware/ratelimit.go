// internal/middleware/ratelimit.go
//
// Per-client token-bucket limiter for credential submissions.
//
// Context
//   Each client IP gets its own golang.org/x/time/rate limiter.  Buckets
//   live in a bounded LRU, so an attacker rotating addresses evicts old
//   buckets instead of growing memory.  A bucket idle longer than Idle is
//   replaced with a fresh one on next use.
//
//   Rejected requests get 429 with Retry-After and count as the “limited”
//   login outcome.
//
//------------------------------------------------------------------------------

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yanizio/adept-signin/internal/cache"
	"github.com/yanizio/adept-signin/internal/logger"
	"github.com/yanizio/adept-signin/internal/metrics"
	"github.com/yanizio/adept-signin/internal/requestinfo"
)

const maxVisitors = 10000

type visitor struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one bucket per client IP.
type RateLimiter struct {
	perMinute float64
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time

	visitors *cache.LRU[string, *visitor]
}

// NewRateLimiter allows perMinute requests per IP with the given burst.
// idle <= 0 keeps buckets until evicted by capacity.
func NewRateLimiter(perMinute float64, burst int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		limit:     rate.Limit(perMinute / 60),
		burst:     burst,
		idle:      idle,
		now:       time.Now,
		visitors:  cache.New[string, *visitor](maxVisitors),
	}
}

// Allow reports whether key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()
	v := rl.visitors.GetOrAdd(key, func() *visitor {
		return &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst), lastSeen: now}
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	if rl.idle > 0 && now.Sub(v.lastSeen) > rl.idle {
		v.limiter = rate.NewLimiter(rl.limit, rl.burst)
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Handler rejects requests over the per-IP budget.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var key string
		if ri := requestinfo.FromContext(r.Context()); ri != nil && ri.ClientIP != nil {
			key = ri.ClientIP.String()
		} else {
			key = requestinfo.ClientIP(r, false).String()
		}

		if !rl.Allow(key) {
			metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeLimited).Inc()
			logger.FromContext(r.Context()).Warnw("login rate limited", "ip", key)

			retry := 1
			if rl.perMinute > 0 {
				retry = int(math.Ceil(60 / rl.perMinute)) // seconds per token
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
