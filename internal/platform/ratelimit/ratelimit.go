// Package ratelimit throttles write bursts per key (usually the actor id).
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yond5413/pentagram/internal/platform/api"
	"github.com/yond5413/pentagram/internal/platform/httpserver"
)

// Limiter keeps one token bucket per key and forgets idle keys.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*entry
	rate    rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// New creates a limiter allowing perSecond events with the given burst per key.
func New(perSecond float64, burst int) *Limiter {
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &Limiter{
		buckets: make(map[string]*entry),
		rate:    rate.Limit(perSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether key may perform one more event now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = e
	}
	e.seen = now
	if len(l.buckets) > 1024 {
		l.sweep(now)
	}
	return e.lim.AllowN(now, 1)
}

func (l *Limiter) sweep(now time.Time) {
	for k, e := range l.buckets {
		if now.Sub(e.seen) > l.idle {
			delete(l.buckets, k)
		}
	}
}

// Middleware rate-limits requests by the key returned from keyFn; an empty
// key falls back to the remote address.
func (l *Limiter) Middleware(keyFn func(*http.Request) string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if keyFn != nil {
				key = keyFn(r)
			}
			if key == "" {
				key = r.RemoteAddr
			}
			if !l.Allow(key) {
				rid := httpserver.RequestIDFromContext(r.Context())
				api.RateLimited(w, api.CodeRateLimited, "Too many requests", rid, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
