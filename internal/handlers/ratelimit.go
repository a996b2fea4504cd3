package handlers

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs
	cleanupThreshold = 500
	// maxIdleAge is how long an idle client entry survives a cleanup pass
	maxIdleAge = 10 * time.Minute
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter hands out one token bucket per client key and prunes idle
// buckets inline.
type ClientRateLimiter struct {
	clients map[string]*clientEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a limiter allowing perSecond requests with the given burst
func NewClientRateLimiter(perSecond float64, burst int) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: make(map[string]*clientEntry),
		r:       rate.Limit(perSecond),
		b:       burst,
	}
}

// GetLimiter returns the bucket for key, pruning stale entries when the map
// exceeds cleanupThreshold
func (l *ClientRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.clients) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.clients {
			if e.lastSeen.Before(cutoff) {
				delete(l.clients, k)
			}
		}
	}

	e, exists := l.clients[key]
	if !exists {
		e = &clientEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[key] = e
	}
	e.lastSeen = now

	return e.limiter
}

// Allow reports whether key may make a request now
func (l *ClientRateLimiter) Allow(key string) bool {
	return l.GetLimiter(key).Allow()
}

// Middleware rate limits requests by the key returned from keyFn
func (l *ClientRateLimiter) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(keyFn(r)) {
				w.Header().Set("Retry-After", "1")
				respondError(w, ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
