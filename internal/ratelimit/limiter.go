package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter performs admission control in front of the upload path. Each client
// key (normally the caller's IP) gets its own token bucket; the map is shared
// across all request goroutines.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// New creates a per-key token bucket limiter allowing rps requests per second
// with the given burst.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether a request for the given key may proceed. Safe for
// concurrent use.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}
