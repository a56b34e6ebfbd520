// Package ratelimit caps how often a single client may submit.
package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Defaults match the public RSVP endpoint: five submissions per hour.
const (
	DefaultLimit  = 5
	DefaultWindow = time.Hour
)

// Decision reports the outcome of a single Allow call.
type Decision struct {
	Allowed bool
	// Remaining is the number of requests left in the current window.
	Remaining int
	// RetryAfter is how long until the oldest request leaves the window.
	// Zero when Allowed is true.
	RetryAfter time.Duration
}

// Limiter is a per-key sliding window limiter. Request timestamps live in a
// go-cache entry that expires one window after the key's last request, so
// idle clients are evicted without a separate sweep.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	hits   *gocache.Cache
}

// New creates a limiter with configuration options.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		limit:  DefaultLimit,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.hits = gocache.New(l.window, l.window)
	return l
}

// Limit returns the configured number of requests per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Allow records a request for key if it fits in the window. Rejected
// requests are not recorded, so a client that keeps retrying is released
// as soon as its oldest accepted request ages out.
func (l *Limiter) Allow(_ context.Context, key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	var recent []time.Time
	if v, ok := l.hits.Get(key); ok {
		for _, t := range v.([]time.Time) {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}
	}

	if len(recent) >= l.limit {
		l.hits.Set(key, recent, gocache.DefaultExpiration)
		return Decision{RetryAfter: recent[0].Add(l.window).Sub(now)}
	}

	recent = append(recent, now)
	l.hits.Set(key, recent, gocache.DefaultExpiration)
	return Decision{Allowed: true, Remaining: l.limit - len(recent)}
}

// Reset forgets every recorded request for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits.Delete(key)
}

// Keys returns the number of clients currently tracked.
func (l *Limiter) Keys() int {
	return l.hits.ItemCount()
}
