package server

import (
	"sync"
	"time"
)

// rateLimiter caps attempts per key inside a fixed window. It exists to slow
// credential stuffing on the auth endpoints, so the window resets fully once
// elapsed rather than sliding.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	windows   map[string]*attemptWindow
	nextSweep time.Time
}

type attemptWindow struct {
	openedAt time.Time
	attempts int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*attemptWindow),
	}
}

// Allow records one attempt for the key and reports whether it is within the
// limit. An empty key (no resolvable client address) is always rejected.
func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.After(r.nextSweep) {
		r.sweep(now)
	}

	w := r.windows[key]
	if w == nil || now.Sub(w.openedAt) >= r.window {
		w = &attemptWindow{openedAt: now}
		r.windows[key] = w
	}
	if w.attempts >= r.limit {
		return false
	}
	w.attempts++
	return true
}

// sweep drops expired windows so one-off clients do not accumulate forever.
// Runs at most once per window, under the caller's lock.
func (r *rateLimiter) sweep(now time.Time) {
	for key, w := range r.windows {
		if now.Sub(w.openedAt) >= r.window {
			delete(r.windows, key)
		}
	}
	r.nextSweep = now.Add(r.window)
}
