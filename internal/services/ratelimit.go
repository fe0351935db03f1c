package services

import (
	"sync"
	"time"
)

// CreationLimiter is the advisory fast-path check on profile creation: a
// per-process counter with reset-on-expiry windows. It exists to reject
// bursts cheaply before any store or blob call; the durable in-transaction
// re-check remains the sole source of truth (the two are reconciled by the
// transaction rejecting the overflow).
type CreationLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	window  time.Duration
	max     int
}

type limiterEntry struct {
	count     int
	resetTime time.Time
}

func NewCreationLimiter(window time.Duration, max int) *CreationLimiter {
	return &CreationLimiter{
		entries: make(map[string]*limiterEntry),
		window:  window,
		max:     max,
	}
}

// Allow records one attempt for the user and reports whether it fits the
// window. Expired entries are evicted as they are touched, keeping the map
// bounded by the set of users active within one window.
func (l *CreationLimiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, exists := l.entries[userID]
	if !exists || now.After(e.resetTime) {
		l.entries[userID] = &limiterEntry{count: 1, resetTime: now.Add(l.window)}
		l.sweepLocked(now)
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

func (l *CreationLimiter) sweepLocked(now time.Time) {
	for id, e := range l.entries {
		if now.After(e.resetTime) {
			delete(l.entries, id)
		}
	}
}
