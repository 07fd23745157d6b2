// Package ratelimit locks out chats whose commands keep failing.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Limits used by New.
const (
	DefaultMaxFailures = 5
	DefaultWindow      = 15 * time.Minute
	DefaultLockout     = 15 * time.Minute
)

// ErrLocked is returned by Check while a chat is locked out.
var ErrLocked = errors.New("chat locked out")

type record struct {
	failures []time.Time
	lockedAt time.Time
}

// Limiter counts failed commands per chat. A chat reaching the failure
// threshold within the window is locked out for the lockout duration.
type Limiter struct {
	mu          sync.Mutex
	records     map[int64]*record
	maxFailures int
	window      time.Duration
	lockout     time.Duration
	now         func() time.Time
}

// New returns a limiter with the default per-chat budget.
func New() *Limiter {
	return &Limiter{
		records:     make(map[int64]*record),
		maxFailures: DefaultMaxFailures,
		window:      DefaultWindow,
		lockout:     DefaultLockout,
		now:         time.Now,
	}
}

// WithLimits overrides the failure threshold, the window failures are
// counted in and the lockout duration.
func (l *Limiter) WithLimits(maxFailures int, window, lockout time.Duration) *Limiter {
	l.maxFailures = maxFailures
	l.window = window
	l.lockout = lockout
	return l
}

// WithClock overrides the time source (for testing).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Check returns an error wrapping ErrLocked if the chat is locked out.
func (l *Limiter) Check(chatID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.records[chatID]
	if r == nil || r.lockedAt.IsZero() {
		return nil
	}

	elapsed := l.now().Sub(r.lockedAt)
	if elapsed < l.lockout {
		return fmt.Errorf("%w: try again in %s", ErrLocked, (l.lockout - elapsed).Truncate(time.Second))
	}
	delete(l.records, chatID)
	return nil
}

// RecordFailure records a failed command and reports whether it locked
// the chat out.
func (l *Limiter) RecordFailure(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	r := l.records[chatID]
	if r == nil {
		r = &record{}
		l.records[chatID] = r
	}
	if !r.lockedAt.IsZero() {
		return false
	}

	cutoff := now.Add(-l.window)
	fresh := r.failures[:0]
	for _, t := range r.failures {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	r.failures = append(fresh, now)

	if len(r.failures) >= l.maxFailures {
		r.lockedAt = now
		r.failures = nil
		return true
	}
	return false
}

// Reset clears the failures of a chat after a successful command.
func (l *Limiter) Reset(chatID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, chatID)
}
