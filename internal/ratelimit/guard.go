package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultRetryAfter is the backoff window applied when the server does not say how long to wait.
const DefaultRetryAfter = 900 * time.Second

// ErrTooManyRequests is returned when the request is rate limited.
var ErrTooManyRequests = errors.New("too many requests")

// WaitError reports that requests are blocked for the remaining Wait duration.
type WaitError struct {
	Wait time.Duration
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("Too many requests. Please wait %d seconds.", e.Seconds())
}

// Unwrap lets errors.Is match ErrTooManyRequests.
func (e *WaitError) Unwrap() error {
	return ErrTooManyRequests
}

// Seconds returns the wait rounded up to whole seconds.
func (e *WaitError) Seconds() int64 {
	return int64(math.Ceil(e.Wait.Seconds()))
}

// Guard tracks a shared "retry not before" instant. Every fetcher checks it
// before issuing a request, and any throttled response pushes it forward.
type Guard struct {
	mu             sync.Mutex
	retryNotBefore time.Time
	now            func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock replaces the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// NewGuard creates a Guard with no active restriction.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// IsBlocked reports whether the backoff window is still open.
func (g *Guard) IsBlocked() bool {
	return g.Remaining() > 0
}

// Remaining returns how long callers still have to wait, or zero.
func (g *Guard) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.retryNotBefore.IsZero() {
		return 0
	}

	remaining := g.retryNotBefore.Sub(g.now())
	if remaining < 0 {
		return 0
	}

	return remaining
}

// Check returns a *WaitError while the window is open and nil otherwise.
func (g *Guard) Check() error {
	if remaining := g.Remaining(); remaining > 0 {
		return &WaitError{Wait: remaining}
	}

	return nil
}

// RecordThrottled sets the window to now + retryAfter. A non-positive
// retryAfter means the server gave no hint and DefaultRetryAfter applies.
// The last writer wins, so a shorter hint can shrink an existing window.
func (g *Guard) RecordThrottled(retryAfter time.Duration) *WaitError {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}

	g.mu.Lock()
	g.retryNotBefore = g.now().Add(retryAfter)
	g.mu.Unlock()

	return &WaitError{Wait: retryAfter}
}

// RetryNotBefore returns the end of the current window, zero if never throttled.
func (g *Guard) RetryNotBefore() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.retryNotBefore
}
