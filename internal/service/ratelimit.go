package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chat_playground/internal/metrics"
	"chat_playground/internal/repository"
)

// LimitStore is the slice of the credential store the limiter needs.
type LimitStore interface {
	RateLimit(ctx context.Context, userID int) (limit int, found bool, err error)
	SetRateLimit(ctx context.Context, userID, limit int) error
}

// Window is a copy of a user's current fixed window.
type Window struct {
	UserID      int       `json:"userId"`
	Count       int       `json:"count"`
	Limit       int       `json:"limit"`
	WindowStart time.Time `json:"windowStart"`
}

// Remaining is the number of calls still allowed in the window.
func (w Window) Remaining() int {
	if w.Count >= w.Limit {
		return 0
	}
	return w.Limit - w.Count
}

// RateLimiter is a per-user fixed-window counter keyed by the wall-clock minute.
// A burst of limit calls at the end of one minute followed by limit calls at the
// start of the next is allowed. State is process-local: it is not shared between
// instances and is lost on restart.
type RateLimiter struct {
	store LimitStore
	now   func() time.Time

	mu      sync.Mutex
	windows map[int]*Window
	// updates counts successful UpdateLimit calls; a window reset retries
	// its store read when it changed meanwhile.
	updates uint64
}

func NewRateLimiter(store LimitStore) *RateLimiter {
	return &RateLimiter{
		store:   store,
		now:     time.Now,
		windows: make(map[int]*Window),
	}
}

// WithClock replaces the wall clock, mainly for tests.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// CheckAndConsume charges one call to the user's current window and returns how
// many calls remain. A denied call returns ErrRateLimitExceeded and does not
// count. Unknown users are denied. Store failures are returned wrapped.
func (l *RateLimiter) CheckAndConsume(ctx context.Context, userID int) (int, error) {
	remaining, err := l.consume(ctx, userID)
	switch {
	case err == nil:
		metrics.RecordRateLimit(metrics.ResultAllowed)
	case errors.Is(err, ErrRateLimitExceeded):
		metrics.RecordRateLimit(metrics.ResultDenied)
	default:
		metrics.RecordRateLimit(metrics.ResultError)
	}
	return remaining, err
}

func (l *RateLimiter) consume(ctx context.Context, userID int) (int, error) {
	for {
		remaining, retry, err := l.tryConsume(ctx, userID)
		if !retry {
			return remaining, err
		}
	}
}

// tryConsume reads the ceiling outside the lock. If a new window must be
// opened and a limit update landed after that read, it asks for a retry so the
// window never starts with a stale ceiling.
func (l *RateLimiter) tryConsume(ctx context.Context, userID int) (remaining int, retry bool, err error) {
	l.mu.Lock()
	seen := l.updates
	l.mu.Unlock()

	limit, found, err := l.store.RateLimit(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("load rate limit for user %d: %w", userID, err)
	}

	if !found {
		return 0, false, ErrRateLimitExceeded
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[userID]
	if !ok || !sameMinute(w.WindowStart, now) {
		if l.updates != seen {
			return 0, true, nil
		}
		if limit < 1 {
			return 0, false, ErrRateLimitExceeded
		}
		l.windows[userID] = &Window{UserID: userID, Count: 1, Limit: limit, WindowStart: now}
		return limit - 1, false, nil
	}

	if w.Count >= w.Limit {
		return 0, false, ErrRateLimitExceeded
	}
	w.Count++
	return w.Limit - w.Count, false, nil
}

// UpdateLimit stores a new ceiling and applies it to a live window immediately.
func (l *RateLimiter) UpdateLimit(ctx context.Context, userID, limit int) error {
	if limit < 1 {
		return fmt.Errorf("%w: rate limit must be >= 1", ErrValidation)
	}
	if err := l.store.SetRateLimit(ctx, userID, limit); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("store rate limit for user %d: %w", userID, err)
	}

	l.mu.Lock()
	l.updates++
	if w, ok := l.windows[userID]; ok {
		w.Limit = limit
	}
	l.mu.Unlock()
	return nil
}

// Snapshot returns the user's window if one exists for the current minute.
func (l *RateLimiter) Snapshot(userID int) (Window, bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[userID]
	if !ok || !sameMinute(w.WindowStart, now) {
		return Window{}, false
	}
	return *w, true
}

// Prune drops windows whose minute has passed and returns how many were removed.
// The next call for such a user would start a fresh window anyway.
func (l *RateLimiter) Prune() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, w := range l.windows {
		if !sameMinute(w.WindowStart, now) {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}

// Run prunes stale windows every tick until ctx is canceled.
func (l *RateLimiter) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Prune()
		}
	}
}

// sameMinute compares the calendar minute of a and b component-wise in a's zone.
func sameMinute(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Minute() == b.Minute() &&
		a.Hour() == b.Hour() &&
		a.Day() == b.Day() &&
		a.Month() == b.Month() &&
		a.Year() == b.Year()
}
