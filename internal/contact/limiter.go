package contact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitError tells the client how long to wait before trying again.
type RateLimitError struct {
	WaitMinutes int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %d minutes", e.WaitMinutes)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// EntryStore persists one row per accepted submission.
type EntryStore interface {
	PruneRateLimit(ctx context.Context, cutoff time.Time) error
	CountRateLimit(ctx context.Context, ip string, since time.Time) (int, error)
	OldestRateLimit(ctx context.Context, ip string, since time.Time) (time.Time, error)
	InsertRateLimit(ctx context.Context, ip string, at time.Time) error
}

// Limiter allows at most Max accepted submissions per IP within Window,
// counting the persisted entries younger than Window. Check and Record are
// separate statements, so concurrent requests from one IP may overshoot.
type Limiter struct {
	store  EntryStore
	max    int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(store EntryStore, max int, window time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, max: max, window: window, now: now}
}

// Check sweeps expired entries and returns a *RateLimitError when ip has used
// up its allowance. Storage failures are logged and let the request through.
func (l *Limiter) Check(ctx context.Context, ip string) error {
	now := l.now()
	since := now.Add(-l.window)

	if err := l.store.PruneRateLimit(ctx, since); err != nil {
		log.Printf("Rate limit check error: %v", err)
		return nil
	}

	count, err := l.store.CountRateLimit(ctx, ip, since)
	if err != nil {
		log.Printf("Rate limit check error: %v", err)
		return nil
	}
	if count < l.max {
		return nil
	}

	wait := int(l.window / time.Minute)
	oldest, err := l.store.OldestRateLimit(ctx, ip, since)
	if err != nil {
		log.Printf("Rate limit wait estimate error: %v", err)
	} else {
		wait = int(math.Ceil(oldest.Add(l.window).Sub(now).Minutes()))
	}
	if wait < 1 {
		wait = 1
	}
	return &RateLimitError{WaitMinutes: wait}
}

// Record stores one accepted submission for ip. A failed insert is logged
// and otherwise ignored: the message is already stored.
func (l *Limiter) Record(ctx context.Context, ip string) {
	if err := l.store.InsertRateLimit(ctx, ip, l.now()); err != nil {
		log.Printf("Rate limit update error: %v", err)
	}
}
