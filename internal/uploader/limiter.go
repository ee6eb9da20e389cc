package uploader

// limiter.go bounds how many capability calls run at once.
//
// The limiter is a channel semaphore. When all slots are taken an operation
// waits up to maxWait for one, then fails with ErrTooManyOperations. The
// wait also ends when the operation's own context is cancelled, so a file
// removed while queued never reaches the capability.

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultMaxWaitTime is how long to wait for a slot before failing.
const DefaultMaxWaitTime = 30 * time.Second

// Limiter controls concurrent operations using a semaphore.
type Limiter struct {
	semaphore chan struct{}
	maxWait   time.Duration
	active    atomic.Int64
	waiting   atomic.Int64
}

// NewLimiter creates a limiter allowing at most maxConcurrent operations.
// Returns nil when maxConcurrent is not positive; a nil *Limiter never blocks.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		return nil
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Limiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a slot. The caller must Release after a nil return.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	// Fast path, no timer.
	select {
	case l.semaphore <- struct{}{}:
		l.active.Add(1)
		return nil
	default:
	}

	l.waiting.Add(1)
	defer l.waiting.Add(-1)

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyOperations
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	if l == nil {
		return
	}
	l.active.Add(-1)
	<-l.semaphore
}

// LimiterStatus is a point-in-time view of a limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Waiting       int `json:"waiting"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state. A nil limiter reports zeros.
func (l *Limiter) Status() LimiterStatus {
	if l == nil {
		return LimiterStatus{}
	}
	return LimiterStatus{
		Active:        int(l.active.Load()),
		Waiting:       int(l.waiting.Load()),
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
