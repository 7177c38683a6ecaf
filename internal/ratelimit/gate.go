// Package ratelimit paces calls to quota-constrained upstream APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum interval between consecutive calls. It only
// serializes the "next allowed call" time; callers wait outside the lock.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	now      func() time.Time
}

// NewGate creates a gate with the given minimum interval between calls.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval, now: time.Now}
}

// Interval returns the configured minimum spacing.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Wait blocks until the caller may issue a request, or until ctx is done.
// A caller whose context ends while waiting gives its slot back only if no
// later caller has reserved after it.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	now := g.now()
	slot := g.next
	if slot.Before(now) {
		slot = now
	}
	g.next = slot.Add(g.interval)
	reserved := g.next
	g.mu.Unlock()

	delay := slot.Sub(now)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		g.mu.Lock()
		if g.next.Equal(reserved) {
			g.next = slot
		}
		g.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
