// Package ratelimit provides a process-local sliding-window limiter.
//
// Counts live in memory only; a multi-instance deployment needs a shared
// store behind the same Limiter interface.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether one more call for key fits in the window.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

// sweepEvery bounds how often idle keys are dropped.
const sweepEvery = time.Minute

type bucket struct {
	calls  []time.Time
	window time.Duration
}

// SlidingWindow keeps the timestamps of recent calls per key. Keys with no
// call inside their window are swept at most once per sweepEvery.
type SlidingWindow struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

// NewSlidingWindow builds a limiter; a nil clock means time.Now.
func NewSlidingWindow(now func() time.Time) *SlidingWindow {
	if now == nil {
		now = time.Now
	}
	return &SlidingWindow{
		buckets:   make(map[string]*bucket),
		now:       now,
		lastSweep: now(),
	}
}

// Allow records a call for key when fewer than limit calls happened within
// window. When denied it returns how long until the oldest call leaves the window.
func (l *SlidingWindow) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	if l == nil || limit <= 0 || window <= 0 {
		return true, 0
	}
	now := l.now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	b.window = window
	b.calls = trim(b.calls, cutoff)

	if len(b.calls) >= limit {
		return false, b.calls[0].Sub(cutoff)
	}
	b.calls = append(b.calls, now)
	return true, 0
}

func trim(calls []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	return calls[i:]
}

// sweep drops keys whose calls have all left their window. Callers hold mu.
func (l *SlidingWindow) sweep(now time.Time) {
	for key, b := range l.buckets {
		b.calls = trim(b.calls, now.Add(-b.window))
		if len(b.calls) == 0 {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// Reset drops all recorded calls.
func (l *SlidingWindow) Reset() {
	l.mu.Lock()
	l.buckets = make(map[string]*bucket)
	l.mu.Unlock()
}

// Len reports how many keys are tracked.
func (l *SlidingWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
