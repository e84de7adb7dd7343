// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowLimiter admits up to max actions per key within a rolling
// window. Each key keeps the timestamps of its recent actions, ordered
// oldest first; entries older than the window are pruned on every access so
// memory for inactive keys cannot grow unbounded. Safe for concurrent use.
type SlidingWindowLimiter struct {
	max    int
	window time.Duration

	mu      sync.RWMutex
	entries map[string]*slidingEntry

	now func() time.Time // test hook
}

type slidingEntry struct {
	mu    sync.Mutex
	times []time.Time
}

// NewSlidingWindowLimiter creates a limiter admitting max actions per
// rolling window.
func NewSlidingWindowLimiter(max int, window time.Duration) *SlidingWindowLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	return &SlidingWindowLimiter{
		max:     max,
		window:  window,
		entries: make(map[string]*slidingEntry),
		now:     time.Now,
	}
}

// Check reports whether key may perform another action. It does not record
// anything - pair it with Record after the action succeeds. Returns nil
// when admitted, or a *LimitExceededError carrying the current count and
// the instant the oldest action ages out.
func (l *SlidingWindowLimiter) Check(key string) error {
	e := l.entry(key)
	now := l.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.prune(now, l.window)

	if len(e.times) < l.max {
		return nil
	}
	return &LimitExceededError{
		Key:     key,
		Count:   len(e.times),
		Max:     l.max,
		ResetAt: e.times[0].Add(l.window),
	}
}

// Record registers a completed action for key.
func (l *SlidingWindowLimiter) Record(key string) {
	e := l.entry(key)
	now := l.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.prune(now, l.window)
	e.times = append(e.times, now)
}

// Count returns the number of non-expired actions recorded for key.
func (l *SlidingWindowLimiter) Count(key string) int {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if !ok {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prune(l.now(), l.window)
	return len(e.times)
}

// Remaining returns how many more actions key may perform in the current
// window, never negative.
func (l *SlidingWindowLimiter) Remaining(key string) int {
	remaining := l.max - l.Count(key)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears all state for key.
func (l *SlidingWindowLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Clear removes all keys. Intended for tests and administrative resets.
func (l *SlidingWindowLimiter) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*slidingEntry)
}

func (l *SlidingWindowLimiter) entry(key string) *slidingEntry {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[key]; ok {
		return e
	}
	e = &slidingEntry{}
	l.entries[key] = e
	return e
}

// prune drops timestamps older than the window. Caller holds e.mu.
func (e *slidingEntry) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(e.times) && !e.times[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.times = append(e.times[:0], e.times[i:]...)
	}
}
