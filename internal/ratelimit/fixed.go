// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// FixedWindowLimiter admits up to max attempts per key within a fixed
// window. When a window elapses the counter resets wholesale; individual
// entries are never evicted. Safe for concurrent use.
type FixedWindowLimiter struct {
	max    int
	window time.Duration

	entries sync.Map // key string -> *fixedEntry

	now func() time.Time // test hook
}

// fixedEntry holds one key's current window. Rotation swaps in a fresh
// window struct, so counts from an expired window can never leak into the
// new one.
type fixedEntry struct {
	window atomic.Pointer[fixedWindow]
}

type fixedWindow struct {
	start time.Time
	count atomic.Int64
}

// NewFixedWindowLimiter creates a limiter admitting max attempts per window.
func NewFixedWindowLimiter(max int, window time.Duration) *FixedWindowLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow records an attempt for key and reports whether it is admitted.
// The attempt is counted whether or not it is admitted, matching
// attempt-throttling semantics: hammering a closed door keeps it closed.
func (l *FixedWindowLimiter) Allow(key string) bool {
	return l.Check(key) == nil
}

// Check records an attempt for key and returns nil when admitted, or a
// *LimitExceededError describing the rejection.
func (l *FixedWindowLimiter) Check(key string) error {
	e := l.entry(key)
	now := l.now()

	for {
		w := e.window.Load()
		if now.Sub(w.start) > l.window {
			fresh := &fixedWindow{start: now}
			e.window.CompareAndSwap(w, fresh)
			continue
		}

		n := w.count.Add(1)
		if e.window.Load() != w {
			// Window rotated while we counted; the attempt landed in a
			// dead window, retry against the current one.
			continue
		}

		if int(n) <= l.max {
			return nil
		}
		return &LimitExceededError{
			Key:     key,
			Count:   int(n),
			Max:     l.max,
			ResetAt: w.start.Add(l.window),
		}
	}
}

// Count returns the number of attempts recorded for key in its current
// window, zero when the window has expired or the key is unknown.
func (l *FixedWindowLimiter) Count(key string) int {
	v, ok := l.entries.Load(key)
	if !ok {
		return 0
	}
	w := v.(*fixedEntry).window.Load()
	if l.now().Sub(w.start) > l.window {
		return 0
	}
	return int(w.count.Load())
}

// Reset clears all state for key, reopening its window immediately.
// Called on successful login in the login-throttle use.
func (l *FixedWindowLimiter) Reset(key string) {
	l.entries.Delete(key)
}

// Clear removes all keys. Intended for tests and administrative resets.
func (l *FixedWindowLimiter) Clear() {
	l.entries.Range(func(key, _ any) bool {
		l.entries.Delete(key)
		return true
	})
}

func (l *FixedWindowLimiter) entry(key string) *fixedEntry {
	if v, ok := l.entries.Load(key); ok {
		return v.(*fixedEntry)
	}
	e := &fixedEntry{}
	e.window.Store(&fixedWindow{start: l.now()})
	actual, _ := l.entries.LoadOrStore(key, e)
	return actual.(*fixedEntry)
}
