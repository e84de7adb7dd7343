// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package ratelimit provides in-memory, per-key admission control.
//
// Two variants cover the two throttling shapes VidPulse needs:
//
//   - FixedWindowLimiter: counts attempts in discrete windows that reset
//     wholesale once elapsed. Used for coarse per-address throttling
//     (5 attempts / 60s login-style limiting). Per-key state is a pair of
//     atomics swapped by pointer, no locks on the hot path.
//
//   - SlidingWindowLimiter: keeps the timestamps of recent actions and
//     prunes entries older than the window on every access, so counts
//     roll continuously and memory for idle keys decays naturally. Used
//     for fine-grained per-user throttling (60 actions / hour).
//
// State lives in process memory and is lost on restart - these are soft
// throttles, not durable guarantees. Limiters are constructed explicitly at
// service start and expose Clear for tests; there is no global instance.
package ratelimit

import (
	"fmt"
	"time"
)

// LimitExceededError reports a rejected attempt. It carries enough context
// for the caller to back off intelligently: how many actions the key has in
// the current window, the configured maximum, and when capacity frees up.
type LimitExceededError struct {
	Key     string
	Count   int
	Max     int
	ResetAt time.Time
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q: %d of %d in window, retry after %s",
		e.Key, e.Count, e.Max, e.ResetAt.Format(time.RFC3339))
}
