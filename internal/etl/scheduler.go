// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package etl

import (
	"context"
	"sync"
	"time"

	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/logging"
)

// Scheduler triggers aggregation runs on a daily cadence. By default it
// fires once per day at cfg.RunAtHour local time; a positive cfg.Interval
// switches to a plain ticker, which tests and aggressive deployments use.
//
// A run that is already in progress is never started twice: the trigger
// fires and the Aggregator's own lock serializes execution.
type Scheduler struct {
	aggregator *Aggregator
	runAtHour  int
	interval   time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewScheduler creates the daily trigger for the aggregation pipeline.
func NewScheduler(aggregator *Aggregator, cfg *config.ETLConfig) *Scheduler {
	return &Scheduler{
		aggregator: aggregator,
		runAtHour:  cfg.RunAtHour,
		interval:   cfg.Interval,
		now:        time.Now,
	}
}

// Start launches the scheduling loop. It returns immediately; runs happen
// on a background goroutine until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan != nil {
		return nil
	}
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.loop(ctx, s.stopChan)

	logging.Info().
		Int("run_at_hour", s.runAtHour).
		Dur("interval", s.interval).
		Msg("ETL scheduler started")
	return nil
}

// Stop halts the scheduling loop and waits for it to exit. An in-flight
// aggregation run finishes; only future triggers are canceled.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stopChan == nil {
		s.mu.Unlock()
		return nil
	}
	close(s.stopChan)
	s.stopChan = nil
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("ETL scheduler stopped")
	return nil
}

// RunNow triggers an immediate aggregation run, bypassing the schedule.
// Used by the manual trigger endpoint.
func (s *Scheduler) RunNow(ctx context.Context) error {
	_, err := s.aggregator.Run(ctx)
	return err
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		wait := s.nextDelay()
		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
			if _, err := s.aggregator.Run(ctx); err != nil {
				// Already logged by the aggregator; the next trigger
				// retries with fresh data.
				continue
			}
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// nextDelay computes the wait until the next trigger.
func (s *Scheduler) nextDelay() time.Duration {
	if s.interval > 0 {
		return s.interval
	}

	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.runAtHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
