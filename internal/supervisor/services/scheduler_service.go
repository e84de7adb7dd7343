// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package services

import (
	"context"
	"fmt"
)

// SchedulerManager matches the ETL scheduler's Start/Stop lifecycle.
// Satisfied by *etl.Scheduler.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps the ETL scheduler as a supervised service,
// adapting its Start/Stop lifecycle to suture's Serve pattern.
type SchedulerService struct {
	manager SchedulerManager
	name    string
}

// NewSchedulerService creates the scheduler service wrapper.
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{
		manager: manager,
		name:    "etl-scheduler",
	}
}

// Serve implements suture.Service: starts the scheduler, blocks until the
// context is canceled, then stops it gracefully.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("etl scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("etl scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *SchedulerService) String() string {
	return s.name
}
