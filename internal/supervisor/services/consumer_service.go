// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventConsumer matches the view event consumer's blocking Run method.
// Satisfied by *ingest.Consumer.
type EventConsumer interface {
	Run(ctx context.Context, subscriber message.Subscriber) error
}

// ConsumerService wraps the view event consumer as a supervised service.
// Run blocks until the subscription channel closes, so it maps directly
// onto suture's Serve pattern; a consumer crash is restarted with backoff
// and resubscribes.
type ConsumerService struct {
	consumer   EventConsumer
	subscriber message.Subscriber
	name       string
}

// NewConsumerService creates the consumer service wrapper.
func NewConsumerService(consumer EventConsumer, subscriber message.Subscriber) *ConsumerService {
	return &ConsumerService{
		consumer:   consumer,
		subscriber: subscriber,
		name:       "view-event-consumer",
	}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx, s.subscriber)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("view event consumer failed: %w", err)
	}
	return err
}

// String implements fmt.Stringer for logging.
func (s *ConsumerService) String() string {
	return s.name
}
