// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

// Package ingest carries view events from the HTTP edge to storage over an
// in-process Watermill bus. Decoupling the write from the request keeps the
// tracking endpoint fast and lets the consumer batch-tolerate storage
// hiccups without dropping the caller's 202.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vidpulse/vidpulse/internal/models"
)

// TopicViewEvents is the bus topic view events travel on.
const TopicViewEvents = "view.events"

// NewBus creates the in-process pub/sub channel shared by the tracker and
// the consumer. Non-persistent: events not yet consumed at shutdown are
// lost, which is acceptable for view counting.
func NewBus(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 1024,
	}, logger)
}

// Tracker publishes view events onto the bus.
type Tracker struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewTracker creates a view event tracker backed by the given publisher.
func NewTracker(publisher message.Publisher) *Tracker {
	return &Tracker{publisher: publisher, now: time.Now}
}

// Track records one playback. It assigns the event ID and timestamp, then
// publishes; persistence happens asynchronously in the consumer.
func (t *Tracker) Track(ctx context.Context, videoID int64, userID *int64, ipAddress, userAgent string) (*models.ViewEvent, error) {
	ev := &models.ViewEvent{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		ViewedAt:  t.now().UTC(),
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode view event: %w", err)
	}

	msg := message.NewMessage(ev.ID, payload)
	msg.SetContext(ctx)
	if err := t.publisher.Publish(TopicViewEvents, msg); err != nil {
		return nil, fmt.Errorf("failed to publish view event: %w", err)
	}
	return ev, nil
}
