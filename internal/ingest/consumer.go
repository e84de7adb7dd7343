// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package ingest

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"

	"github.com/vidpulse/vidpulse/internal/database"
	"github.com/vidpulse/vidpulse/internal/logging"
	"github.com/vidpulse/vidpulse/internal/metrics"
	"github.com/vidpulse/vidpulse/internal/models"
)

// ViewStore is the persistence surface the consumer writes to.
type ViewStore interface {
	InsertViewEvent(ctx context.Context, ev *models.ViewEvent) error
	IncrementViewCount(ctx context.Context, id int64) error
}

// Consumer drains the view event topic into storage. Each event produces
// two writes: an append to the event log and an atomic bump of the video's
// lifetime counter.
//
// Messages are always acked. A failed write is logged and counted, not
// redelivered: view events are high-volume and individually low-value, and
// an unackable poison message would stall the whole in-process channel.
type Consumer struct {
	store ViewStore

	processed atomic.Int64
	failed    atomic.Int64
}

// NewConsumer creates a view event consumer.
func NewConsumer(store ViewStore) *Consumer {
	return &Consumer{store: store}
}

// Run subscribes and processes events until the context is canceled.
func (c *Consumer) Run(ctx context.Context, subscriber message.Subscriber) error {
	messages, err := subscriber.Subscribe(ctx, TopicViewEvents)
	if err != nil {
		return err
	}

	for msg := range messages {
		c.handle(ctx, msg)
		msg.Ack()
	}
	return ctx.Err()
}

// Processed returns the number of successfully persisted events.
func (c *Consumer) Processed() int64 { return c.processed.Load() }

// Failed returns the number of events dropped after a processing failure.
func (c *Consumer) Failed() int64 { return c.failed.Load() }

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	var ev models.ViewEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		c.failed.Add(1)
		metrics.ViewEventsFailed.WithLabelValues("decode").Inc()
		logging.Err(err).Str("message_uuid", msg.UUID).Msg("Failed to decode view event")
		return
	}

	if err := c.store.InsertViewEvent(ctx, &ev); err != nil {
		c.failed.Add(1)
		metrics.ViewEventsFailed.WithLabelValues("database").Inc()
		logging.Err(err).Int64("video_id", ev.VideoID).Msg("Failed to persist view event")
		return
	}

	if err := c.store.IncrementViewCount(ctx, ev.VideoID); err != nil {
		c.failed.Add(1)
		if errors.Is(err, database.ErrVideoNotFound) {
			metrics.ViewEventsFailed.WithLabelValues("unknown_video").Inc()
			logging.Warn().Int64("video_id", ev.VideoID).Msg("View event for unknown video")
			return
		}
		metrics.ViewEventsFailed.WithLabelValues("database").Inc()
		logging.Err(err).Int64("video_id", ev.VideoID).Msg("Failed to increment view count")
		return
	}

	c.processed.Add(1)
	metrics.ViewEventsIngested.Inc()
}
