// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/recommend"
)

const consumerHandlerName = "feedback-metrics"

// FeedbackHandler processes one decoded feedback event. A returned error
// triggers watermill's retry middleware.
type FeedbackHandler func(ctx context.Context, e recommend.FeedbackEvent) error

// Consumer runs a watermill router over the feedback topic. Every decoded
// event is counted in metrics.FeedbackEventsConsumed and passed to the
// optional handlers.
//
// Consumer implements suture.Service. Each Serve call builds a fresh router,
// so the supervisor can restart it.
type Consumer struct {
	bus      *Bus
	handlers []FeedbackHandler
	logger   zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewConsumer creates a consumer for the bus feedback topic.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumer(bus *Bus, logger zerolog.Logger, handlers ...FeedbackHandler) *Consumer {
	return &Consumer{
		bus:      bus,
		handlers: handlers,
		logger:   logger.With().Str("component", "feedback-consumer").Logger(),
		ready:    make(chan struct{}),
	}
}

// Serve runs the router until ctx is cancelled.
func (c *Consumer) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, c.bus.wmLogger)
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
			Logger:          c.bus.wmLogger,
		}.Middleware,
	)
	router.AddConsumerHandler(consumerHandlerName, c.bus.Topic(), c.bus.Subscriber(), c.handle)

	go func() {
		select {
		case <-router.Running():
			c.readyOnce.Do(func() { close(c.ready) })
		case <-ctx.Done():
		}
	}()

	c.logger.Info().Str("topic", c.bus.Topic()).Msg("Feedback consumer starting")
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("feedback router: %w", err)
	}
	return ctx.Err()
}

// Ready is closed once the first router is running.
func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) handle(msg *message.Message) error {
	var e recommend.FeedbackEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		// malformed payloads are acked; retrying cannot fix them
		c.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed feedback event")
		return nil
	}

	for _, h := range c.handlers {
		if err := h(msg.Context(), e); err != nil {
			return err
		}
	}

	metrics.FeedbackEventsConsumed.WithLabelValues(string(e.Verdict)).Inc()
	c.logger.Debug().
		Str("event_id", e.ID).
		Str("user_id", e.UserID).
		Str("verdict", string(e.Verdict)).
		Msg("Feedback event consumed")
	return nil
}

// String returns the service name for logging.
func (c *Consumer) String() string {
	return "feedback-consumer"
}
