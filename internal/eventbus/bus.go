// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

/*
bus.go - Feedback Event Bus

Feedback events are published after they are persisted so other parts of
the system (metrics today, downstream consumers later) can react without
sitting on the request path. Two backends share one watermill surface:

  - channel: watermill gochannel, in-process and non-persistent. Events
    published while no consumer is subscribed are dropped.
  - nats: NATS JetStream through watermill-nats, either against an external
    server or an embedded one started by the bus.

Publishing failures are returned to the caller, which logs them and carries
on; the feedback itself is already stored.
*/
//nolint:staticcheck // File documentation, not package doc
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/recommend"
)

// ErrBusClosed is returned when publishing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus publishes feedback events and hands out a subscriber for consumers.
type Bus struct {
	topic      string
	backend    string
	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *server.Server
	wmLogger   watermill.LoggerAdapter
	logger     zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a bus for the configured backend.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg config.EventsConfig, logger zerolog.Logger) (*Bus, error) {
	logger = logger.With().Str("component", "eventbus").Logger()
	b := &Bus{
		topic:    cfg.Topic,
		backend:  cfg.Backend,
		wmLogger: newLoggerAdapter(logger),
		logger:   logger,
	}
	if b.topic == "" {
		b.topic = "recommend.feedback"
	}

	switch cfg.Backend {
	case "", "channel":
		b.backend = "channel"
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, b.wmLogger)
		b.publisher = ch
		b.subscriber = ch
	case "nats":
		if err := b.openNATS(cfg.NATS); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown event backend %q", cfg.Backend)
	}

	logger.Info().Str("backend", b.backend).Str("topic", b.topic).Msg("Event bus ready")
	return b, nil
}

func (b *Bus) openNATS(cfg config.NATSConfig) error {
	url := cfg.URL
	if cfg.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return err
		}
		b.embedded = ns
		url = ns.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				b.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			b.logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, b.wmLogger)
	if err != nil {
		b.shutdownEmbedded()
		return fmt.Errorf("create watermill publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.SubscriberName,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverNew(),
				natsgo.AckExplicit(),
			},
		},
	}, b.wmLogger)
	if err != nil {
		_ = pub.Close()
		b.shutdownEmbedded()
		return fmt.Errorf("create watermill subscriber: %w", err)
	}

	b.publisher = pub
	b.subscriber = sub
	return nil
}

// Topic returns the topic feedback events are published on.
func (b *Bus) Topic() string { return b.topic }

// Subscriber returns the bus subscriber wrapped so that closing it (as the
// watermill router does on shutdown) leaves the bus usable. The bus closes
// the real subscriber in Close.
func (b *Bus) Subscriber() message.Subscriber {
	return sharedSubscriber{b.subscriber}
}

// PublishFeedback publishes a persisted feedback event.
func (b *Bus) PublishFeedback(ctx context.Context, e recommend.FeedbackEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal feedback event: %w", err)
	}

	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	msg := message.NewMessage(id, payload)
	msg.Metadata.Set("verdict", string(e.Verdict))
	msg.Metadata.Set("user_id", e.UserID)
	msg.Metadata.Set("value", strconv.Itoa(e.Value))
	if b.backend == "nats" {
		msg.Metadata.Set(natsgo.MsgIdHdr, id)
	}
	msg.SetContext(ctx)

	if err := b.publisher.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish feedback event: %w", err)
	}
	return nil
}

// Close closes the publisher, the subscriber and any embedded server.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	// gochannel uses one value for both sides
	if b.backend != "channel" {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	b.shutdownEmbedded()
	return errors.Join(errs...)
}

func (b *Bus) shutdownEmbedded() {
	if b.embedded == nil {
		return
	}
	b.embedded.Shutdown()
	b.embedded.WaitForShutdown()
	b.embedded = nil
}

// sharedSubscriber ignores Close; the owning Bus closes the subscriber.
type sharedSubscriber struct {
	message.Subscriber
}

func (sharedSubscriber) Close() error { return nil }

var _ recommend.EventPublisher = (*Bus)(nil)
