// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/bureau-foundation/rsvp/lib/backoff"
	"github.com/bureau-foundation/rsvp/lib/clock"
)

// Compile-time interface check.
var _ Port = (*NATSPort)(nil)

// NATSConfig configures a JetStream-backed Port.
type NATSConfig struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string

	// ClientName identifies the connection in server monitoring.
	ClientName string

	// Stream is the JetStream stream bound to Subjects. It is created
	// or updated on connect.
	Stream   string
	Subjects []string

	// MaxAge bounds how long the stream retains messages. Zero keeps
	// them until the server's limits evict them.
	MaxAge time.Duration

	// Connect bounds the initial connection attempts. Once connected,
	// the client reconnects forever, waiting ReconnectWait between
	// tries.
	Connect       backoff.Policy
	ReconnectWait time.Duration

	// MaxDeliver, AckWait, and MaxAckPending apply to every consumer
	// Subscribe creates. MaxAckPending 1 gives strictly serial
	// delivery.
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int

	// FetchWait is how long one pull waits for messages before
	// looping.
	FetchWait time.Duration
}

func (c *NATSConfig) setDefaults() {
	if c.ClientName == "" {
		c.ClientName = "rsvp"
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.MaxDeliver == 0 {
		c.MaxDeliver = 5
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.FetchWait <= 0 {
		c.FetchWait = 5 * time.Second
	}
	if c.Connect.MaxAttempts < 1 {
		c.Connect.MaxAttempts = 1
	}
}

// NATSPort is a Port over NATS JetStream. Messages are persisted in
// one stream; each subscription is a pull consumer with explicit
// acknowledgement. A nil handler result acks the message, an error
// terminates it so JetStream never redelivers it.
type NATSPort struct {
	config NATSConfig
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	clock  clock.Clock
	logger *slog.Logger

	mu            sync.Mutex
	closed        bool
	subscriptions map[*natsSubscription]struct{}
}

// DialNATS connects to the server, retrying per config.Connect, and
// ensures the stream exists.
func DialNATS(ctx context.Context, config NATSConfig, clk clock.Clock, logger *slog.Logger) (*NATSPort, error) {
	config.setDefaults()
	if config.Stream == "" || len(config.Subjects) == 0 {
		return nil, errors.New("dialing NATS: stream name and subjects are required")
	}

	options := []nats.Option{
		nats.Name(config.ClientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("broker connection lost", "error", err)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("broker connection restored", "url", conn.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Debug("broker connection closed")
		}),
	}

	var conn *nats.Conn
	attempts, err := backoff.Retry(ctx, clk, config.Connect, func(context.Context) error {
		var dialErr error
		conn, dialErr = nats.Connect(config.URL, options...)
		return dialErr
	}, func(attempt int, delay time.Duration, err error) {
		logger.Warn("connecting to broker failed",
			"url", config.URL,
			"attempt", attempt,
			"max_attempts", config.Connect.MaxAttempts,
			"retry_in", delay,
			"error", err,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s after %d attempts: %w", config.URL, attempts, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening jetstream: %w", err)
	}
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      config.Stream,
		Subjects:  config.Subjects,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    config.MaxAge,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating stream %s: %w", config.Stream, err)
	}

	logger.Info("connected to broker",
		"url", conn.ConnectedUrl(),
		"stream", config.Stream,
		"subjects", config.Subjects,
	)
	return &NATSPort{
		config:        config,
		conn:          conn,
		js:            js,
		stream:        stream,
		clock:         clk,
		logger:        logger,
		subscriptions: make(map[*natsSubscription]struct{}),
	}, nil
}

// Publish stores payload in the stream under topic and waits for the
// server's acknowledgement.
func (p *NATSPort) Publish(ctx context.Context, topic string, payload []byte) error {
	if p.isClosed() {
		return ErrClosed
	}
	if _, err := p.js.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Subscribe creates (or resumes) a pull consumer filtered to topic and
// delivers its messages to handler on a dedicated goroutine.
func (p *NATSPort) Subscribe(ctx context.Context, topic, durable string, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("subscribing: handler is nil")
	}
	if strings.ContainsAny(durable, ".*> \t\r\n") {
		return nil, fmt.Errorf("subscribing: durable name %q contains a character NATS does not allow", durable)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.mu.Unlock()

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: topic,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       p.config.AckWait,
		MaxDeliver:    p.config.MaxDeliver,
		MaxAckPending: p.config.MaxAckPending,
	}
	if durable == "" {
		consumerConfig.DeliverPolicy = jetstream.DeliverNewPolicy
		consumerConfig.InactiveThreshold = time.Minute
	}
	consumer, err := p.stream.CreateOrUpdateConsumer(ctx, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer for %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	subscription := &natsSubscription{
		port:   p,
		topic:  topic,
		name:   consumer.CachedInfo().Name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	p.subscriptions[subscription] = struct{}{}
	p.mu.Unlock()

	go subscription.consumeLoop(subCtx, consumer, handler)
	return subscription, nil
}

// Close stops every subscription and drains the connection.
func (p *NATSPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	subscriptions := make([]*natsSubscription, 0, len(p.subscriptions))
	for subscription := range p.subscriptions {
		subscriptions = append(subscriptions, subscription)
	}
	p.mu.Unlock()

	for _, subscription := range subscriptions {
		subscription.Stop()
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("draining broker connection: %w", err)
	}
	return nil
}

// Connected reports whether the client currently has a live server
// connection. It is false while reconnecting.
func (p *NATSPort) Connected() bool {
	return p.conn.IsConnected()
}

func (p *NATSPort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type natsSubscription struct {
	port     *NATSPort
	topic    string
	name     string
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// consumeLoop pulls one message at a time so that a handler never
// races a second delivery from the same consumer.
func (s *natsSubscription) consumeLoop(ctx context.Context, consumer jetstream.Consumer, handler Handler) {
	defer close(s.done)

	logger := s.port.logger.With("topic", s.topic, "consumer", s.name)
	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(s.port.config.FetchWait))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Debug("fetch failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-s.port.clock.After(s.port.config.ReconnectWait):
			}
			continue
		}

		for message := range batch.Messages() {
			s.deliver(ctx, logger, message, handler)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("fetch ended with error", "error", err)
		}
	}
}

func (s *natsSubscription) deliver(ctx context.Context, logger *slog.Logger, message jetstream.Msg, handler Handler) {
	if ctx.Err() != nil {
		// Hand the message back for the next consumer on this durable.
		if err := message.Nak(); err != nil {
			logger.Warn("returning message during shutdown failed", "error", err)
		}
		return
	}

	if handlerErr := handler(ctx, message.Data()); handlerErr != nil {
		logger.Warn("terminating message", "error", handlerErr)
		if err := message.Term(); err != nil {
			logger.Warn("terminating message failed", "error", err)
		}
		return
	}
	if err := message.Ack(); err != nil {
		logger.Warn("acknowledging message failed", "error", err)
	}
}

func (s *natsSubscription) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
		s.port.mu.Lock()
		delete(s.port.subscriptions, s)
		s.port.mu.Unlock()
	})
	return nil
}
