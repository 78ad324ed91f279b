// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/transport"
)

// Default thinking delay bounds.
const (
	DefaultMinThink = 2 * time.Second
	DefaultMaxThink = 5 * time.Second
)

// Answer records one reply a simulated guest sent.
type Answer struct {
	Guest       guest.Guest
	Personality Personality
	Invitation  rsvp.Invitation
	Response    rsvp.Response
}

// Config holds a Simulator's collaborators.
type Config struct {
	// Broker carries invitations in and responses out. Required.
	Broker interface {
		transport.Publisher
		transport.Subscriber
	}

	Topics rsvp.Topics

	// Clock times the thinking delay. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Seed makes decisions reproducible. Zero seeds from the runtime.
	Seed uint64

	// MinThink and MaxThink bound the delay before answering. Zero
	// values take the defaults. Equal values give a fixed delay.
	MinThink time.Duration
	MaxThink time.Duration

	// Answered, when set, is called after each response is published.
	Answered func(Answer)
}

// Simulator runs simulated guests against one broker.
type Simulator struct {
	broker interface {
		transport.Publisher
		transport.Subscriber
	}
	topics   rsvp.Topics
	clock    clock.Clock
	logger   *slog.Logger
	minThink time.Duration
	maxThink time.Duration
	answered func(Answer)

	// rng is shared by every guest goroutine.
	mu  sync.Mutex
	rng *rand.Rand

	inflight sync.WaitGroup
}

// New validates config and returns a Simulator.
func New(config Config) (*Simulator, error) {
	if config.Broker == nil {
		return nil, errors.New("simulate: broker is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MinThink == 0 && config.MaxThink == 0 {
		config.MinThink, config.MaxThink = DefaultMinThink, DefaultMaxThink
	}
	if config.MinThink < 0 || config.MaxThink < config.MinThink {
		return nil, fmt.Errorf("simulate: invalid thinking delay range [%s, %s]", config.MinThink, config.MaxThink)
	}

	var source rand.Source
	if config.Seed != 0 {
		source = rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)
	} else {
		source = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &Simulator{
		broker:   config.Broker,
		topics:   config.Topics,
		clock:    config.Clock,
		logger:   config.Logger,
		minThink: config.MinThink,
		maxThink: config.MaxThink,
		answered: config.Answered,
		rng:      rand.New(source),
	}, nil
}

// RandomPersonality picks one of the built-in personalities.
func (s *Simulator) RandomPersonality() Personality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return personalities[s.rng.IntN(len(personalities))]
}

// Start subscribes g to its invitation topic. Each invitation is
// answered after a thinking delay according to personality. Answers
// stop when ctx is cancelled or the returned subscription is stopped;
// use Wait to let pending answers drain.
func (s *Simulator) Start(ctx context.Context, g guest.Guest, personality Personality) (transport.Subscription, error) {
	if err := rsvp.ValidateToken("guest id", g.ID); err != nil {
		return nil, err
	}
	if err := personality.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.With("guest_id", g.ID, "personality", personality.Name)
	subscription, err := s.broker.Subscribe(ctx, s.topics.Guest(g.ID), "guest-"+g.ID,
		func(_ context.Context, payload []byte) error {
			invitation, err := rsvp.DecodeInvitation(payload)
			if err != nil {
				logger.Warn("discarding malformed invitation", "error", err)
				return err
			}
			delay := s.thinkingDelay()
			logger.Info("invitation received",
				"event_id", invitation.EventID,
				"event_name", invitation.EventName,
				"thinking", delay,
			)
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.respond(ctx, logger, g, personality, invitation, delay)
			}()
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("subscribing guest %s: %w", g.ID, err)
	}
	logger.Info("simulated guest waiting for invitations")
	return subscription, nil
}

// Wait blocks until every pending answer has been sent or abandoned.
func (s *Simulator) Wait() {
	s.inflight.Wait()
}

func (s *Simulator) respond(ctx context.Context, logger *slog.Logger, g guest.Guest, personality Personality, invitation rsvp.Invitation, delay time.Duration) {
	select {
	case <-s.clock.After(delay):
	case <-ctx.Done():
		return
	}

	s.mu.Lock()
	decision := personality.Decide(s.rng.Float64())
	message := Message(decision, s.rng.IntN)
	s.mu.Unlock()

	response := rsvp.Response{
		GuestID:   g.ID,
		GuestName: g.DisplayName(),
		EventID:   invitation.EventID,
		Decision:  decision,
		Message:   message,
	}
	payload, err := rsvp.Encode(response)
	if err != nil {
		logger.Error("encoding response", "error", err)
		return
	}
	if err := s.broker.Publish(ctx, s.topics.Intake(), payload); err != nil {
		logger.Error("publishing response",
			"event_id", invitation.EventID,
			"error", err,
		)
		return
	}

	logger.Info("response sent",
		"event_id", invitation.EventID,
		"decision", decision,
		"message", message,
	)
	if s.answered != nil {
		s.answered(Answer{
			Guest:       g,
			Personality: personality,
			Invitation:  invitation,
			Response:    response,
		})
	}
}

func (s *Simulator) thinkingDelay() time.Duration {
	spread := s.maxThink - s.minThink
	if spread <= 0 {
		return s.minThink
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minThink + time.Duration(s.rng.Int64N(int64(spread)+1))
}
