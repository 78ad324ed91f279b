// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/lib/simulate"
	"github.com/bureau-foundation/rsvp/lib/summary"
	"github.com/bureau-foundation/rsvp/transport"
)

// demoHost is the host id the --demo invitation is sent from.
const demoHost = "demo_host"

type simulationConfig struct {
	Broker    transport.Port
	Directory guest.Directory
	Topics    rsvp.Topics
	Clock     clock.Clock
	Logger    *slog.Logger
	Seed      uint64
	Demo      bool

	// Output receives the demo summary report.
	Output io.Writer
}

// simulation runs the configured guest list in process. It only makes
// sense with the memory broker, where no outside guest can connect.
type simulation struct {
	simulator     *simulate.Simulator
	subscriptions []transport.Subscription
}

func startSimulation(ctx context.Context, config simulationConfig) (*simulation, error) {
	simulator, err := simulate.New(simulate.Config{
		Broker: config.Broker,
		Topics: config.Topics,
		Clock:  config.Clock,
		Logger: config.Logger.With("component", "simulated_guest"),
		Seed:   config.Seed,
	})
	if err != nil {
		return nil, err
	}

	guests, err := config.Directory.Guests(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing guests to simulate: %w", err)
	}

	s := &simulation{simulator: simulator}
	for _, g := range guests {
		subscription, err := simulator.Start(ctx, g, simulator.RandomPersonality())
		if err != nil {
			s.Stop()
			return nil, err
		}
		s.subscriptions = append(s.subscriptions, subscription)
	}
	config.Logger.Info("simulating guests in process", "guests", guest.IDs(guests))

	if config.Demo {
		subscription, err := startDemo(ctx, config)
		if err != nil {
			s.Stop()
			return nil, err
		}
		s.subscriptions = append(s.subscriptions, subscription)
	}
	return s, nil
}

// Stop unsubscribes every simulated guest and waits for answers that
// are already being sent.
func (s *simulation) Stop() {
	for _, subscription := range s.subscriptions {
		subscription.Stop()
	}
	s.simulator.Wait()
}

// startDemo listens for the demo host's summaries, then sends one
// invitation dated tomorrow evening.
func startDemo(ctx context.Context, config simulationConfig) (transport.Subscription, error) {
	subscription, err := config.Broker.Subscribe(ctx, config.Topics.Host(demoHost), "",
		func(_ context.Context, payload []byte) error {
			result, err := rsvp.DecodeSummary(payload)
			if err != nil {
				return err
			}
			fmt.Fprint(config.Output, summary.Format(result))
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("subscribing to demo host summaries: %w", err)
	}

	invitation := rsvp.NewInvitation(demoHost, "Demo Dinner Party")
	invitation.DateTime = tomorrowEvening(config.Clock.Now()).Format(time.RFC3339)
	invitation.Location = "The Coordinator's Kitchen"
	invitation.Description = "Simulated guests answer with their own personalities."

	payload, err := rsvp.Encode(invitation)
	if err != nil {
		subscription.Stop()
		return nil, err
	}
	if err := config.Broker.Publish(ctx, config.Topics.Intake(), payload); err != nil {
		subscription.Stop()
		return nil, fmt.Errorf("publishing demo invitation: %w", err)
	}
	config.Logger.Info("demo invitation sent",
		"event_id", invitation.EventID,
		"host_id", demoHost,
	)
	return subscription, nil
}

// tomorrowEvening is 19:00 local time on the day after now.
func tomorrowEvening(now time.Time) time.Time {
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 19, 0, 0, 0, now.Location())
}
