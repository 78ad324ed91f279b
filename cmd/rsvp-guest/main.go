// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/rsvp/lib/cli"
	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/config"
	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/lib/simulate"
	"github.com/bureau-foundation/rsvp/lib/version"
	"github.com/bureau-foundation/rsvp/transport"
)

// randomPersonality asks for a fresh random personality per guest.
const randomPersonality = "random"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		guestID     string
		guestName   string
		personality string
		seed        uint64
		minThink    time.Duration
		maxThink    time.Duration
		verbose     bool
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("rsvp-guest", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to rsvp.yaml (default: $RSVP_CONFIG, then built-in defaults)")
	flagSet.StringVar(&guestID, "id", "", "simulate only this guest (default: every guest in the directory)")
	flagSet.StringVar(&guestName, "name", "", "display name for --id (default: the directory entry)")
	flagSet.StringVar(&personality, "personality", randomPersonality,
		"one of "+strings.Join(simulate.PersonalityNames(), ", ")+", or random")
	flagSet.Uint64Var(&seed, "seed", 0, "seed for decisions (0 picks one at random)")
	flagSet.DurationVar(&minThink, "min-think", simulate.DefaultMinThink, "shortest delay before answering")
	flagSet.DurationVar(&maxThink, "max-think", simulate.DefaultMaxThink, "longest delay before answering")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every invitation and answer")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("rsvp-guest")
		return nil
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if cfg.Broker.Driver == config.DriverMemory {
		return fmt.Errorf("rsvp-guest needs a shared broker; with broker.driver %q the coordinator simulates guests itself", cfg.Broker.Driver)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := cli.NewLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	directory, err := cfg.GuestDirectory()
	if err != nil {
		return fmt.Errorf("guest directory: %w", err)
	}
	guests, err := selectGuests(ctx, directory, guestID, guestName)
	if err != nil {
		return err
	}

	clk := clock.Real()
	broker, err := cfg.OpenBroker(ctx, "rsvp-guest", clk, logger)
	if err != nil {
		return fmt.Errorf("opening broker: %w", err)
	}
	defer broker.Close()

	party, err := startParty(ctx, partyConfig{
		Broker:      broker,
		Topics:      cfg.TopicNames(),
		Clock:       clk,
		Logger:      logger,
		Guests:      guests,
		Personality: personality,
		Seed:        seed,
		MinThink:    minThink,
		MaxThink:    maxThink,
		Output:      os.Stdout,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d guest(s) waiting for invitations, Ctrl-C to stop\n", len(guests))

	<-ctx.Done()
	party.Stop()
	return nil
}

// selectGuests returns the guests this process answers for: one guest
// when id is set, otherwise the whole directory.
func selectGuests(ctx context.Context, directory guest.Directory, id, name string) ([]guest.Guest, error) {
	if id == "" {
		if name != "" {
			return nil, errors.New("--name requires --id")
		}
		guests, err := directory.Guests(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing guests: %w", err)
		}
		if len(guests) == 0 {
			return nil, errors.New("guest directory is empty")
		}
		return guests, nil
	}

	if err := rsvp.ValidateToken("guest id", id); err != nil {
		return nil, err
	}
	if name == "" {
		guests, err := directory.Guests(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing guests: %w", err)
		}
		for _, g := range guests {
			if g.ID == id {
				return []guest.Guest{g}, nil
			}
		}
	}
	// A guest outside the directory never receives an invitation but
	// may still be useful for testing topic permissions.
	return []guest.Guest{{ID: id, Name: name}}, nil
}

type partyConfig struct {
	Broker interface {
		transport.Publisher
		transport.Subscriber
	}
	Topics      rsvp.Topics
	Clock       clock.Clock
	Logger      *slog.Logger
	Guests      []guest.Guest
	Personality string
	Seed        uint64
	MinThink    time.Duration
	MaxThink    time.Duration

	// Output receives one line per answer.
	Output io.Writer
}

// party is the set of simulated guests one rsvp-guest process runs.
type party struct {
	simulator     *simulate.Simulator
	subscriptions []transport.Subscription
}

func startParty(ctx context.Context, config partyConfig) (*party, error) {
	var fixed *simulate.Personality
	if config.Personality != "" && !strings.EqualFold(config.Personality, randomPersonality) {
		personality, err := simulate.LookupPersonality(config.Personality)
		if err != nil {
			return nil, err
		}
		fixed = &personality
	}

	simulator, err := simulate.New(simulate.Config{
		Broker:   config.Broker,
		Topics:   config.Topics,
		Clock:    config.Clock,
		Logger:   config.Logger,
		Seed:     config.Seed,
		MinThink: config.MinThink,
		MaxThink: config.MaxThink,
		Answered: func(answer simulate.Answer) {
			fmt.Fprintln(config.Output, formatAnswer(answer))
		},
	})
	if err != nil {
		return nil, err
	}

	p := &party{simulator: simulator}
	for _, g := range config.Guests {
		personality := simulator.RandomPersonality()
		if fixed != nil {
			personality = *fixed
		}
		subscription, err := simulator.Start(ctx, g, personality)
		if err != nil {
			p.Stop()
			return nil, err
		}
		p.subscriptions = append(p.subscriptions, subscription)
		config.Logger.Info("guest ready", "guest_id", g.ID, "personality", personality.Name)
	}
	return p, nil
}

// Stop unsubscribes every guest and waits for answers in flight.
func (p *party) Stop() {
	for _, subscription := range p.subscriptions {
		subscription.Stop()
	}
	p.simulator.Wait()
}

func formatAnswer(answer simulate.Answer) string {
	line := fmt.Sprintf("%s (%s) -> %s: %s",
		answer.Guest.DisplayName(), answer.Personality.Name,
		answer.Invitation.EventName, answer.Response.Decision)
	if answer.Response.Message != "" {
		line += fmt.Sprintf(" %q", answer.Response.Message)
	}
	return line
}
