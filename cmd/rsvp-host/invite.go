// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/rsvp/lib/cli"
	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/config"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/transport"
)

// summaryGrace is added to the collection window when waiting for a
// summary, to cover fan-out and publish retries.
const summaryGrace = 30 * time.Second

type inviteParams struct {
	Host        string
	Date        string
	Time        string
	Location    string
	Description string
	Capacity    int
	Timeout     time.Duration
	NoWait      bool
	JSON        bool
}

func inviteCommand(global *globalParams) *cli.Command {
	var params inviteParams
	return &cli.Command{
		Name:    "invite",
		Summary: "Send an invitation and wait for its summary",
		Description: `Publish an invitation to the coordinator and wait for the summary it
sends back once the collection window closes. Every guest in the
coordinator's directory is invited.

The event date defaults to tomorrow and the time to 19:00.`,
		Usage: "rsvp-host invite [flags] <event name>",
		Examples: []cli.Example{
			{Description: "Invite everyone to dinner tomorrow at 19:00", Command: `rsvp-host invite --host host_sam "Dinner Party"`},
			{Description: "Cap attendance and pick a date", Command: `rsvp-host invite --date 2026-11-20 --time 18:30 --capacity 8 "Board Games"`},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("invite", pflag.ContinueOnError)
			global.addFlags(flagSet)
			flagSet.StringVar(&params.Host, "host", defaultHostID(), "host id summaries are delivered to")
			flagSet.StringVar(&params.Date, "date", "", "event date as YYYY-MM-DD (default: tomorrow)")
			flagSet.StringVar(&params.Time, "time", "19:00", "event time as HH:MM")
			flagSet.StringVar(&params.Location, "location", "", "where the event takes place")
			flagSet.StringVar(&params.Description, "description", "", "free-form details for guests")
			flagSet.IntVar(&params.Capacity, "capacity", 0, "maximum attendees (0 for unlimited)")
			flagSet.DurationVar(&params.Timeout, "timeout", 0, "how long to wait for the summary (default: collection window + 30s)")
			flagSet.BoolVar(&params.NoWait, "no-wait", false, "send the invitation and exit without waiting")
			flagSet.BoolVar(&params.JSON, "json", false, "print the summary as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return errors.New("event name is required")
			}
			return runInvite(ctx, global, params, strings.Join(args, " "))
		},
	}
}

func runInvite(ctx context.Context, global *globalParams, params inviteParams, eventName string) error {
	cfg, logger, err := global.load()
	if err != nil {
		return err
	}
	if cfg.Broker.Driver == config.DriverMemory {
		return fmt.Errorf("rsvp-host needs a shared broker; broker.driver %q only exists inside the coordinator", cfg.Broker.Driver)
	}

	clk := clock.Real()
	invitation, err := buildInvitation(params, eventName, clk.Now())
	if err != nil {
		return err
	}

	broker, err := cfg.OpenBroker(ctx, "rsvp-host", clk, logger)
	if err != nil {
		return fmt.Errorf("opening broker: %w", err)
	}
	defer broker.Close()

	topics := cfg.TopicNames()
	if params.NoWait {
		if err := publishInvitation(ctx, broker, topics, invitation); err != nil {
			return err
		}
		fmt.Printf("invitation %s sent\n", invitation.EventID)
		return nil
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = cfg.Coordinator.CollectionWindow + summaryGrace
	}
	fmt.Fprintf(os.Stderr, "invitation %s sent, waiting up to %s for the summary...\n", invitation.EventID, timeout)

	result, err := inviteAndWait(ctx, broker, topics, invitation, clk, timeout)
	if errors.Is(err, errNoSummary) {
		fmt.Fprintf(os.Stderr, "no summary for %s within %s; check 'rsvp-host event %s'\n",
			invitation.EventID, timeout, invitation.EventID)
		return &cli.ExitError{Code: 2}
	}
	if err != nil {
		return err
	}

	if params.JSON {
		return writeJSON(os.Stdout, result)
	}
	return renderSummary(os.Stdout, result)
}

// buildInvitation fills in an Invitation from the command line, with
// the date defaulting to the day after now.
func buildInvitation(params inviteParams, eventName string, now time.Time) (rsvp.Invitation, error) {
	if err := rsvp.ValidateToken("host id", params.Host); err != nil {
		return rsvp.Invitation{}, err
	}
	if params.Capacity < 0 {
		return rsvp.Invitation{}, fmt.Errorf("--capacity must not be negative")
	}

	day := now.AddDate(0, 0, 1)
	if params.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", params.Date, now.Location())
		if err != nil {
			return rsvp.Invitation{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
		day = parsed
	}
	clockTime, err := time.Parse("15:04", params.Time)
	if err != nil {
		return rsvp.Invitation{}, fmt.Errorf("--time must be HH:MM: %w", err)
	}
	when := time.Date(day.Year(), day.Month(), day.Day(), clockTime.Hour(), clockTime.Minute(), 0, 0, now.Location())

	invitation := rsvp.NewInvitation(params.Host, strings.TrimSpace(eventName))
	invitation.DateTime = when.Format(time.RFC3339)
	invitation.Location = params.Location
	invitation.Description = params.Description
	if params.Capacity > 0 {
		capacity := params.Capacity
		invitation.MaxCapacity = &capacity
	}
	if err := invitation.Validate(); err != nil {
		return rsvp.Invitation{}, err
	}
	return invitation, nil
}

func publishInvitation(ctx context.Context, publisher transport.Publisher, topics rsvp.Topics, invitation rsvp.Invitation) error {
	payload, err := rsvp.Encode(invitation)
	if err != nil {
		return err
	}
	if err := publisher.Publish(ctx, topics.Intake(), payload); err != nil {
		return fmt.Errorf("publishing invitation: %w", err)
	}
	return nil
}

var errNoSummary = errors.New("no summary received")

// inviteAndWait subscribes to the host's summary topic, publishes the
// invitation, and returns the summary for that event. The subscription
// is made first so a fast summary is not missed. It returns
// errNoSummary when timeout passes first.
func inviteAndWait(ctx context.Context, port transport.Port, topics rsvp.Topics, invitation rsvp.Invitation, clk clock.Clock, timeout time.Duration) (rsvp.Summary, error) {
	received := make(chan rsvp.Summary, 1)
	subscription, err := port.Subscribe(ctx, topics.Host(invitation.HostID), "",
		func(_ context.Context, payload []byte) error {
			result, err := rsvp.DecodeSummary(payload)
			if err != nil {
				return err
			}
			if result.EventID != invitation.EventID {
				// Another event from the same host.
				return nil
			}
			select {
			case received <- result:
			default:
			}
			return nil
		})
	if err != nil {
		return rsvp.Summary{}, fmt.Errorf("subscribing to %s: %w", topics.Host(invitation.HostID), err)
	}
	defer subscription.Stop()

	if err := publishInvitation(ctx, port, topics, invitation); err != nil {
		return rsvp.Summary{}, err
	}

	select {
	case result := <-received:
		return result, nil
	case <-clk.After(timeout):
		return rsvp.Summary{}, errNoSummary
	case <-ctx.Done():
		return rsvp.Summary{}, ctx.Err()
	}
}

// defaultHostID derives a host id from the login name.
func defaultHostID() string {
	user := os.Getenv("USER")
	if user == "" || rsvp.ValidateToken("host id", user) != nil {
		return "host"
	}
	return "host_" + user
}
