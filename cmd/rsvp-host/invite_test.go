// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/lib/testutil"
	"github.com/bureau-foundation/rsvp/transport"
)

func TestBuildInvitationDefaults(t *testing.T) {
	now := time.Date(2026, 5, 31, 10, 0, 0, 0, time.UTC)
	invitation, err := buildInvitation(inviteParams{Host: "host_sam", Time: "19:00"}, "  Dinner Party ", now)
	if err != nil {
		t.Fatalf("buildInvitation: %v", err)
	}
	if invitation.EventName != "Dinner Party" {
		t.Errorf("EventName: got %q, want %q", invitation.EventName, "Dinner Party")
	}
	if want := "2026-06-01T19:00:00Z"; invitation.DateTime != want {
		t.Errorf("DateTime: got %q, want %q", invitation.DateTime, want)
	}
	if invitation.HostID != "host_sam" {
		t.Errorf("HostID: got %q, want %q", invitation.HostID, "host_sam")
	}
	if invitation.EventID == "" {
		t.Error("EventID is empty")
	}
	if invitation.MaxCapacity != nil {
		t.Errorf("MaxCapacity: got %d, want unset", *invitation.MaxCapacity)
	}
}

func TestBuildInvitationExplicitDateAndCapacity(t *testing.T) {
	now := time.Date(2026, 5, 31, 10, 0, 0, 0, time.UTC)
	invitation, err := buildInvitation(inviteParams{
		Host:        "host_sam",
		Date:        "2026-11-20",
		Time:        "18:30",
		Location:    "Attic",
		Description: "Bring a game",
		Capacity:    8,
	}, "Board Games", now)
	if err != nil {
		t.Fatalf("buildInvitation: %v", err)
	}
	if want := "2026-11-20T18:30:00Z"; invitation.DateTime != want {
		t.Errorf("DateTime: got %q, want %q", invitation.DateTime, want)
	}
	if invitation.MaxCapacity == nil || *invitation.MaxCapacity != 8 {
		t.Errorf("MaxCapacity: got %v, want 8", invitation.MaxCapacity)
	}
	if invitation.Location != "Attic" || invitation.Description != "Bring a game" {
		t.Errorf("details: got %q / %q", invitation.Location, invitation.Description)
	}
}

func TestBuildInvitationRejectsBadInput(t *testing.T) {
	now := time.Date(2026, 5, 31, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		params inviteParams
		event  string
		want   string
	}{
		{"bad host", inviteParams{Host: "host sam", Time: "19:00"}, "Party", "host id"},
		{"negative capacity", inviteParams{Host: "h", Time: "19:00", Capacity: -1}, "Party", "--capacity"},
		{"bad date", inviteParams{Host: "h", Time: "19:00", Date: "20/11/2026"}, "Party", "--date"},
		{"bad time", inviteParams{Host: "h", Time: "7pm"}, "Party", "--time"},
		{"empty name", inviteParams{Host: "h", Time: "19:00"}, "   ", "event_name"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := buildInvitation(test.params, test.event, now)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error %q does not mention %q", err, test.want)
			}
		})
	}
}

func TestInviteAndWaitReturnsMatchingSummary(t *testing.T) {
	broker := transport.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	topics := rsvp.Topics{Prefix: "rsvp"}
	ctx := t.Context()

	// Stand-in coordinator: answers every invitation with a summary
	// for some other event first, then the real one.
	responder, err := broker.Subscribe(ctx, topics.Intake(), "coordinator",
		func(ctx context.Context, payload []byte) error {
			invitation, err := rsvp.DecodeInvitation(payload)
			if err != nil {
				return err
			}
			for _, eventID := range []string{"someone-else", invitation.EventID} {
				payload, err := rsvp.Encode(rsvp.Summary{
					EventID:      eventID,
					EventName:    invitation.EventName,
					HostID:       invitation.HostID,
					TotalInvited: 1,
					Tally:        rsvp.Tally{NoResponse: 1},
					Trigger:      rsvp.TriggerDeadline,
					CompiledAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				})
				if err != nil {
					return err
				}
				if err := broker.Publish(ctx, topics.Host(invitation.HostID), payload); err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer responder.Stop()

	invitation := rsvp.NewInvitation("host_sam", "Picnic")
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	result, err := inviteAndWait(ctx, broker, topics, invitation, fake, time.Minute)
	if err != nil {
		t.Fatalf("inviteAndWait: %v", err)
	}
	if result.EventID != invitation.EventID {
		t.Errorf("EventID: got %q, want %q", result.EventID, invitation.EventID)
	}
	if result.NoResponse != 1 {
		t.Errorf("NoResponse: got %d, want 1", result.NoResponse)
	}
}

func TestInviteAndWaitTimesOut(t *testing.T) {
	broker := transport.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	topics := rsvp.Topics{Prefix: "rsvp"}
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	done := make(chan error, 1)
	go func() {
		_, err := inviteAndWait(t.Context(), broker, topics, rsvp.NewInvitation("host_sam", "Picnic"), fake, time.Minute)
		done <- err
	}()

	fake.WaitForTimers(1)
	fake.Advance(time.Minute)

	err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for inviteAndWait")
	if !errors.Is(err, errNoSummary) {
		t.Errorf("got %v, want errNoSummary", err)
	}
	if got := len(broker.Published(topics.Intake())); got != 1 {
		t.Errorf("published invitations: got %d, want 1", got)
	}
}
