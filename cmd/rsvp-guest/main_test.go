// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/lib/testutil"
	"github.com/bureau-foundation/rsvp/transport"
)

type chanWriter chan string

func (w chanWriter) Write(p []byte) (int, error) {
	w <- string(p)
	return len(p), nil
}

func testDirectory(t *testing.T) guest.Directory {
	t.Helper()
	directory, err := guest.NewStatic([]guest.Guest{
		{ID: "guest_alice", Name: "Alice"},
		{ID: "guest_bob", Name: "Bob"},
	})
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	return directory
}

func TestSelectGuests(t *testing.T) {
	directory := testDirectory(t)
	ctx := t.Context()

	all, err := selectGuests(ctx, directory, "", "")
	if err != nil {
		t.Fatalf("selectGuests(all): %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all: got %d guests, want 2", len(all))
	}

	known, err := selectGuests(ctx, directory, "guest_bob", "")
	if err != nil {
		t.Fatalf("selectGuests(bob): %v", err)
	}
	if len(known) != 1 || known[0].Name != "Bob" {
		t.Errorf("known: got %+v, want Bob from the directory", known)
	}

	renamed, err := selectGuests(ctx, directory, "guest_bob", "Robert")
	if err != nil {
		t.Fatalf("selectGuests(renamed): %v", err)
	}
	if renamed[0].Name != "Robert" {
		t.Errorf("renamed: got %q, want Robert", renamed[0].Name)
	}

	if _, err := selectGuests(ctx, directory, "", "Robert"); err == nil {
		t.Error("--name without --id: expected an error")
	}
	if _, err := selectGuests(ctx, directory, "bad.id", ""); err == nil {
		t.Error("invalid id: expected an error")
	}
}

func TestPartyAnswersInvitation(t *testing.T) {
	broker := transport.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	fake := clock.Fake(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	topics := rsvp.Topics{Prefix: "rsvp"}
	output := make(chanWriter, 1)

	p, err := startParty(t.Context(), partyConfig{
		Broker:      broker,
		Topics:      topics,
		Clock:       fake,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Guests:      []guest.Guest{{ID: "guest_alice", Name: "Alice"}},
		Personality: "Enthusiastic",
		Seed:        7,
		MinThink:    time.Second,
		MaxThink:    time.Second,
		Output:      output,
	})
	if err != nil {
		t.Fatalf("startParty: %v", err)
	}
	defer p.Stop()

	invitation := rsvp.NewInvitation("host_sam", "Picnic")
	payload, err := rsvp.Encode(invitation)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := broker.Publish(t.Context(), topics.Guest("guest_alice"), payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	fake.WaitForTimers(1)
	fake.Advance(time.Second)

	line := testutil.RequireReceive(t, output, 5*time.Second, "waiting for answer")
	if !strings.HasPrefix(line, "Alice (enthusiastic) -> Picnic: ") {
		t.Errorf("answer line: got %q", line)
	}
	responses := broker.Published(topics.Intake())
	if len(responses) != 1 {
		t.Fatalf("responses on intake: got %d, want 1", len(responses))
	}
	response, err := rsvp.DecodeResponse(responses[0])
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if response.EventID != invitation.EventID || response.GuestID != "guest_alice" {
		t.Errorf("response: got %+v", response)
	}
}

func TestStartPartyRejectsUnknownPersonality(t *testing.T) {
	broker := transport.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	_, err := startParty(t.Context(), partyConfig{
		Broker:      broker,
		Topics:      rsvp.Topics{Prefix: "rsvp"},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Guests:      []guest.Guest{{ID: "guest_alice"}},
		Personality: "grumpy",
	})
	if err == nil || !strings.Contains(err.Error(), "unknown personality") {
		t.Errorf("got %v, want an unknown personality error", err)
	}
}
