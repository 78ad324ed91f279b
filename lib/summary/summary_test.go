// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package summary

import (
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
)

var epoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func fiveGuestSnapshot(responses ...rsvp.Response) registry.Snapshot {
	return registry.Snapshot{
		Invitation: rsvp.Invitation{EventID: "evt-1", HostID: "host_dana", EventName: "Dinner"},
		Invited: []guest.Guest{
			{ID: "guest_alice", Name: "Alice"},
			{ID: "guest_bob", Name: "Bob"},
			{ID: "guest_charlie", Name: "Charlie"},
			{ID: "guest_diana", Name: "Diana"},
			{ID: "guest_eve", Name: "Eve"},
		},
		Responses: responses,
		State:     registry.Summarizing,
	}
}

func TestCompileMixedResponses(t *testing.T) {
	snapshot := fiveGuestSnapshot(
		rsvp.Response{GuestID: "guest_alice", Decision: rsvp.DecisionYes, ReceivedAt: epoch},
		rsvp.Response{GuestID: "guest_bob", Decision: rsvp.DecisionNo, ReceivedAt: epoch.Add(time.Second)},
		rsvp.Response{GuestID: "guest_charlie", Decision: rsvp.DecisionMaybe, Message: "maybe late", ReceivedAt: epoch.Add(2 * time.Second)},
	)

	s := Compile(snapshot, rsvp.TriggerDeadline, epoch.Add(time.Minute))

	want := rsvp.Tally{Attending: 1, NotAttending: 1, Maybe: 1, NoResponse: 2}
	if s.Tally != want {
		t.Errorf("tally = %+v, want %+v", s.Tally, want)
	}
	if s.TotalInvited != 5 {
		t.Errorf("total invited = %d, want 5", s.TotalInvited)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if s.EventID != "evt-1" || s.HostID != "host_dana" || s.EventName != "Dinner" {
		t.Errorf("identity = %s/%s/%s", s.EventID, s.HostID, s.EventName)
	}
	if s.Trigger != rsvp.TriggerDeadline || !s.CompiledAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("trigger/compiled_at = %s/%v", s.Trigger, s.CompiledAt)
	}
	if len(s.Responses) != 3 || s.Responses[2].Message != "maybe late" {
		t.Fatalf("responses = %+v", s.Responses)
	}
}

func TestCompileNoResponses(t *testing.T) {
	s := Compile(fiveGuestSnapshot(), rsvp.TriggerDeadline, epoch)
	if s.NoResponse != 5 || s.Attending+s.NotAttending+s.Maybe != 0 {
		t.Fatalf("tally = %+v, want all no_response", s.Tally)
	}
	if s.Responses == nil {
		t.Error("Responses is nil, want an empty list so it encodes as []")
	}
}

func TestCompileNoGuests(t *testing.T) {
	snapshot := fiveGuestSnapshot()
	snapshot.Invited = nil
	s := Compile(snapshot, rsvp.TriggerDeadline, epoch)
	if s.TotalInvited != 0 || s.Tally != (rsvp.Tally{}) {
		t.Fatalf("summary = %+v, want zero counts", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestCompileFillsGuestNameFromDirectory(t *testing.T) {
	snapshot := fiveGuestSnapshot(
		rsvp.Response{GuestID: "guest_eve", Decision: rsvp.DecisionYes, ReceivedAt: epoch},
		rsvp.Response{GuestID: "guest_diana", GuestName: "Di", Decision: rsvp.DecisionYes, ReceivedAt: epoch},
	)
	s := Compile(snapshot, rsvp.TriggerAllResponded, epoch)
	if s.Responses[0].GuestName != "Eve" {
		t.Errorf("eve name = %q, want directory name", s.Responses[0].GuestName)
	}
	if s.Responses[1].GuestName != "Di" {
		t.Errorf("diana name = %q, want the name the guest sent", s.Responses[1].GuestName)
	}
	if !s.Responses[0].Timestamp.Equal(epoch) {
		t.Errorf("timestamp = %v", s.Responses[0].Timestamp)
	}
}

func TestFormat(t *testing.T) {
	snapshot := fiveGuestSnapshot(
		rsvp.Response{GuestID: "guest_alice", Decision: rsvp.DecisionYes, Message: "count me in", ReceivedAt: epoch},
	)
	text := Format(Compile(snapshot, rsvp.TriggerDeadline, epoch))
	for _, want := range []string{"Dinner (evt-1)", "attending:     1", "no response:   4", `Alice: Yes ("count me in")`} {
		if !strings.Contains(text, want) {
			t.Errorf("Format output missing %q:\n%s", want, text)
		}
	}
}
