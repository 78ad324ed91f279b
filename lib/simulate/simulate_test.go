// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simulate

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
	"github.com/bureau-foundation/rsvp/lib/testutil"
	"github.com/bureau-foundation/rsvp/transport"
)

func TestPersonalityDecide(t *testing.T) {
	busy, err := LookupPersonality("busy")
	if err != nil {
		t.Fatalf("LookupPersonality: %v", err)
	}

	tests := []struct {
		roll float64
		want rsvp.Decision
	}{
		{0, rsvp.DecisionYes},
		{0.29, rsvp.DecisionYes},
		{0.3, rsvp.DecisionMaybe},
		{0.69, rsvp.DecisionMaybe},
		{0.7, rsvp.DecisionNo},
		{0.99, rsvp.DecisionNo},
	}
	for _, test := range tests {
		if got := busy.Decide(test.roll); got != test.want {
			t.Errorf("Decide(%v): got %s, want %s", test.roll, got, test.want)
		}
	}
}

func TestBuiltinPersonalitiesAreValid(t *testing.T) {
	all := Personalities()
	if len(all) != 5 {
		t.Fatalf("got %d personalities, want 5", len(all))
	}
	for _, personality := range all {
		if err := personality.Validate(); err != nil {
			t.Errorf("%s: %v", personality.Name, err)
		}
	}
	names := PersonalityNames()
	want := []string{"busy", "enthusiastic", "introverted", "social", "spontaneous"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("PersonalityNames[%d]: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLookupPersonality(t *testing.T) {
	personality, err := LookupPersonality("  Social ")
	if err != nil {
		t.Fatalf("LookupPersonality: %v", err)
	}
	if personality.Yes != 0.7 || personality.Maybe != 0.2 {
		t.Errorf("social: got %+v", personality)
	}
	if _, err := LookupPersonality("grumpy"); err == nil {
		t.Error("expected error for unknown personality")
	}
}

func TestPersonalityValidate(t *testing.T) {
	if err := (Personality{Name: "greedy", Yes: 0.8, Maybe: 0.3}).Validate(); err == nil {
		t.Error("expected error when yes+maybe exceeds 1")
	}
	if err := (Personality{Name: "negative", Yes: -0.1}).Validate(); err == nil {
		t.Error("expected error for negative probability")
	}
}

func TestMessageMatchesDecision(t *testing.T) {
	for _, decision := range []rsvp.Decision{rsvp.DecisionYes, rsvp.DecisionNo, rsvp.DecisionMaybe} {
		message := Message(decision, func(n int) int { return n - 1 })
		if message == "" {
			t.Errorf("%s: empty message", decision)
		}
	}
	if got := Message("Perhaps", func(int) int { return 0 }); got != "" {
		t.Errorf("unknown decision: got %q, want empty", got)
	}
}

type simulatorHarness struct {
	broker    *transport.MemoryBroker
	clock     *clock.FakeClock
	simulator *Simulator
	answers   chan Answer
	topics    rsvp.Topics
}

func newSimulatorHarness(t *testing.T) *simulatorHarness {
	t.Helper()
	h := &simulatorHarness{
		broker:  transport.NewMemoryBroker(),
		clock:   clock.Fake(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)),
		answers: make(chan Answer, 8),
		topics:  rsvp.Topics{Prefix: "rsvp"},
	}
	t.Cleanup(func() { h.broker.Close() })

	simulator, err := New(Config{
		Broker:   h.broker,
		Topics:   h.topics,
		Clock:    h.clock,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Seed:     7,
		MinThink: 2 * time.Second,
		MaxThink: 5 * time.Second,
		Answered: func(answer Answer) { h.answers <- answer },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.simulator = simulator
	return h
}

func (h *simulatorHarness) sendInvitation(t *testing.T, guestID string, invitation rsvp.Invitation) {
	t.Helper()
	payload, err := rsvp.Encode(invitation)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := h.broker.Publish(context.Background(), h.topics.Guest(guestID), payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestSimulatorAnswersAfterThinking(t *testing.T) {
	h := newSimulatorHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := guest.Guest{ID: "guest_alice", Name: "Alice"}
	enthusiastic, _ := LookupPersonality("enthusiastic")
	subscription, err := h.simulator.Start(ctx, alice, enthusiastic)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer subscription.Stop()

	invitation := rsvp.Invitation{EventID: "dinner", HostID: "host_1", EventName: "Dinner"}
	h.sendInvitation(t, alice.ID, invitation)

	h.clock.WaitForTimers(1)
	testutil.RequireNoReceive(t, h.answers, 50*time.Millisecond, "answered before thinking delay elapsed")
	h.clock.Advance(5 * time.Second)

	answer := testutil.RequireReceive(t, h.answers, 5*time.Second, "waiting for answer")
	if answer.Response.EventID != "dinner" {
		t.Errorf("EventID: got %q, want dinner", answer.Response.EventID)
	}
	if answer.Response.GuestName != "Alice" {
		t.Errorf("GuestName: got %q, want Alice", answer.Response.GuestName)
	}
	if answer.Personality.Name != "enthusiastic" {
		t.Errorf("Personality: got %q, want enthusiastic", answer.Personality.Name)
	}
	if answer.Response.Message == "" {
		t.Error("response carries no message")
	}

	published := h.broker.Published(h.topics.Intake())
	if len(published) != 1 {
		t.Fatalf("intake messages: got %d, want 1", len(published))
	}
	response, err := rsvp.DecodeResponse(published[0])
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if response.GuestID != alice.ID || response.Decision != answer.Response.Decision {
		t.Errorf("published response %+v does not match answer %+v", response, answer.Response)
	}
}

func TestSimulatorSeedIsReproducible(t *testing.T) {
	decide := func() []rsvp.Decision {
		h := newSimulatorHarness(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		spontaneous, _ := LookupPersonality("spontaneous")
		subscription, err := h.simulator.Start(ctx, guest.Guest{ID: "guest_eve"}, spontaneous)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		defer subscription.Stop()

		var decisions []rsvp.Decision
		for _, id := range []string{"a", "b", "c", "d"} {
			h.sendInvitation(t, "guest_eve", rsvp.Invitation{EventID: id, HostID: "host", EventName: id})
			h.clock.WaitForTimers(1)
			h.clock.Advance(5 * time.Second)
			answer := testutil.RequireReceive(t, h.answers, 5*time.Second, "waiting for answer")
			decisions = append(decisions, answer.Response.Decision)
		}
		return decisions
	}

	first, second := decide(), decide()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed gave different decisions: %v vs %v", first, second)
		}
	}
}

func TestSimulatorDeadLettersMalformedInvitation(t *testing.T) {
	h := newSimulatorHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	social, _ := LookupPersonality("social")
	subscription, err := h.simulator.Start(ctx, guest.Guest{ID: "guest_bob"}, social)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer subscription.Stop()

	if err := h.broker.Publish(ctx, h.topics.Guest("guest_bob"), []byte(`{"type":"invitation"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for len(h.broker.DeadLetters()) == 0 {
		if t.Context().Err() != nil {
			t.Fatal("malformed invitation was never dead-lettered")
		}
		time.Sleep(time.Millisecond)
	}
	if got := h.clock.PendingCount(); got != 0 {
		t.Errorf("pending timers after malformed invitation: got %d, want 0", got)
	}
}

func TestSimulatorCancelAbandonsPendingAnswers(t *testing.T) {
	h := newSimulatorHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	introverted, _ := LookupPersonality("introverted")
	subscription, err := h.simulator.Start(ctx, guest.Guest{ID: "guest_diana"}, introverted)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.sendInvitation(t, "guest_diana", rsvp.Invitation{EventID: "gala", HostID: "host", EventName: "Gala"})
	h.clock.WaitForTimers(1)

	cancel()
	subscription.Stop()
	h.simulator.Wait()

	if got := len(h.broker.Published(h.topics.Intake())); got != 0 {
		t.Errorf("intake messages after cancel: got %d, want 0", got)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without a broker")
	}
	_, err := New(Config{
		Broker:   transport.NewMemoryBroker(),
		MinThink: 5 * time.Second,
		MaxThink: time.Second,
	})
	if err == nil {
		t.Error("expected error for inverted delay range")
	}
}

func TestStartRejectsBadGuestID(t *testing.T) {
	h := newSimulatorHarness(t)
	busy, _ := LookupPersonality("busy")
	if _, err := h.simulator.Start(context.Background(), guest.Guest{ID: "bad.id"}, busy); err == nil {
		t.Error("expected error for guest id containing a dot")
	}
}
