// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/rsvp/lib/testutil"
)

func collect(t *testing.T, broker *MemoryBroker, topic, durable string) (<-chan string, Subscription) {
	t.Helper()
	received := make(chan string, 64)
	subscription, err := broker.Subscribe(context.Background(), topic, durable, func(_ context.Context, payload []byte) error {
		received <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe(%s, %q): %v", topic, durable, err)
	}
	t.Cleanup(func() { subscription.Stop() })
	return received, subscription
}

func TestMemoryBrokerDeliversInOrder(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	received, _ := collect(t, broker, "rsvp.host.dana", "")

	for i := range 10 {
		if err := broker.Publish(context.Background(), "rsvp.host.dana", []byte(fmt.Sprint(i))); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	for i := range 10 {
		got := testutil.RequireReceive(t, received, 5*time.Second, "waiting for message %d", i)
		if got != fmt.Sprint(i) {
			t.Fatalf("message %d = %q, want %q", i, got, fmt.Sprint(i))
		}
	}
}

func TestMemoryBrokerTopicsAreIsolated(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	alice, _ := collect(t, broker, "rsvp.guest.alice", "")
	bob, _ := collect(t, broker, "rsvp.guest.bob", "")

	broker.Publish(context.Background(), "rsvp.guest.alice", []byte("for alice"))

	if got := testutil.RequireReceive(t, alice, 5*time.Second, "alice"); got != "for alice" {
		t.Fatalf("alice got %q", got)
	}
	testutil.RequireNoReceive(t, bob, 50*time.Millisecond, "bob received alice's message")
}

func TestMemoryBrokerDurableReplaysHistory(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	broker.Publish(context.Background(), "rsvp.coordinator", []byte("early"))
	received, _ := collect(t, broker, "rsvp.coordinator", "coordinator")

	if got := testutil.RequireReceive(t, received, 5*time.Second, "durable backlog"); got != "early" {
		t.Fatalf("durable got %q, want the message published before subscribing", got)
	}

	ephemeral, _ := collect(t, broker, "rsvp.coordinator", "")
	testutil.RequireNoReceive(t, ephemeral, 50*time.Millisecond, "ephemeral consumer replayed history")
}

func TestMemoryBrokerHistoryIsCapped(t *testing.T) {
	broker := NewMemoryBroker(WithHistoryLimit(3))
	defer broker.Close()
	topic := "rsvp.host.dana"
	live, _ := collect(t, broker, topic, "archive")

	for i := range 5 {
		broker.Publish(context.Background(), topic, []byte(fmt.Sprint(i)))
	}

	history := broker.Published(topic)
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	for i, message := range history {
		if want := fmt.Sprint(i + 2); string(message) != want {
			t.Errorf("history[%d] = %q, want %q", i, message, want)
		}
	}

	// A consumer attached before the overflow still gets everything.
	for i := range 5 {
		if got := testutil.RequireReceive(t, live, 5*time.Second, "live message %d", i); got != fmt.Sprint(i) {
			t.Fatalf("live message %d = %q", i, got)
		}
	}

	// A new durable consumer replays only what is still kept.
	late, _ := collect(t, broker, topic, "late")
	for i := 2; i < 5; i++ {
		if got := testutil.RequireReceive(t, late, 5*time.Second, "replayed message %d", i); got != fmt.Sprint(i) {
			t.Fatalf("replayed message = %q, want %q", got, fmt.Sprint(i))
		}
	}
	testutil.RequireNoReceive(t, late, 50*time.Millisecond, "replay beyond the history cap")
}

func TestMemoryBrokerDefaultHistoryLimit(t *testing.T) {
	broker := NewMemoryBroker(WithHistoryLimit(0))
	defer broker.Close()
	for i := range DefaultHistoryLimit + 10 {
		broker.Publish(context.Background(), "rsvp.guest.alice", []byte(fmt.Sprint(i)))
	}
	history := broker.Published("rsvp.guest.alice")
	if len(history) != DefaultHistoryLimit {
		t.Fatalf("history length = %d, want %d", len(history), DefaultHistoryLimit)
	}
	if got, want := string(history[0]), fmt.Sprint(10); got != want {
		t.Errorf("oldest kept message = %q, want %q", got, want)
	}
}

func TestMemoryBrokerDurableSharesMessages(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	received := make(chan string, 64)
	handler := func(_ context.Context, payload []byte) error {
		received <- string(payload)
		return nil
	}
	for range 2 {
		subscription, err := broker.Subscribe(context.Background(), "rsvp.coordinator", "coordinator", handler)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer subscription.Stop()
	}

	for i := range 20 {
		broker.Publish(context.Background(), "rsvp.coordinator", []byte(fmt.Sprint(i)))
	}
	seen := make(map[string]bool)
	for range 20 {
		message := testutil.RequireReceive(t, received, 5*time.Second, "shared durable delivery")
		if seen[message] {
			t.Fatalf("message %s delivered twice to one durable consumer", message)
		}
		seen[message] = true
	}
	testutil.RequireNoReceive(t, received, 50*time.Millisecond, "extra delivery")
}

func TestMemoryBrokerDeadLettersHandlerErrors(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	handled := make(chan struct{}, 2)
	_, err := broker.Subscribe(context.Background(), "rsvp.coordinator", "coordinator", func(_ context.Context, payload []byte) error {
		defer func() { handled <- struct{}{} }()
		if string(payload) == "garbage" {
			return errors.New("malformed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	broker.Publish(context.Background(), "rsvp.coordinator", []byte("garbage"))
	broker.Publish(context.Background(), "rsvp.coordinator", []byte("fine"))
	testutil.RequireReceive(t, handled, 5*time.Second, "first delivery")
	testutil.RequireReceive(t, handled, 5*time.Second, "second delivery")

	letters := broker.DeadLetters()
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(letters))
	}
	if string(letters[0].Payload) != "garbage" || letters[0].Durable != "coordinator" {
		t.Errorf("dead letter = %+v", letters[0])
	}
}

func TestMemoryBrokerFailPublishes(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	broker.FailPublishes("rsvp.host.dana", 2)

	for range 2 {
		if err := broker.Publish(context.Background(), "rsvp.host.dana", []byte("summary")); !errors.Is(err, ErrPublishRejected) {
			t.Fatalf("Publish error = %v, want ErrPublishRejected", err)
		}
	}
	if err := broker.Publish(context.Background(), "rsvp.host.dana", []byte("summary")); err != nil {
		t.Fatalf("third Publish: %v", err)
	}
	if got := len(broker.Published("rsvp.host.dana")); got != 1 {
		t.Errorf("Published() = %d messages, want 1", got)
	}
}

func TestMemoryBrokerStopAndClose(t *testing.T) {
	broker := NewMemoryBroker()
	received, subscription := collect(t, broker, "rsvp.host.dana", "")

	if err := subscription.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := subscription.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	broker.Publish(context.Background(), "rsvp.host.dana", []byte("after stop"))
	testutil.RequireNoReceive(t, received, 50*time.Millisecond, "delivery after Stop")

	broker.Close()
	if broker.Connected() {
		t.Error("Connected() = true after Close")
	}
	if err := broker.Publish(context.Background(), "rsvp.host.dana", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
	if _, err := broker.Subscribe(context.Background(), "rsvp.host.dana", "", func(context.Context, []byte) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryBrokerContextCancelStopsDelivery(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan string, 4)
	_, err := broker.Subscribe(ctx, "rsvp.host.dana", "", func(_ context.Context, payload []byte) error {
		received <- string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()
	broker.Publish(context.Background(), "rsvp.host.dana", []byte("late"))
	testutil.RequireNoReceive(t, received, 50*time.Millisecond, "delivery after cancel")
}
