// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rsvp

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "party"}
	if got := topics.Intake(); got != "party.coordinator" {
		t.Errorf("Intake() = %q", got)
	}
	if got := topics.Guest("guest_alice"); got != "party.guest.guest_alice" {
		t.Errorf("Guest() = %q", got)
	}
	if got := topics.Host("host_dana"); got != "party.host.host_dana" {
		t.Errorf("Host() = %q", got)
	}
	if got := (Topics{}).All(); got != "rsvp.>" {
		t.Errorf("All() with default prefix = %q", got)
	}
}

func TestValidateToken(t *testing.T) {
	for _, bad := range []string{"", "guest.alice", "guest alice", "guest*", "guest>"} {
		if err := ValidateToken("guest id", bad); err == nil {
			t.Errorf("ValidateToken(%q) accepted", bad)
		}
	}
	if err := ValidateToken("guest id", "guest_alice-2"); err != nil {
		t.Errorf("ValidateToken rejected a valid id: %v", err)
	}
}

func TestValidatePrefix(t *testing.T) {
	if err := ValidatePrefix("events.rsvp"); err != nil {
		t.Errorf("ValidatePrefix rejected dotted prefix: %v", err)
	}
	for _, bad := range []string{"", "rsvp.", ".rsvp", "rs vp", "rsvp.>"} {
		if err := ValidatePrefix(bad); err == nil {
			t.Errorf("ValidatePrefix(%q) accepted", bad)
		}
	}
}
