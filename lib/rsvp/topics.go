// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rsvp

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the prefix used when none is configured.
const DefaultTopicPrefix = "rsvp"

// Topics names the broker topics under a common prefix:
//
//	<prefix>.coordinator       intake for invitations and responses
//	<prefix>.guest.<guest_id>  invitations fanned out to one guest
//	<prefix>.host.<host_id>    summaries delivered to one host
type Topics struct {
	Prefix string
}

// Intake is the shared topic the coordinator consumes.
func (t Topics) Intake() string { return t.prefix() + ".coordinator" }

// Guest is the invitation topic of a single guest.
func (t Topics) Guest(guestID string) string { return t.prefix() + ".guest." + guestID }

// Host is the summary topic of a single host.
func (t Topics) Host(hostID string) string { return t.prefix() + ".host." + hostID }

// All is a wildcard covering every topic under the prefix, used to
// bind a broker stream.
func (t Topics) All() string { return t.prefix() + ".>" }

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// ValidateToken checks that an identifier can be used as one segment
// of a topic name: non-empty, no whitespace, and none of the
// separator or wildcard characters '.', '*', '>'.
func ValidateToken(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s is empty", kind)
	}
	if strings.ContainsAny(value, ".*> \t\r\n") {
		return fmt.Errorf("%s %q contains a character not allowed in a topic segment", kind, value)
	}
	return nil
}

// ValidatePrefix checks a topic prefix. Dots are allowed between
// segments; each segment must pass ValidateToken.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("topic prefix is empty")
	}
	for _, segment := range strings.Split(prefix, ".") {
		if err := ValidateToken("topic prefix segment", segment); err != nil {
			return err
		}
	}
	return nil
}
