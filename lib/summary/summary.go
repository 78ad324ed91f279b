// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
)

// Compile builds the Summary for snapshot. Responses keep the
// snapshot's order (received_at, then guest_id). compiledAt is stamped
// as given.
func Compile(snapshot registry.Snapshot, trigger rsvp.Trigger, compiledAt time.Time) rsvp.Summary {
	names := make(map[string]string, len(snapshot.Invited))
	for _, g := range snapshot.Invited {
		names[g.ID] = g.DisplayName()
	}

	var tally rsvp.Tally
	responses := make([]rsvp.ResponseSnapshot, 0, len(snapshot.Responses))
	for _, response := range snapshot.Responses {
		switch response.Decision {
		case rsvp.DecisionYes:
			tally.Attending++
		case rsvp.DecisionNo:
			tally.NotAttending++
		case rsvp.DecisionMaybe:
			tally.Maybe++
		}

		name := response.GuestName
		if name == "" {
			name = names[response.GuestID]
		}
		responses = append(responses, rsvp.ResponseSnapshot{
			GuestID:   response.GuestID,
			GuestName: name,
			Decision:  response.Decision,
			Message:   response.Message,
			Timestamp: response.ReceivedAt,
		})
	}
	tally.NoResponse = len(snapshot.Invited) - len(responses)

	return rsvp.Summary{
		EventID:      snapshot.Invitation.EventID,
		EventName:    snapshot.Invitation.EventName,
		HostID:       snapshot.Invitation.HostID,
		TotalInvited: len(snapshot.Invited),
		Responses:    responses,
		Tally:        tally,
		Trigger:      trigger,
		CompiledAt:   compiledAt,
	}
}

// Format renders s as the multi-line text report hosts print.
func Format(s rsvp.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RSVP summary for %s (%s)\n", s.EventName, s.EventID)
	fmt.Fprintf(&b, "  invited:       %d\n", s.TotalInvited)
	fmt.Fprintf(&b, "  attending:     %d\n", s.Attending)
	fmt.Fprintf(&b, "  not attending: %d\n", s.NotAttending)
	fmt.Fprintf(&b, "  maybe:         %d\n", s.Maybe)
	fmt.Fprintf(&b, "  no response:   %d\n", s.NoResponse)
	fmt.Fprintf(&b, "  closed by:     %s at %s\n", s.Trigger, s.CompiledAt.UTC().Format(time.RFC3339))
	for _, response := range s.Responses {
		name := response.GuestName
		if name == "" {
			name = response.GuestID
		}
		fmt.Fprintf(&b, "  - %s: %s", name, response.Decision)
		if response.Message != "" {
			fmt.Fprintf(&b, " (%q)", response.Message)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
