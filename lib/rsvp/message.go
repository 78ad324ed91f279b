// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rsvp

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Decision is a guest's answer to an invitation.
type Decision string

const (
	DecisionYes   Decision = "Yes"
	DecisionNo    Decision = "No"
	DecisionMaybe Decision = "Maybe"
)

// ParseDecision accepts the canonical spellings case-insensitively and
// returns the canonical Decision.
func ParseDecision(raw string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes":
		return DecisionYes, nil
	case "no":
		return DecisionNo, nil
	case "maybe":
		return DecisionMaybe, nil
	default:
		return "", fmt.Errorf("unknown decision %q (want Yes, No, or Maybe)", raw)
	}
}

// Kind discriminates the message variants on the wire.
type Kind string

const (
	KindInvitation Kind = "invitation"
	KindResponse   Kind = "response"
	KindSummary    Kind = "summary"
)

// Message is implemented by Invitation, Response, and Summary only.
type Message interface {
	Kind() Kind
	isMessage()
}

// Invitation is a host's request to gather RSVPs for one event.
type Invitation struct {
	EventID     string `json:"event_id"`
	HostID      string `json:"host_id"`
	EventName   string `json:"event_name"`
	DateTime    string `json:"date_time"`
	Location    string `json:"location"`
	Description string `json:"description"`
	MaxCapacity *int   `json:"max_capacity,omitempty"`
}

// NewInvitation returns an Invitation with a freshly generated
// event_id.
func NewInvitation(hostID, eventName string) Invitation {
	return Invitation{
		EventID:   uuid.NewString(),
		HostID:    hostID,
		EventName: eventName,
	}
}

func (Invitation) Kind() Kind { return KindInvitation }
func (Invitation) isMessage() {}

// Validate reports the first missing required field.
func (i Invitation) Validate() error {
	if strings.TrimSpace(i.EventID) == "" {
		return missingField("event_id")
	}
	if strings.TrimSpace(i.HostID) == "" {
		return missingField("host_id")
	}
	if strings.TrimSpace(i.EventName) == "" {
		return missingField("event_name")
	}
	if i.MaxCapacity != nil && *i.MaxCapacity < 0 {
		return &MalformedMessageError{Field: "max_capacity", Reason: "must not be negative"}
	}
	return nil
}

// Response is one guest's answer to one event.
type Response struct {
	GuestID   string   `json:"guest_id"`
	GuestName string   `json:"guest_name"`
	EventID   string   `json:"event_id"`
	Decision  Decision `json:"decision"`
	Message   string   `json:"message,omitempty"`

	// ReceivedAt is stamped by the coordinator when the response is
	// taken in. Guests leave it unset.
	ReceivedAt time.Time `json:"received_at,omitzero"`
}

func (Response) Kind() Kind { return KindResponse }
func (Response) isMessage() {}

// Validate reports the first missing required field or an unknown
// decision.
func (r Response) Validate() error {
	if strings.TrimSpace(r.GuestID) == "" {
		return missingField("guest_id")
	}
	if strings.TrimSpace(r.EventID) == "" {
		return missingField("event_id")
	}
	if _, err := ParseDecision(string(r.Decision)); err != nil {
		return &MalformedMessageError{Field: "decision", Reason: err.Error()}
	}
	return nil
}

// ResponseSnapshot is a Response as it appears in a Summary.
type ResponseSnapshot struct {
	GuestID   string    `json:"guest_id"`
	GuestName string    `json:"guest_name"`
	Decision  Decision  `json:"decision"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Tally counts decisions across the invited guests.
type Tally struct {
	Attending    int `json:"attending"`
	NotAttending int `json:"not_attending"`
	Maybe        int `json:"maybe"`
	NoResponse   int `json:"no_response"`
}

// Total is the number of guests the tally accounts for. For a compiled
// Summary it always equals TotalInvited.
func (t Tally) Total() int {
	return t.Attending + t.NotAttending + t.Maybe + t.NoResponse
}

// Trigger records what closed an event's collection window.
type Trigger string

const (
	TriggerDeadline     Trigger = "deadline"
	TriggerAllResponded Trigger = "all_responded"
)

// Summary is the compiled result delivered to the host.
type Summary struct {
	EventID      string             `json:"event_id"`
	EventName    string             `json:"event_name"`
	HostID       string             `json:"host_id"`
	TotalInvited int                `json:"total_invited"`
	Responses    []ResponseSnapshot `json:"responses"`
	Tally
	Trigger    Trigger   `json:"trigger"`
	CompiledAt time.Time `json:"compiled_at"`
}

func (Summary) Kind() Kind { return KindSummary }
func (Summary) isMessage() {}

// Validate checks the summary's identity fields and the tally
// invariant.
func (s Summary) Validate() error {
	if strings.TrimSpace(s.EventID) == "" {
		return missingField("event_id")
	}
	if got := s.Tally.Total(); got != s.TotalInvited {
		return &MalformedMessageError{
			Field:  "tally",
			Reason: fmt.Sprintf("counts sum to %d, total_invited is %d", got, s.TotalInvited),
		}
	}
	return nil
}
