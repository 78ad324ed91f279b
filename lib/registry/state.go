// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import "fmt"

// State is an event's position in its lifecycle.
type State int

const (
	Collecting State = iota
	Summarizing
	Closed
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Summarizing:
		return "summarizing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON and CBOR listings.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "collecting":
		*s = Collecting
	case "summarizing":
		*s = Summarizing
	case "closed":
		*s = Closed
	default:
		return fmt.Errorf("unknown event state %q", text)
	}
	return nil
}

// MergeOutcome is the result of merging one response.
type MergeOutcome int

const (
	// Accepted is a guest's first response to the event.
	Accepted MergeOutcome = iota
	// Superseded replaced an earlier response from the same guest.
	Superseded
	// Rejected left the record untouched; the accompanying error says
	// why.
	Rejected
)

func (o MergeOutcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Superseded:
		return "superseded"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MergeResult reports a merge outcome together with the event's
// response count after the merge.
type MergeResult struct {
	Outcome   MergeOutcome
	Responded int
	Invited   int
}

// Complete reports whether every invited guest has now responded.
func (r MergeResult) Complete() bool {
	return r.Outcome != Rejected && r.Invited > 0 && r.Responded == r.Invited
}
