// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
)

// DefaultRetiredCapacity is how many closed event ids are remembered
// when New is given a non-positive capacity.
const DefaultRetiredCapacity = 1024

// Snapshot is a copy of one event record. Mutating it has no effect on
// the registry.
type Snapshot struct {
	Invitation rsvp.Invitation `json:"invitation"`
	Invited    []guest.Guest   `json:"invited"`

	// Responses holds one response per guest, ordered by ReceivedAt
	// and then GuestID.
	Responses []rsvp.Response `json:"responses"`

	State      State     `json:"state"`
	AcceptedAt time.Time `json:"accepted_at"`
	Deadline   time.Time `json:"deadline"`
}

// EventID is the snapshot's event id.
func (s Snapshot) EventID() string { return s.Invitation.EventID }

// Stats counts records by state.
type Stats struct {
	Collecting  int `json:"collecting"`
	Summarizing int `json:"summarizing"`
	Retired     int `json:"retired"`
}

type record struct {
	invitation rsvp.Invitation
	invited    []guest.Guest
	invitedIDs map[string]bool
	responses  map[string]rsvp.Response
	deadline   *clock.Timer
	state      State
	acceptedAt time.Time
	deadlineAt time.Time
}

func (r *record) snapshot() Snapshot {
	responses := make([]rsvp.Response, 0, len(r.responses))
	for _, response := range r.responses {
		responses = append(responses, response)
	}
	sort.Slice(responses, func(i, j int) bool {
		if !responses[i].ReceivedAt.Equal(responses[j].ReceivedAt) {
			return responses[i].ReceivedAt.Before(responses[j].ReceivedAt)
		}
		return responses[i].GuestID < responses[j].GuestID
	})
	return Snapshot{
		Invitation: r.invitation,
		Invited:    append([]guest.Guest(nil), r.invited...),
		Responses:  responses,
		State:      r.state,
		AcceptedAt: r.acceptedAt,
		Deadline:   r.deadlineAt,
	}
}

// Registry holds the events of one coordinator instance. The zero
// value is not usable; call New.
type Registry struct {
	mu      sync.Mutex
	records map[string]*record
	retired *retiredRing

	// closed is set by CancelAll. No event or deadline is accepted
	// afterwards.
	closed bool
}

// New returns an empty Registry remembering up to retiredCapacity
// closed event ids.
func New(retiredCapacity int) *Registry {
	if retiredCapacity <= 0 {
		retiredCapacity = DefaultRetiredCapacity
	}
	return &Registry{
		records: make(map[string]*record),
		retired: newRetiredRing(retiredCapacity),
	}
}

// Register creates a Collecting record for invitation with the given
// frozen guest list. deadline is informational; arming the timer is
// the caller's job (see AttachDeadline).
func (r *Registry) Register(invitation rsvp.Invitation, invited []guest.Guest, acceptedAt, deadline time.Time) (Snapshot, error) {
	eventID := invitation.EventID

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Snapshot{}, fmt.Errorf("event %s: %w", eventID, ErrClosed)
	}
	if _, exists := r.records[eventID]; exists {
		return Snapshot{}, fmt.Errorf("event %s: %w", eventID, ErrDuplicateEvent)
	}
	if r.retired.contains(eventID) {
		return Snapshot{}, fmt.Errorf("event %s (already summarized): %w", eventID, ErrDuplicateEvent)
	}

	invitedIDs := make(map[string]bool, len(invited))
	for _, g := range invited {
		invitedIDs[g.ID] = true
	}
	rec := &record{
		invitation: invitation,
		invited:    append([]guest.Guest(nil), invited...),
		invitedIDs: invitedIDs,
		responses:  make(map[string]rsvp.Response),
		state:      Collecting,
		acceptedAt: acceptedAt,
		deadlineAt: deadline,
	}
	r.records[eventID] = rec
	return rec.snapshot(), nil
}

// AttachDeadline stores the deadline timer for a Collecting event. If
// the event has already left Collecting (or is gone), or CancelAll has
// run, the timer is stopped and AttachDeadline returns false.
func (r *Registry) AttachDeadline(eventID string, timer *clock.Timer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[eventID]
	if r.closed || !exists || rec.state != Collecting {
		timer.Stop()
		return false
	}
	rec.deadline = timer
	return true
}

// MergeResponse records response for eventID. The state check and the
// write happen under the registry lock, so a merge either lands before
// the Collecting→Summarizing transition or is rejected as late.
func (r *Registry) MergeResponse(eventID string, response rsvp.Response) (MergeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[eventID]
	if !exists {
		if r.retired.contains(eventID) {
			return MergeResult{Outcome: Rejected}, fmt.Errorf("event %s: %w", eventID, ErrLateResponse)
		}
		return MergeResult{Outcome: Rejected}, fmt.Errorf("event %s: %w", eventID, ErrUnknownEvent)
	}

	result := MergeResult{Outcome: Rejected, Responded: len(rec.responses), Invited: len(rec.invited)}
	if rec.state != Collecting {
		return result, fmt.Errorf("event %s is %s: %w", eventID, rec.state, ErrLateResponse)
	}
	if !rec.invitedIDs[response.GuestID] {
		return result, fmt.Errorf("event %s, guest %s: %w", eventID, response.GuestID, ErrUninvitedGuest)
	}

	_, replaced := rec.responses[response.GuestID]
	rec.responses[response.GuestID] = response

	result.Outcome = Accepted
	if replaced {
		result.Outcome = Superseded
	}
	result.Responded = len(rec.responses)
	return result, nil
}

// BeginSummarizing moves eventID from Collecting to Summarizing, stops
// its deadline timer, and returns the frozen snapshot. Exactly one
// caller per event succeeds; later callers get ErrAlreadySummarizing.
func (r *Registry) BeginSummarizing(eventID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[eventID]
	if !exists {
		return Snapshot{}, fmt.Errorf("event %s: %w", eventID, ErrUnknownEvent)
	}
	if rec.state != Collecting {
		return Snapshot{}, fmt.Errorf("event %s is %s: %w", eventID, rec.state, ErrAlreadySummarizing)
	}
	rec.state = Summarizing
	rec.deadline.Stop()
	rec.deadline = nil
	return rec.snapshot(), nil
}

// Close evicts a Summarizing event and remembers its id as retired.
// Closing an event that is still Collecting is refused: the summary
// must be compiled first.
func (r *Registry) Close(eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[eventID]
	if !exists {
		return fmt.Errorf("event %s: %w", eventID, ErrUnknownEvent)
	}
	if rec.state != Summarizing {
		return fmt.Errorf("event %s is %s: %w", eventID, rec.state, ErrNotSummarizing)
	}
	rec.state = Closed
	delete(r.records, eventID)
	r.retired.add(eventID)
	return nil
}

// CancelAll stops every armed deadline timer and returns how many were
// actually cancelled. Records are left in place, but from then on
// Register fails with ErrClosed and AttachDeadline stops the timer it
// is given. Safe to call more than once.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	cancelled := 0
	for _, rec := range r.records {
		if rec.deadline.Stop() {
			cancelled++
		}
		rec.deadline = nil
	}
	return cancelled
}

// Get returns a snapshot of eventID.
func (r *Registry) Get(eventID string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[eventID]
	if !exists {
		return Snapshot{}, false
	}
	return rec.snapshot(), true
}

// List returns snapshots of every in-flight event, ordered by event
// id.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(r.records))
	for _, rec := range r.records {
		snapshots = append(snapshots, rec.snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].EventID() < snapshots[j].EventID()
	})
	return snapshots
}

// Len returns the number of in-flight events.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Stats counts in-flight records by state and the retired ids
// remembered.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats Stats
	for _, rec := range r.records {
		switch rec.state {
		case Collecting:
			stats.Collecting++
		case Summarizing:
			stats.Summarizing++
		}
	}
	stats.Retired = r.retired.len()
	return stats
}
