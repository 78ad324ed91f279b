// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import "errors"

var (
	// ErrDuplicateEvent means an invitation reused the id of an event
	// that is in flight or recently retired.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrUnknownEvent means no record exists for the id: it never
	// existed, or it was retired long enough ago to fall out of the
	// retired ring.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrLateResponse means the response arrived after the event left
	// Collecting.
	ErrLateResponse = errors.New("late response")

	// ErrUninvitedGuest means the responding guest is not in the
	// event's frozen invitation list.
	ErrUninvitedGuest = errors.New("guest was not invited")

	// ErrAlreadySummarizing means another caller already moved the
	// event out of Collecting.
	ErrAlreadySummarizing = errors.New("event already left collecting")

	// ErrNotSummarizing means Close was called on an event whose
	// summary has not been compiled.
	ErrNotSummarizing = errors.New("event is not summarizing")

	// ErrClosed means CancelAll has run and the registry takes no new
	// events.
	ErrClosed = errors.New("registry closed")
)
