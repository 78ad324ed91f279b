// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rsvp

import (
	"errors"
	"fmt"
)

// MalformedMessageError reports a payload that cannot be decoded into
// a valid message. It is terminal for that payload: redelivering it
// would fail the same way. Callers can use errors.As to extract it:
//
//	var malformed *rsvp.MalformedMessageError
//	if errors.As(err, &malformed) {
//	    logger.Warn("dead-lettering payload", "field", malformed.Field)
//	}
type MalformedMessageError struct {
	// Field names the offending field, or is empty when the payload
	// as a whole is unusable.
	Field string
	// Reason describes what is wrong.
	Reason string
}

func (e *MalformedMessageError) Error() string {
	if e.Field == "" {
		return "malformed message: " + e.Reason
	}
	return fmt.Sprintf("malformed message: field %q: %s", e.Field, e.Reason)
}

// IsMalformed reports whether err is or wraps a *MalformedMessageError.
func IsMalformed(err error) bool {
	var malformed *MalformedMessageError
	return errors.As(err, &malformed)
}

func missingField(field string) error {
	return &MalformedMessageError{Field: field, Reason: "required field is missing or empty"}
}
