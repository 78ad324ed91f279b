// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"errors"
	"fmt"
)

// ErrShuttingDown is returned for submissions that arrive after
// Shutdown has begun.
var ErrShuttingDown = errors.New("coordinator is shutting down")

// PublishFailureError reports a summary the engine gave up delivering.
type PublishFailureError struct {
	EventID  string
	Topic    string
	Attempts int
	Err      error
}

func (e *PublishFailureError) Error() string {
	return fmt.Sprintf("publishing summary for event %s to %s failed after %d attempts: %v",
		e.EventID, e.Topic, e.Attempts, e.Err)
}

func (e *PublishFailureError) Unwrap() error { return e.Err }
