// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ExitError makes main exit with Code without printing anything. The
// command is expected to have written its own output, e.g. "rsvp-host
// invite" exits 2 when no summary arrives in time.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// ExitCode maps the error returned by a command to a process exit
// status and reports whether main should still print the error.
func ExitCode(err error) (code int, report bool) {
	if err == nil {
		return 0, false
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, false
	}
	return 1, true
}
