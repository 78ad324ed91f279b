// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework shared by the rsvp
// binaries.
//
// A [Command] tree dispatches on the first positional argument, parses
// per-command pflag flag sets, prints structured help, and suggests the
// closest command or flag name on a typo. [NewLogger] picks a text or
// JSON slog handler depending on whether stderr is a terminal, and
// [ExitError] lets a command choose its exit status without printing
// an error.
package cli
