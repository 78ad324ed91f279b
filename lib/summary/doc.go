// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package summary compiles the final report for an event from the
// frozen registry snapshot taken when collection ends.
//
// Compile is a pure function: it reads only its arguments, so the
// coordinator can call it without holding the registry lock and tests
// can exercise it without a clock or a broker. The tally invariant
// (attending + not_attending + maybe + no_response == total_invited)
// holds for every snapshot the registry can produce, because the
// registry never admits a response from a guest outside the frozen
// invitation list.
package summary
