// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry is the in-memory table of events whose RSVPs are
// being collected. It owns every piece of mutable per-event state in
// the coordinator.
//
// Each event moves through three states:
//
//	Collecting  --BeginSummarizing-->  Summarizing  --Close-->  Closed (evicted)
//
// Responses merge only while Collecting. [Registry.BeginSummarizing]
// is the single gate out of Collecting: when a deadline timer and an
// early-completion trigger race, exactly one caller gets the frozen
// [Snapshot] and every other caller gets [ErrAlreadySummarizing]. A
// record never returns to Collecting.
//
// All state transitions run under one registry-wide mutex. The lock is
// held only for in-memory work, never while publishing to the broker,
// so a merge and a deadline expiry cannot interleave into a lost
// update or a double summary.
//
// Closed events are remembered in a bounded ring of retired ids. A
// response for a retired id is classified as [ErrLateResponse] rather
// than [ErrUnknownEvent], and an invitation reusing a retired id is
// rejected as [ErrDuplicateEvent].
package registry
