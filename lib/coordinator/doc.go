// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordinator runs the per-event RSVP state machine.
//
// An [Engine] takes invitations and responses from the intake topic
// (see [Engine.HandleMessage]), fans each invitation out to the guests
// the directory lists at that moment, and collects responses until the
// event's collection window closes. When the window closes, or when
// every invited guest has answered and early completion is enabled, it
// compiles one summary and publishes it to the host's topic.
//
// Lifecycle of one event:
//
//	Collecting ──deadline or all responded──▶ Summarizing ──published or retries exhausted──▶ Closed
//
// Exactly one summary is compiled per event. The deadline timer and
// the last response can race to close the window; both call
// [registry.Registry.BeginSummarizing] and only the caller that wins
// the transition goes on to compile. The response set is frozen at
// that transition: a response that loses the race is reported as late
// and never appears in the summary.
//
// Summary delivery retries with [backoff.Retry] on the engine's clock.
// When the attempts run out the engine logs a [PublishFailureError]
// and closes the event anyway, so a host that never comes back cannot
// pin memory.
//
// The registry lock is never held across a publish; all broker I/O
// happens outside it.
package coordinator
