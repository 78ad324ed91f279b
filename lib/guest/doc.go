// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package guest provides the Guest Directory: the set of registered
// guests an invitation is fanned out to.
//
// The coordinator consults a [Directory] once per invitation and
// freezes the returned list into that event's record. Guests added to
// the directory afterwards neither receive the invitation nor count
// toward its total_invited.
//
// [Static] serves a fixed list (typically from the coordinator's
// config file). [FileDirectory] re-reads a YAML file on every lookup so
// operators can edit the guest list without restarting the
// coordinator.
package guest
