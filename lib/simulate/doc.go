// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package simulate drives simulated guests for demos and local
// development.
//
// A simulated guest subscribes to its own invitation topic, waits a
// random thinking delay, and publishes a [rsvp.Response] to the
// coordinator's intake topic. Its answer is drawn from a [Personality]:
// a probability of Yes, a probability of Maybe, and No otherwise.
//
// The rsvp-guest command runs one simulated guest against a real
// broker. The coordinator runs the whole configured guest list in
// process when it is started with the in-memory broker.
package simulate
