// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Rsvp-guest runs simulated guests against a shared NATS broker. Each
// guest subscribes to its own invitation subject, thinks for a few
// seconds, and answers Yes, No, or Maybe according to its
// personality. By default every guest in the configured directory is
// simulated with a random personality; --id and --personality narrow
// that down.
package main
