// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Rsvp-host is the host's command line for the RSVP coordinator.
//
// "rsvp-host invite" publishes an invitation to the coordinator's
// intake subject and waits on the host's own subject for the summary.
// It needs the shared NATS broker; the in-process memory broker only
// exists inside a coordinator.
//
// The status, events, event, and watch subcommands query a running
// coordinator over its control socket instead of the broker, so they
// work even while the broker is down.
package main
