// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport is the publish/subscribe port between the RSVP
// participants and a message broker.
//
// Everything above this package sees topics and opaque payloads. A
// [Port] publishes to a topic and subscribes a [Handler] to one, with
// at-least-once delivery and per-subscription serial handling. The
// handler's return value decides the message's fate: nil acknowledges
// it, an error terminates it without redelivery so that a payload that
// cannot be processed is dead-lettered instead of looping forever.
// Handlers that want a message dropped quietly (a late RSVP, say)
// return nil after logging.
//
// [NATSPort] is the production implementation. It binds every topic
// under the configured prefix to a single JetStream stream and gives
// each subscription a pull consumer with explicit acknowledgement.
// Durable consumer names survive restarts and reconnects; the client
// reconnects forever after the initial connection, which itself is
// retried with [backoff.Retry].
//
// [MemoryBroker] is an in-process implementation with the same
// delivery rules, plus failure injection ([MemoryBroker.FailPublishes])
// and inspection ([MemoryBroker.Published], [MemoryBroker.DeadLetters])
// for tests.
package transport
