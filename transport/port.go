// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
)

// Handler processes one delivered payload. Returning nil acknowledges
// the message. Returning an error terminates it: the broker records
// it as a dead letter and does not redeliver it.
type Handler func(ctx context.Context, payload []byte) error

// Publisher sends payloads to named topics.
type Publisher interface {
	// Publish delivers payload to topic. A nil error means the broker
	// accepted the message; it says nothing about consumers.
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber attaches handlers to topics.
type Subscriber interface {
	// Subscribe delivers every message on topic to handler, one at a
	// time, until the subscription is stopped or ctx is cancelled.
	//
	// Subscriptions sharing a non-empty durable name on the same topic
	// form one consumer: each message goes to exactly one of them and
	// the broker remembers progress across reconnects. An empty
	// durable name gets an ephemeral consumer that only sees messages
	// published after Subscribe returns.
	Subscribe(ctx context.Context, topic, durable string, handler Handler) (Subscription, error)
}

// Subscription is a live handler registration.
type Subscription interface {
	// Stop detaches the handler and waits for an in-progress delivery
	// to finish. Safe to call more than once, but not from inside the
	// subscription's own handler.
	Stop() error
}

// Port is a broker connection.
type Port interface {
	Publisher
	Subscriber

	// Close stops every subscription and releases the connection.
	Close() error
}

// ErrClosed is returned by operations on a closed Port.
var ErrClosed = errors.New("transport closed")
