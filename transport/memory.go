// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Compile-time interface check.
var _ Port = (*MemoryBroker)(nil)

// DefaultHistoryLimit is how many messages per topic a MemoryBroker
// keeps for Published and for replay to new durable consumers.
const DefaultHistoryLimit = 1024

// ErrPublishRejected is returned by MemoryBroker.Publish for publishes
// armed to fail with FailPublishes.
var ErrPublishRejected = errors.New("publish rejected")

// DeadLetter is a message whose handler returned an error.
type DeadLetter struct {
	Topic   string
	Durable string
	Payload []byte
	Err     error
}

// MemoryBroker is an in-process Port for tests and single-process
// demos. Each subscription delivers on its own goroutine, in publish
// order. Durable consumers behave like their JetStream counterparts:
// the first subscriber on a durable name receives the topic's history,
// subscribers sharing the name split the messages between them, and
// messages published while no subscriber is attached wait for the next
// one.
//
// Topic history is capped at a fixed number of messages, oldest
// dropped first, like a stream with a max-messages limit. The cap does
// not apply to queues of consumers that already exist.
type MemoryBroker struct {
	mu           sync.Mutex
	closed       bool
	groups       map[string]*memoryGroup
	published    map[string][][]byte
	historyLimit int
	failures     map[string]int
	deadLetters  []DeadLetter
	ephemeral    int
}

// MemoryOption configures a MemoryBroker.
type MemoryOption func(*MemoryBroker)

// WithHistoryLimit sets the per-topic history cap. Values below 1 are
// ignored.
func WithHistoryLimit(limit int) MemoryOption {
	return func(b *MemoryBroker) {
		if limit > 0 {
			b.historyLimit = limit
		}
	}
}

// memoryGroup is one consumer: a queue shared by the subscriptions
// attached under the same topic and durable name.
type memoryGroup struct {
	key     string
	topic   string
	durable string
	queue   [][]byte

	// wake is closed and replaced whenever queue grows.
	wake chan struct{}
}

// NewMemoryBroker returns an empty broker.
func NewMemoryBroker(options ...MemoryOption) *MemoryBroker {
	b := &MemoryBroker{
		groups:       make(map[string]*memoryGroup),
		published:    make(map[string][][]byte),
		historyLimit: DefaultHistoryLimit,
		failures:     make(map[string]int),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Publish records payload and queues a copy on every consumer of
// topic.
func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.failures[topic] > 0 {
		b.failures[topic]--
		return fmt.Errorf("publishing to %s: %w", topic, ErrPublishRejected)
	}

	message := append([]byte(nil), payload...)
	history := append(b.published[topic], message)
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	b.published[topic] = history
	for _, group := range b.groups {
		if group.topic == topic {
			group.push(message)
		}
	}
	return nil
}

// Subscribe attaches handler to topic. See [Subscriber] for the
// meaning of durable.
func (b *MemoryBroker) Subscribe(ctx context.Context, topic, durable string, handler Handler) (Subscription, error) {
	if topic == "" {
		return nil, errors.New("subscribing: topic is empty")
	}
	if handler == nil {
		return nil, errors.New("subscribing: handler is nil")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	var group *memoryGroup
	if durable == "" {
		b.ephemeral++
		group = newMemoryGroup("~ephemeral-"+strconv.Itoa(b.ephemeral), topic, "")
		b.groups[group.key] = group
	} else {
		key := topic + "|" + durable
		group = b.groups[key]
		if group == nil {
			group = newMemoryGroup(key, topic, durable)
			for _, message := range b.published[topic] {
				group.push(message)
			}
			b.groups[key] = group
		}
	}
	b.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	subscription := &memorySubscription{
		broker:  b,
		group:   group,
		handler: handler,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go subscription.run(subCtx)
	return subscription, nil
}

// Close stops every subscription. Later publishes and subscribes
// return ErrClosed.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	// Waking every group lets blocked deliverers observe closed.
	for _, group := range b.groups {
		group.broadcast()
	}
	return nil
}

// Connected reports whether the broker is open.
func (b *MemoryBroker) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

// FailPublishes makes the next count publishes to topic fail with
// ErrPublishRejected.
func (b *MemoryBroker) FailPublishes(topic string, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[topic] += count
}

// Published returns a copy of the payloads accepted on topic that are
// still in its history, oldest first.
func (b *MemoryBroker) Published(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	messages := make([][]byte, len(b.published[topic]))
	for i, message := range b.published[topic] {
		messages[i] = append([]byte(nil), message...)
	}
	return messages
}

// DeadLetters returns the messages whose handlers failed, in the order
// they failed.
func (b *MemoryBroker) DeadLetters() []DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DeadLetter(nil), b.deadLetters...)
}

func newMemoryGroup(key, topic, durable string) *memoryGroup {
	return &memoryGroup{key: key, topic: topic, durable: durable, wake: make(chan struct{})}
}

// push and broadcast require the broker lock.
func (g *memoryGroup) push(message []byte) {
	g.queue = append(g.queue, message)
	g.broadcast()
}

func (g *memoryGroup) broadcast() {
	close(g.wake)
	g.wake = make(chan struct{})
}

type memorySubscription struct {
	broker  *MemoryBroker
	group   *memoryGroup
	handler Handler
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *memorySubscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.detach()

	for {
		message, ok := s.next(ctx)
		if !ok {
			return
		}
		if err := s.handler(ctx, message); err != nil {
			s.broker.mu.Lock()
			s.broker.deadLetters = append(s.broker.deadLetters, DeadLetter{
				Topic:   s.group.topic,
				Durable: s.group.durable,
				Payload: message,
				Err:     err,
			})
			s.broker.mu.Unlock()
		}
	}
}

// next blocks until a message is queued for the group, or the
// subscription or broker shuts down.
func (s *memorySubscription) next(ctx context.Context) ([]byte, bool) {
	b := s.broker
	for {
		b.mu.Lock()
		if b.closed || ctx.Err() != nil {
			b.mu.Unlock()
			return nil, false
		}
		if len(s.group.queue) > 0 {
			message := s.group.queue[0]
			s.group.queue = s.group.queue[1:]
			b.mu.Unlock()
			return message, true
		}
		wake := s.group.wake
		b.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (s *memorySubscription) detach() {
	b := s.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.group.durable == "" {
		delete(b.groups, s.group.key)
	}
}

func (s *memorySubscription) Stop() error {
	s.cancel()
	<-s.done
	return nil
}
