// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/rsvp/lib/clock"
	"github.com/bureau-foundation/rsvp/lib/codec"
	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/version"
)

// Control actions served by the coordinator.
const (
	ActionStatus = "status"
	ActionEvents = "events"
	ActionEvent  = "event"
)

// EventSource is the read side of the event registry.
type EventSource interface {
	List() []registry.Snapshot
	Get(eventID string) (registry.Snapshot, bool)
	Stats() registry.Stats
}

// StatusResponse answers ActionStatus.
type StatusResponse struct {
	Version         string         `cbor:"version"`
	StartedAt       time.Time      `cbor:"started_at"`
	UptimeSeconds   int64          `cbor:"uptime_seconds"`
	Events          registry.Stats `cbor:"events"`
	BrokerConnected bool           `cbor:"broker_connected"`
}

// EventsResponse answers ActionEvents.
type EventsResponse struct {
	Events []registry.Snapshot `cbor:"events"`
}

// EventRequest is the request body for ActionEvent.
type EventRequest struct {
	EventID string `cbor:"event_id"`
}

// ControlConfig wires the control actions to a running coordinator.
type ControlConfig struct {
	Events EventSource
	Clock  clock.Clock

	// Connected reports broker health. Nil means always connected.
	Connected func() bool
}

// RegisterControl installs the status, events, and event actions on
// server.
func RegisterControl(server *SocketServer, config ControlConfig) error {
	if config.Events == nil {
		return fmt.Errorf("service: control requires an event source")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	startedAt := config.Clock.Now()

	server.Handle(ActionStatus, func(ctx context.Context, raw []byte) (any, error) {
		now := config.Clock.Now()
		connected := true
		if config.Connected != nil {
			connected = config.Connected()
		}
		return StatusResponse{
			Version:         version.Info(),
			StartedAt:       startedAt,
			UptimeSeconds:   int64(now.Sub(startedAt) / time.Second),
			Events:          config.Events.Stats(),
			BrokerConnected: connected,
		}, nil
	})

	server.Handle(ActionEvents, func(ctx context.Context, raw []byte) (any, error) {
		return EventsResponse{Events: config.Events.List()}, nil
	})

	server.Handle(ActionEvent, func(ctx context.Context, raw []byte) (any, error) {
		var request EventRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("invalid event request: %w", err)
		}
		eventID := strings.TrimSpace(request.EventID)
		if eventID == "" {
			return nil, fmt.Errorf("missing required field: event_id")
		}
		snapshot, ok := config.Events.Get(eventID)
		if !ok {
			return nil, fmt.Errorf("event %q is not active", eventID)
		}
		return snapshot, nil
	})
	return nil
}
