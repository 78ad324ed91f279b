// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observe

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/rsvp/lib/guest"
	"github.com/bureau-foundation/rsvp/lib/registry"
	"github.com/bureau-foundation/rsvp/lib/rsvp"
)

func newTestRouter(t *testing.T, health func() error) (http.Handler, *registry.Registry) {
	t.Helper()
	events := registry.New(0)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	invitation := rsvp.Invitation{EventID: "evt-1", HostID: "host_dana", EventName: "Dinner"}
	if _, err := events.Register(invitation, []guest.Guest{{ID: "guest_alice"}}, now, now.Add(time.Minute)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	promRegistry := prometheus.NewRegistry()
	metrics := NewMetrics(promRegistry)
	metrics.InvitationAccepted()

	return NewRouter(RouterConfig{
		Gatherer: promRegistry,
		Events:   events,
		Health:   health,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}), events
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	if got := get(t, router, "/healthz").Code; got != http.StatusOK {
		t.Errorf("healthy /healthz = %d, want 200", got)
	}

	router, _ = newTestRouter(t, func() error { return errors.New("broker disconnected") })
	recorder := get(t, router, "/healthz")
	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy /healthz = %d, want 503", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "broker disconnected") {
		t.Errorf("body = %s, want the health error", recorder.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	recorder := get(t, router, "/metrics")
	if recorder.Code != http.StatusOK {
		t.Fatalf("/metrics = %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `rsvp_coordinator_invitations_total{result="accepted"} 1`) {
		t.Errorf("/metrics missing invitation counter:\n%s", recorder.Body.String())
	}
}

func TestEventsEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	recorder := get(t, router, "/events")
	if recorder.Code != http.StatusOK {
		t.Fatalf("/events = %d", recorder.Code)
	}
	var listed []registry.Snapshot
	if err := json.Unmarshal(recorder.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding /events: %v", err)
	}
	if len(listed) != 1 || listed[0].EventID() != "evt-1" || listed[0].State != registry.Collecting {
		t.Errorf("/events = %+v", listed)
	}

	recorder = get(t, router, "/events/evt-1")
	if recorder.Code != http.StatusOK {
		t.Fatalf("/events/evt-1 = %d", recorder.Code)
	}
	var single registry.Snapshot
	if err := json.Unmarshal(recorder.Body.Bytes(), &single); err != nil {
		t.Fatalf("decoding /events/evt-1: %v", err)
	}
	if single.Invitation.EventName != "Dinner" || len(single.Invited) != 1 {
		t.Errorf("/events/evt-1 = %+v", single)
	}

	if got := get(t, router, "/events/evt-missing").Code; got != http.StatusNotFound {
		t.Errorf("/events/evt-missing = %d, want 404", got)
	}
}
