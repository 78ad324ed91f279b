// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bureau-foundation/rsvp/lib/codec"
	"github.com/bureau-foundation/rsvp/lib/testutil"
)

func TestClientCallDecodesData(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"uptime_seconds": 42}, nil
	})
	startServer(t, server, socketPath)

	client := NewServiceClient(socketPath)
	var result struct {
		UptimeSeconds int `cbor:"uptime_seconds"`
	}
	if err := client.Call(context.Background(), "status", nil, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.UptimeSeconds != 42 {
		t.Errorf("uptime_seconds: got %d, want 42", result.UptimeSeconds)
	}
}

func TestClientCallSendsFields(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	var mu sync.Mutex
	var received map[string]any
	server.Handle("event", func(ctx context.Context, raw []byte) (any, error) {
		var request map[string]any
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		mu.Lock()
		received = request
		mu.Unlock()
		return nil, nil
	})
	startServer(t, server, socketPath)

	client := NewServiceClient(socketPath)
	if err := client.Call(context.Background(), "event", map[string]any{"event_id": "party"}, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received["action"] != "event" {
		t.Errorf("action: got %v, want event", received["action"])
	}
	if received["event_id"] != "party" {
		t.Errorf("event_id: got %v, want party", received["event_id"])
	}
}

func TestClientCallNoResponseData(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("noop", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	client := NewServiceClient(socketPath)
	result := map[string]any{"untouched": true}
	if err := client.Call(context.Background(), "noop", nil, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result["untouched"] != true {
		t.Errorf("result was modified by an empty response: %v", result)
	}
}

func TestClientCallServiceError(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, fmt.Errorf("event %q is not active", "gone")
	})
	startServer(t, server, socketPath)

	client := NewServiceClient(socketPath)
	err := client.Call(context.Background(), "fail", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if serviceErr.Action != "fail" {
		t.Errorf("Action: got %q, want fail", serviceErr.Action)
	}
	if serviceErr.Message != `event "gone" is not active` {
		t.Errorf("Message: got %q", serviceErr.Message)
	}
	if !IsServiceError(err) {
		t.Error("IsServiceError returned false for a server failure")
	}
}

func TestClientCallUnknownAction(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	startServer(t, server, socketPath)

	client := NewServiceClient(socketPath)
	err := client.Call(context.Background(), "bogus", nil, nil)
	if !IsServiceError(err) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
}

func TestClientCallConnectionRefused(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "absent.sock")

	client := NewServiceClient(socketPath)
	err := client.Call(context.Background(), "status", nil, nil)
	if err == nil {
		t.Fatal("expected error connecting to a missing socket")
	}
	if IsServiceError(err) {
		t.Errorf("connection failure reported as a server error: %v", err)
	}
}

func TestClientConcurrentCalls(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("echo", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Value int `cbor:"value"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]any{"value": request.Value}, nil
	})
	startServer(t, server, socketPath)

	client := NewServiceClient(socketPath)
	const concurrency = 10
	var wg sync.WaitGroup
	for i := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var result struct {
				Value int `cbor:"value"`
			}
			if err := client.Call(context.Background(), "echo", map[string]any{"value": i}, &result); err != nil {
				t.Errorf("call %d: %v", i, err)
				return
			}
			if result.Value != i {
				t.Errorf("call %d: got value %d, want %d", i, result.Value, i)
			}
		}()
	}
	wg.Wait()
}
