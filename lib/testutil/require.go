// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// Fataler is the part of testing.TB the channel helpers need.
type Fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed first.
//
//	summary := testutil.RequireReceive(t, summaries, 5*time.Second, "waiting for summary of %s", eventID)
func RequireReceive[T any](t Fataler, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	expiry := time.NewTimer(timeout)
	defer expiry.Stop()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed before a value arrived", describe(msgAndArgs))
		}
		return v
	case <-expiry.C:
		t.Fatalf("%s: nothing received after %v", describe(msgAndArgs), timeout)
	}
	panic("unreachable")
}

// RequireSend hands v to ch, failing the test if no receiver takes it
// within timeout.
//
//	testutil.RequireSend(t, gate, struct{}{}, 5*time.Second, "releasing the guest directory")
func RequireSend[T any](t Fataler, ch chan<- T, v T, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	expiry := time.NewTimer(timeout)
	defer expiry.Stop()
	select {
	case ch <- v:
	case <-expiry.C:
		t.Fatalf("%s: send not taken after %v", describe(msgAndArgs), timeout)
	}
}

// RequireClosed waits for done to be closed or to yield a value.
//
//	testutil.RequireClosed(t, coordinatorExited, 5*time.Second, "coordinator shutdown")
func RequireClosed(t Fataler, done <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	expiry := time.NewTimer(timeout)
	defer expiry.Stop()
	select {
	case <-done:
	case <-expiry.C:
		t.Fatalf("%s: still open after %v", describe(msgAndArgs), timeout)
	}
}

// RequireNoReceive fails the test if ch yields a value within quiet,
// for example a second summary for an event that already has one. A
// closed channel counts as silence.
func RequireNoReceive[T any](t Fataler, ch <-chan T, quiet time.Duration, msgAndArgs ...any) {
	t.Helper()
	expiry := time.NewTimer(quiet)
	defer expiry.Stop()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("%s: received %+v", describe(msgAndArgs), v)
		}
	case <-expiry.C:
	}
}

// describe renders the optional trailing message: nothing, a plain
// string, or a format string and its operands.
func describe(msgAndArgs []any) string {
	switch {
	case len(msgAndArgs) == 0:
		return "channel wait"
	case len(msgAndArgs) == 1:
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
