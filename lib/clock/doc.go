// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the scheduling facility behind collection-window
// deadlines and publish retry backoff.
//
// Components take a Clock instead of calling time.Now, time.After,
// time.AfterFunc, or time.Sleep directly. Production wiring passes
// Real(); tests pass Fake() and move time with Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	engine := coordinator.New(coordinator.Config{Clock: c, ...})
//	engine.SubmitInvitation(ctx, invitation)
//	c.WaitForTimers(1)          // the event's deadline is armed
//	c.Advance(30 * time.Second) // the collection window closes
//
// Timers returned by AfterFunc are cancellable with Stop. Stop racing
// a callback that has already started is tolerated: Stop reports
// false and the callback runs to completion, so callers must make the
// callback itself idempotent.
package clock
