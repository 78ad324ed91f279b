// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern so tests waiting on broker deliveries or
// background summarization never hang. They are the only place in the
// test suite that uses real wall-clock timeouts; everything else runs
// on lib/clock.Fake.
//
// [SocketDir] creates a short temporary directory for Unix sockets,
// since t.TempDir() paths can exceed the 108-byte sun_path limit.
//
// All helpers call t.Fatalf on failure.
package testutil
