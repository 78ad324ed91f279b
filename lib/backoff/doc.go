// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backoff retries an operation with bounded exponential
// backoff on an injected [clock.Clock].
//
// The coordinator uses it for summary delivery and the broker adapters
// use it for the initial connection. Waits go through the clock so
// tests drive retries with a fake clock instead of sleeping.
package backoff
