// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package observe exposes the coordinator's runtime state to
// operators: Prometheus metrics and a small HTTP admin surface.
//
// [Metrics] owns every collector the coordinator updates. Collectors
// are registered on a caller-supplied [prometheus.Registerer] so tests
// and embedded coordinators each get an isolated registry. All
// recording methods are safe on a nil *Metrics, which lets components
// run without instrumentation.
//
// [NewRouter] builds the admin handler:
//
//	GET /healthz       broker connectivity (200 or 503)
//	GET /metrics       Prometheus exposition
//	GET /events        every in-flight event, ordered by id
//	GET /events/{id}   one in-flight event, or 404
package observe
