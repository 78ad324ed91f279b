// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration for the coordinator's
// local control socket.
//
// Two formats meet at the coordinator. Messages on the broker
// (invitations, responses, summaries) are flat JSON documents so that
// hosts and guests written in any language can produce them; see
// lib/rsvp. The operator control socket (lib/service) speaks CBOR,
// encoded deterministically (RFC 8949 §4.2) so identical requests
// produce identical bytes.
//
// Types that only cross the control socket use `cbor` struct tags.
// Types that are also rendered as JSON (the event listings shared with
// the admin HTTP endpoint) use `json` tags; fxamacker/cbor falls back
// to them when no `cbor` tag is present.
package codec
