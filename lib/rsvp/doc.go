// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rsvp defines the three messages exchanged over the broker
// (Invitation, Response, Summary) and their wire encoding.
//
// Every message is a flat JSON object. [Encode] adds a "type"
// discriminator ("invitation", "response", "summary") and [Decode]
// dispatches on it, returning one of the closed set of [Message]
// variants. Producers that predate the discriminator are still
// accepted: an untagged object carrying "event_name" is an
// Invitation, one carrying "guest_id" is a Response. Anything else is
// a [MalformedMessageError], which the coordinator dead-letters.
//
// Messages are values. An Invitation is immutable once created; a
// Response's ReceivedAt is assigned by the coordinator on intake, never
// trusted from the guest; a Summary is compiled once and handed to the
// host.
//
// [Topics] derives the broker topic names from a configured prefix:
// one shared intake topic, one topic per guest for invitations, and
// one topic per host for summaries.
package rsvp
