// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements the coordinator's local control socket.
//
// The protocol is one CBOR request and one CBOR response per Unix
// socket connection. A request is a map with an "action" key plus
// action-specific fields. The response is always a [Response]:
//
//	{ok: true, data: <cbor>}
//	{ok: false, error: "..."}
//
// [SocketServer] dispatches by action name and drains in-flight
// requests on shutdown. [ServiceClient] is the matching client used by
// the rsvp-host CLI. [RegisterControl] installs the read-only status
// and event listing actions over the event registry.
//
// The socket is created with mode 0660. Access control is the
// filesystem's; there is no caller authentication.
package service
