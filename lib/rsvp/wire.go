// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rsvp

import (
	"encoding/json"
	"fmt"
)

// Encode serializes m as a flat JSON object tagged with its Kind.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case Invitation:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Invitation
		}{KindInvitation, v})
	case Response:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Response
		}{KindResponse, v})
	case Summary:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Summary
		}{KindSummary, v})
	default:
		return nil, fmt.Errorf("encoding message: unsupported type %T", m)
	}
}

// Decode parses payload into one of the Message variants and validates
// it. Every failure is a *MalformedMessageError.
func Decode(payload []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, &MalformedMessageError{Reason: fmt.Sprintf("payload is not a JSON object: %v", err)}
	}

	kind, err := detectKind(fields)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindInvitation:
		return decodeInvitation(payload)
	case KindResponse:
		return decodeResponse(payload)
	default:
		return decodeSummary(payload)
	}
}

// DecodeInvitation decodes payload and requires it to be an Invitation.
func DecodeInvitation(payload []byte) (Invitation, error) {
	message, err := Decode(payload)
	if err != nil {
		return Invitation{}, err
	}
	invitation, ok := message.(Invitation)
	if !ok {
		return Invitation{}, unexpectedKind(KindInvitation, message.Kind())
	}
	return invitation, nil
}

// DecodeResponse decodes payload and requires it to be a Response.
func DecodeResponse(payload []byte) (Response, error) {
	message, err := Decode(payload)
	if err != nil {
		return Response{}, err
	}
	response, ok := message.(Response)
	if !ok {
		return Response{}, unexpectedKind(KindResponse, message.Kind())
	}
	return response, nil
}

// DecodeSummary decodes payload and requires it to be a Summary.
func DecodeSummary(payload []byte) (Summary, error) {
	message, err := Decode(payload)
	if err != nil {
		return Summary{}, err
	}
	summary, ok := message.(Summary)
	if !ok {
		return Summary{}, unexpectedKind(KindSummary, message.Kind())
	}
	return summary, nil
}

// detectKind reads the "type" discriminator, falling back to the
// untagged shapes: "event_name" marks an Invitation, "guest_id" a
// Response.
func detectKind(fields map[string]json.RawMessage) (Kind, error) {
	if raw, present := fields["type"]; present {
		var tag string
		if err := json.Unmarshal(raw, &tag); err != nil {
			return "", &MalformedMessageError{Field: "type", Reason: "must be a string"}
		}
		switch Kind(tag) {
		case KindInvitation, KindResponse, KindSummary:
			return Kind(tag), nil
		default:
			return "", &MalformedMessageError{Field: "type", Reason: fmt.Sprintf("unknown message type %q", tag)}
		}
	}
	if _, present := fields["event_name"]; present {
		return KindInvitation, nil
	}
	if _, present := fields["guest_id"]; present {
		return KindResponse, nil
	}
	return "", &MalformedMessageError{Reason: "payload is neither an invitation (event_name) nor a response (guest_id)"}
}

// legacyFields are spellings used by producers that predate the
// current field names.
type legacyFields struct {
	HostName string `json:"host_name"`
	Response string `json:"response"`
}

func decodeInvitation(payload []byte) (Invitation, error) {
	var invitation Invitation
	if err := json.Unmarshal(payload, &invitation); err != nil {
		return Invitation{}, &MalformedMessageError{Reason: fmt.Sprintf("decoding invitation: %v", err)}
	}
	if invitation.HostID == "" {
		var legacy legacyFields
		if json.Unmarshal(payload, &legacy) == nil {
			invitation.HostID = legacy.HostName
		}
	}
	if err := invitation.Validate(); err != nil {
		return Invitation{}, err
	}
	return invitation, nil
}

func decodeResponse(payload []byte) (Response, error) {
	var response Response
	if err := json.Unmarshal(payload, &response); err != nil {
		return Response{}, &MalformedMessageError{Reason: fmt.Sprintf("decoding response: %v", err)}
	}
	if response.Decision == "" {
		var legacy legacyFields
		if json.Unmarshal(payload, &legacy) == nil {
			response.Decision = Decision(legacy.Response)
		}
	}
	if err := response.Validate(); err != nil {
		return Response{}, err
	}
	// Validate has already accepted the decision.
	response.Decision, _ = ParseDecision(string(response.Decision))
	return response, nil
}

func decodeSummary(payload []byte) (Summary, error) {
	var summary Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return Summary{}, &MalformedMessageError{Reason: fmt.Sprintf("decoding summary: %v", err)}
	}
	if err := summary.Validate(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func unexpectedKind(want, got Kind) error {
	return &MalformedMessageError{Field: "type", Reason: fmt.Sprintf("expected %s, got %s", want, got)}
}
