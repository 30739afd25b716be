package common

import (
	"encoding/json"
)

// --------------------------------------------------------------------------
// Envelope Structure
// --------------------------------------------------------------------------

// Kind discriminates request envelopes from response envelopes
type Kind string

const (
	KindRequest  Kind = "__req"
	KindResponse Kind = "__res"
)

// String returns a human readable name of the kind
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Valid reports whether the kind is one of the protocol kinds
func (k Kind) Valid() bool {
	return k == KindRequest || k == KindResponse
}

// Marker is the protocol discriminator. A frame without a marker is not
// part of this protocol and is ignored by the engine.
type Marker struct {
	Type Kind `json:"type"`
}

// Envelope is the unit exchanged over the wire for both requests and responses.
//
// The JSON rendering is:
//
//	{"__async":{"type":"__req"},"id":"…","type":"echo","content":{…}}
//	{"__async":{"type":"__res"},"id":"…","type":"echo","content":{…},"err":false}
//
// Content always holds JSON encoded application data, independent of the
// serializer used for the envelope itself. On a failed response Content
// holds an ErrorDescriptor.
type Envelope struct {
	Async   *Marker         `json:"__async,omitempty"`
	ID      string          `json:"id"`                // Correlation identifier
	Type    string          `json:"type"`              // Application request type
	Content json.RawMessage `json:"content,omitempty"` // Application payload
	Err     bool            `json:"err,omitempty"`     // Response only: true if Content is an ErrorDescriptor
}

// IsProtocol reports whether the envelope carries a valid protocol marker
func (e *Envelope) IsProtocol() bool {
	return e.Async != nil && e.Async.Type.Valid()
}

// Kind returns the kind of the envelope or an empty kind if no marker is set
func (e *Envelope) Kind() Kind {
	if e.Async == nil {
		return ""
	}
	return e.Async.Type
}

// --------------------------------------------------------------------------
// Envelope Factory Functions
// --------------------------------------------------------------------------

// NewRequestEnvelope creates a new request envelope
func NewRequestEnvelope(id, reqType string, content json.RawMessage) Envelope {
	return Envelope{
		Async:   &Marker{Type: KindRequest},
		ID:      id,
		Type:    reqType,
		Content: content,
	}
}

// NewResponseEnvelope creates a new successful response envelope
func NewResponseEnvelope(id, reqType string, content json.RawMessage) Envelope {
	return Envelope{
		Async:   &Marker{Type: KindResponse},
		ID:      id,
		Type:    reqType,
		Content: content,
	}
}

// NewErrorEnvelope creates a new failed response envelope carrying the
// serialized error descriptor
func NewErrorEnvelope(id, reqType string, desc ErrorDescriptor) (Envelope, error) {
	content, err := json.Marshal(desc)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Async:   &Marker{Type: KindResponse},
		ID:      id,
		Type:    reqType,
		Content: content,
		Err:     true,
	}, nil
}

// EncodePayload encodes an application payload for the Content field.
// Raw JSON is passed through unchanged.
func EncodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		if p == nil {
			return json.RawMessage("null"), nil
		}
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
