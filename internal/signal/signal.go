// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package signal

import (
	"strings"

	"github.com/goccy/go-json"
)

// Channel selects whether a signal addresses the persisted ("twin") state of
// an entity or its live counterpart.
type Channel string

const (
	// ChannelTwin addresses the persisted state. The default when a signal
	// carries no channel marker.
	ChannelTwin Channel = "twin"

	// ChannelLive addresses the live counterpart of the entity.
	ChannelLive Channel = "live"
)

// CommandKind classifies inbound commands for ack-request defaulting and
// category routing.
type CommandKind string

const (
	// KindModify is a command that modifies persisted entity state.
	KindModify CommandKind = "modify"

	// KindQuery is a read-only command.
	KindQuery CommandKind = "query"

	// KindMessage is a direct message command addressed to an entity.
	KindMessage CommandKind = "message"
)

// Headers carry the metadata shared by all signal variants.
type Headers struct {
	// CorrelationID links a signal to its responses and acknowledgements.
	CorrelationID string `json:"correlation_id"`

	// Origin is the connection correlation id of the session that issued
	// the signal. Used for self-echo suppression on the outbound path.
	Origin string `json:"origin,omitempty"`

	// Channel is the twin/live marker. Empty means twin.
	Channel Channel `json:"channel,omitempty"`

	// ReadGranted lists the authorization subjects granted to read the
	// signal. Outbound delivery requires a non-empty intersection with the
	// session's subjects.
	ReadGranted []string `json:"read_granted,omitempty"`

	// ReadRevoked lists the authorization subjects explicitly revoked.
	// A session matching any revoked subject never receives the signal.
	ReadRevoked []string `json:"read_revoked,omitempty"`

	// RequestedAcks names the receivers that must acknowledge the signal.
	RequestedAcks []AckRequest `json:"requested_acks,omitempty"`

	// ResponseRequired indicates the sender expects a response.
	ResponseRequired bool `json:"response_required,omitempty"`

	// Forwarded marks a signal that already carries ack-forwarding
	// metadata, so the outbound pipeline injects it at most once.
	Forwarded bool `json:"forwarded,omitempty"`
}

// EffectiveChannel returns the channel marker, defaulting to twin.
func (h Headers) EffectiveChannel() Channel {
	if h.Channel == ChannelLive {
		return ChannelLive
	}
	return ChannelTwin
}

// IsLive reports whether the signal addresses the live channel.
func (h Headers) IsLive() bool {
	return h.EffectiveChannel() == ChannelLive
}

// Signal is the closed union of domain signals. The concrete types are
// Command, Response, Event, Acknowledgement and ErrorSignal.
type Signal interface {
	// Hdr returns the signal headers.
	Hdr() Headers

	// WithHdr returns a copy of the signal with replaced headers.
	WithHdr(Headers) Signal
}

// Command is an inbound command or query addressed to the business layer.
type Command struct {
	Headers  Headers         `json:"headers"`
	Type     string          `json:"type"`
	Kind     CommandKind     `json:"kind"`
	EntityID string          `json:"entity_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Response is the business layer's answer to a command.
type Response struct {
	Headers  Headers         `json:"headers"`
	Type     string          `json:"type"`
	Status   int             `json:"status"`
	EntityID string          `json:"entity_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Event is a domain event emitted by an entity.
type Event struct {
	Headers  Headers         `json:"headers"`
	Type     string          `json:"type"`
	EntityID string          `json:"entity_id"`
	Revision int64           `json:"revision,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Acknowledgement is a single receiver's confirmation for one requested
// ack label.
type Acknowledgement struct {
	Headers  Headers         `json:"headers"`
	Label    AckRequest      `json:"label"`
	Status   int             `json:"status"`
	EntityID string          `json:"entity_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Successful reports whether the acknowledgement carries a success status.
func (a *Acknowledgement) Successful() bool {
	return a.Status >= 200 && a.Status < 300
}

// ErrorSignal is a domain-level error delivered to the connection or
// aggregated into ack results. It is a signal, not a Go error.
type ErrorSignal struct {
	Headers Headers `json:"headers"`
	Code    string  `json:"code"`
	Status  int     `json:"status"`
	Message string  `json:"message"`
}

func (c *Command) Hdr() Headers         { return c.Headers }
func (r *Response) Hdr() Headers        { return r.Headers }
func (e *Event) Hdr() Headers           { return e.Headers }
func (a *Acknowledgement) Hdr() Headers { return a.Headers }
func (e *ErrorSignal) Hdr() Headers     { return e.Headers }

func (c *Command) WithHdr(h Headers) Signal {
	cp := *c
	cp.Headers = h
	return &cp
}

func (r *Response) WithHdr(h Headers) Signal {
	cp := *r
	cp.Headers = h
	return &cp
}

func (e *Event) WithHdr(h Headers) Signal {
	cp := *e
	cp.Headers = h
	return &cp
}

func (a *Acknowledgement) WithHdr(h Headers) Signal {
	cp := *a
	cp.Headers = h
	return &cp
}

func (e *ErrorSignal) WithHdr(h Headers) Signal {
	cp := *e
	cp.Headers = h
	return &cp
}

// NamespaceOf extracts the namespace segment from an entity id of the form
// "namespace:name". Returns empty string when the id carries no namespace.
func NamespaceOf(entityID string) string {
	if i := strings.Index(entityID, ":"); i > 0 {
		return entityID[:i]
	}
	return ""
}
