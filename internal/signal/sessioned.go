// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package signal

import "github.com/goccy/go-json"

// SessionedKind discriminates the envelope variants handed to the
// connection transport.
type SessionedKind string

const (
	SessionedEvent           SessionedKind = "event"
	SessionedResponse        SessionedKind = "response"
	SessionedError           SessionedKind = "error"
	SessionedSubscriptionAck SessionedKind = "subscription-ack"
	SessionedClosed          SessionedKind = "session-closed"
)

// Sessioned is the outbound envelope toward the connection transport. The
// category tag lets the client demultiplex feeds; extra fields carry
// subscription-selected payload enrichment.
type Sessioned struct {
	Kind     SessionedKind     `json:"kind"`
	Category StreamingCategory `json:"category,omitempty"`
	Signal   Signal            `json:"signal,omitempty"`
	Error    *ErrorSignal      `json:"error,omitempty"`

	// Subscribed distinguishes subscribe from unsubscribe acks.
	Subscribed bool `json:"subscribed,omitempty"`

	// ConnectionID tags subscription acks and close envelopes with the
	// session they belong to.
	ConnectionID string `json:"connection_id,omitempty"`

	// Extra carries enrichment fields selected by the subscription.
	Extra json.RawMessage `json:"extra,omitempty"`
}

// SessionedSignal wraps an outbound event tagged with its category.
func SessionedSignal(sig Signal, category StreamingCategory, extra json.RawMessage) Sessioned {
	return Sessioned{Kind: SessionedEvent, Category: category, Signal: sig, Extra: extra}
}

// SessionedFromResponse wraps a command response.
func SessionedFromResponse(resp *Response) Sessioned {
	return Sessioned{Kind: SessionedResponse, Signal: resp}
}

// SessionedFromError wraps a domain error.
func SessionedFromError(err *ErrorSignal) Sessioned {
	return Sessioned{Kind: SessionedError, Error: err}
}

// SessionedAck builds the subscription handshake acknowledgement for a
// category.
func SessionedAck(category StreamingCategory, subscribed bool, connectionID string) Sessioned {
	return Sessioned{
		Kind:         SessionedSubscriptionAck,
		Category:     category,
		Subscribed:   subscribed,
		ConnectionID: connectionID,
	}
}

// SessionedClose builds the terminal close envelope carrying the reason.
func SessionedClose(err *ErrorSignal, connectionID string) Sessioned {
	return Sessioned{Kind: SessionedClosed, Error: err, ConnectionID: connectionID}
}
