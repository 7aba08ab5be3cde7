// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package session

import (
	"time"

	"github.com/meridianhq/streamgate/internal/signal"
)

// Publisher delivers sessioned envelopes to the connection transport.
// Implementations must be safe for concurrent use: acknowledgement
// aggregates are published from collector goroutines.
type Publisher interface {
	Publish(env signal.Sessioned)
}

// Dispatcher hands normalized inbound signals to the business layer. It
// must not block; responses and events come back asynchronously through
// the manager or the cluster registry.
type Dispatcher interface {
	Dispatch(sig signal.Signal)
}

// Incoming wraps a signal received from the connection transport. The
// inbound pipeline strips this envelope as its first step.
type Incoming struct {
	Signal signal.Signal
}

// Connect describes a new streaming session.
type Connect struct {
	// ConnectionID is the connection correlation id identifying the session.
	ConnectionID string

	// Type labels the transport for logging, e.g. "ws".
	Type string

	// AuthContext is the authorization context extracted by the security
	// layer.
	AuthContext signal.AuthorizationContext

	// SchemaVersion is the payload schema version the client declared.
	SchemaVersion int

	// Expiry arms the session expiry timer when non-zero.
	Expiry time.Time

	// Publisher receives the session's outbound envelopes.
	Publisher Publisher
}

// message is the closed union of mailbox messages. Every variant is
// handled by a single exhaustive switch in the actor loop.
type message interface{ isMessage() }

type incomingMsg struct{ sig signal.Signal }

type outgoingMsg struct{ sig signal.Signal }

type startStreamingMsg struct {
	category      signal.StreamingCategory
	correlationID string
	namespaces    []string
	filter        string
	extraFields   []string
}

type stopStreamingMsg struct{ category signal.StreamingCategory }

// subscriptionAckedMsg is the self-directed completion of a cluster
// handshake, always delivered through the mailbox so session state stays
// single-writer.
type subscriptionAckedMsg struct {
	category   signal.StreamingCategory
	subscribed bool
}

type refreshSessionMsg struct {
	auth   signal.AuthorizationContext
	expiry time.Time
}

type invalidateSessionMsg struct{}

type connectionClosedMsg struct{}

type expireMsg struct{}

type stopMsg struct{}

func (incomingMsg) isMessage()          {}
func (outgoingMsg) isMessage()          {}
func (startStreamingMsg) isMessage()    {}
func (stopStreamingMsg) isMessage()     {}
func (subscriptionAckedMsg) isMessage() {}
func (refreshSessionMsg) isMessage()    {}
func (invalidateSessionMsg) isMessage() {}
func (connectionClosedMsg) isMessage()  {}
func (expireMsg) isMessage()            {}
func (stopMsg) isMessage()              {}
