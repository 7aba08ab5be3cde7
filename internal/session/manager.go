// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/pubsub"
	"github.com/meridianhq/streamgate/internal/signal"
)

// ErrNotRunning is returned for connects against a stopped manager.
var ErrNotRunning = errors.New("session: manager is not running")

// ErrDuplicateConnection is returned when a connection correlation id is
// already bound to a live session.
var ErrDuplicateConnection = errors.New("session: connection id already in use")

// Manager owns the live session actors and runs as a supervised service.
// It fans business-layer signals into the owning session and broadcasts
// streaming signals to all sessions, whose subscription filters decide
// delivery.
type Manager struct {
	dispatcher Dispatcher
	registry   pubsub.Registry
	opts       Options

	mu       sync.RWMutex
	sessions map[string]*Actor
	runCtx   context.Context
	running  bool
}

// NewManager creates a manager. Dispatch of inbound signals goes through
// dispatcher; subscription state is reconciled against registry.
func NewManager(dispatcher Dispatcher, registry pubsub.Registry, opts Options) *Manager {
	return &Manager{
		dispatcher: dispatcher,
		registry:   registry,
		opts:       opts,
		sessions:   make(map[string]*Actor),
	}
}

// Serve runs the manager until the context is cancelled, then closes every
// live session. Designed for suture supervision.
func (m *Manager) Serve(ctx context.Context) error {
	m.mu.Lock()
	m.runCtx = ctx
	m.running = true
	m.mu.Unlock()

	logging.Info().Msg("session manager started")
	<-ctx.Done()

	m.mu.Lock()
	m.running = false
	actors := make([]*Actor, 0, len(m.sessions))
	for _, a := range m.sessions {
		actors = append(actors, a)
	}
	m.mu.Unlock()

	// Actor run loops share the serve context and are already winding
	// down; stop() is for sessions created with a detached context.
	for _, a := range actors {
		a.stop()
	}
	logging.Info().Int("sessions", len(actors)).Msg("session manager stopped")
	return ctx.Err()
}

// String names the service in supervisor logs.
func (m *Manager) String() string { return "session-manager" }

// Connect creates and starts the session actor for a new connection.
func (m *Manager) Connect(connect Connect) (*Actor, error) {
	if connect.ConnectionID == "" {
		return nil, fmt.Errorf("session: empty connection id")
	}
	if connect.Publisher == nil {
		return nil, fmt.Errorf("session: nil publisher")
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil, ErrNotRunning
	}
	if _, exists := m.sessions[connect.ConnectionID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateConnection, connect.ConnectionID)
	}

	a := newActor(connect, m.dispatcher, m.registry, m.opts, m.release)
	m.sessions[connect.ConnectionID] = a
	ctx := m.runCtx
	m.mu.Unlock()

	a.start(ctx)
	return a, nil
}

// Session returns the live actor for a connection id.
func (m *Manager) Session(connectionID string) (*Actor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.sessions[connectionID]
	return a, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Route fans a business-layer signal back into sessions. Responses,
// acknowledgements and errors go to the session named by the origin
// header; events and live signals are broadcast, each session's
// subscriptions deciding delivery.
func (m *Manager) Route(sig signal.Signal) {
	switch sig.(type) {
	case *signal.Response, *signal.Acknowledgement, *signal.ErrorSignal:
		origin := sig.Hdr().Origin
		if a, ok := m.Session(origin); ok {
			a.Deliver(sig)
			return
		}
		logging.Debug().
			Str("origin", origin).
			Str("correlation_id", sig.Hdr().CorrelationID).
			Msg("no session for addressed signal, dropping")
	default:
		m.Broadcast(sig)
	}
}

// Broadcast offers a streaming signal to every live session.
func (m *Manager) Broadcast(sig signal.Signal) {
	m.mu.RLock()
	actors := make([]*Actor, 0, len(m.sessions))
	for _, a := range m.sessions {
		actors = append(actors, a)
	}
	m.mu.RUnlock()

	for _, a := range actors {
		a.Deliver(sig)
	}
}

// release drops a stopped session from the registry. Called by the actor
// after its run loop exits.
func (m *Manager) release(connectionID string) {
	m.mu.Lock()
	delete(m.sessions, connectionID)
	m.mu.Unlock()
}
