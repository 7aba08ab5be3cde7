// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package acks

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/metrics"
	"github.com/meridianhq/streamgate/internal/signal"
)

// ErrDuplicateCorrelationID is returned when a collector for the same
// correlation id is still live.
var ErrDuplicateCorrelationID = errors.New("acks: correlation id already has a live collector")

// ErrNoExpectedLabels is returned when a spawn request carries no labels.
// Commands without ack requests never spawn a collector.
var ErrNoExpectedLabels = errors.New("acks: at least one expected label required")

// Router owns the correlation id to collector mapping for one session.
// Collectors remove themselves on completion; lookups after that fall back
// to the caller's alternative delivery path.
type Router struct {
	mu         sync.Mutex
	collectors map[string]*Collector
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{collectors: make(map[string]*Collector)}
}

// Spawn creates and starts a collector for the given correlation id.
func (r *Router) Spawn(correlationID string, expected []signal.AckRequest,
	timeout time.Duration, report ReportFunc) (*Collector, error) {

	if len(expected) == 0 {
		return nil, ErrNoExpectedLabels
	}
	if correlationID == "" {
		return nil, fmt.Errorf("acks: empty correlation id")
	}

	// Labels form a set: a repeated label counts once toward completion.
	expected = dedupeLabels(expected)

	c := newCollector(r, correlationID, expected, report)

	r.mu.Lock()
	if _, exists := r.collectors[correlationID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCorrelationID, correlationID)
	}
	r.collectors[correlationID] = c
	r.mu.Unlock()

	metrics.CollectorsActive.Inc()
	go c.run(timeout)

	logging.Debug().
		Str("correlation_id", correlationID).
		Int("expected_labels", len(expected)).
		Dur("timeout", timeout).
		Msg("ack collector spawned")
	return c, nil
}

// dedupeLabels drops repeated labels, keeping first-occurrence order.
func dedupeLabels(labels []signal.AckRequest) []signal.AckRequest {
	seen := make(map[signal.AckRequest]struct{}, len(labels))
	out := make([]signal.AckRequest, 0, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// Find returns the live collector for a correlation id, if any.
func (r *Router) Find(correlationID string) (*Collector, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.collectors[correlationID]
	return c, ok
}

// Forward delivers a signal to the collector registered for the given
// correlation id. Returns false when no live collector exists or the
// collector completed concurrently; the caller then applies its fallback.
func (r *Router) Forward(correlationID string, sig signal.Signal) bool {
	c, ok := r.Find(correlationID)
	if !ok {
		return false
	}
	if !c.deliver(sig) {
		logging.Debug().
			Str("correlation_id", correlationID).
			Msg("dropping delivery for completed ack collector")
		return false
	}
	return true
}

// Len returns the number of live collectors.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.collectors)
}

// remove unregisters a collector unless a newer one reused the id.
func (r *Router) remove(correlationID string, c *Collector) {
	r.mu.Lock()
	if current, ok := r.collectors[correlationID]; ok && current == c {
		delete(r.collectors, correlationID)
		metrics.CollectorsActive.Dec()
	}
	r.mu.Unlock()
}
