// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package session

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/meridianhq/streamgate/internal/criteria"
	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/metrics"
	"github.com/meridianhq/streamgate/internal/pubsub"
	"github.com/meridianhq/streamgate/internal/signal"
)

// Subscription is one streaming category's filter state. It is replaced
// wholesale on each subscribe call for the category.
type Subscription struct {
	// Namespaces is the allow-list; empty admits every namespace.
	Namespaces []string

	// Criteria is the optional filter predicate tree.
	Criteria criteria.Criteria

	// ExtraFields selects payload paths to enrich delivered envelopes.
	ExtraFields []string
}

// admitsNamespace reports whether the event namespace passes the allow-list.
func (s *Subscription) admitsNamespace(namespace string) bool {
	if len(s.Namespaces) == 0 {
		return true
	}
	for _, ns := range s.Namespaces {
		if ns == namespace {
			return true
		}
	}
	return false
}

// matches reports whether the criteria tree admits the event.
func (s *Subscription) matches(ev *signal.Event) bool {
	return s.Criteria == nil || s.Criteria.Matches(ev)
}

// extra assembles the enrichment object for the subscription's selectors.
// Returns nil when no selector resolves.
func (s *Subscription) extra(ev *signal.Event) json.RawMessage {
	if len(s.ExtraFields) == 0 {
		return nil
	}
	fields := make(map[string]any)
	for _, selector := range s.ExtraFields {
		if value, ok := criteria.ResolvePath(ev, selector); ok {
			fields[selector] = value
		}
	}
	if len(fields) == 0 {
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to marshal extra fields")
		return nil
	}
	return raw
}

// coordinator tracks the subscribe/unsubscribe handshakes of one session
// against the cluster registry. Handshake completions are posted back into
// the owning actor's mailbox, never sent to the connection directly.
type coordinator struct {
	connectionID string
	registry     pubsub.Registry

	// outstanding holds the categories whose subscribe acknowledgement is
	// still awaited. Always a subset of the active categories.
	outstanding map[signal.StreamingCategory]bool
}

func newCoordinator(connectionID string, registry pubsub.Registry) *coordinator {
	return &coordinator{
		connectionID: connectionID,
		registry:     registry,
		outstanding:  make(map[signal.StreamingCategory]bool),
	}
}

// requestSubscribe marks the category outstanding and reconciles the
// cluster routing for all active categories. The completion is posted via
// post, off the caller's goroutine.
func (c *coordinator) requestSubscribe(ctx context.Context, category signal.StreamingCategory,
	active []signal.StreamingCategory, subjects []string, deliver pubsub.Handler,
	post func(message) bool) {

	c.outstanding[category] = true
	metrics.RecordSubscriptionOp("subscribe")

	go func() {
		if err := c.registry.Subscribe(ctx, c.connectionID, active, subjects, deliver); err != nil {
			// No retry here: the missing acknowledgement is the client's
			// failure surface.
			logging.Warn().
				Err(err).
				Str("session_id", c.connectionID).
				Str("category", string(category)).
				Msg("cluster subscribe failed, acknowledgement withheld")
			return
		}
		post(subscriptionAckedMsg{category: category, subscribed: true})
	}()
}

// requestUnsubscribe reconciles the cluster routing after a category was
// removed. The events category removes the persisted-state subscriber;
// all others update the live routing.
func (c *coordinator) requestUnsubscribe(ctx context.Context, category signal.StreamingCategory,
	active []signal.StreamingCategory, subjects []string, post func(message) bool) {

	metrics.RecordSubscriptionOp("unsubscribe")

	go func() {
		var err error
		if category == signal.CategoryEvents {
			err = c.registry.RemoveTwinSubscriber(ctx, c.connectionID, subjects)
		} else {
			err = c.registry.UpdateLiveSubscriptions(ctx, c.connectionID, active, subjects)
		}
		if err != nil {
			logging.Warn().
				Err(err).
				Str("session_id", c.connectionID).
				Str("category", string(category)).
				Msg("cluster unsubscribe failed, acknowledgement withheld")
			return
		}
		post(subscriptionAckedMsg{category: category, subscribed: false})
	}()
}

// acknowledgeSubscribe resolves an outstanding subscribe handshake.
// Duplicate confirmations for an already-acknowledged category are
// tolerated as no-ops.
func (c *coordinator) acknowledgeSubscribe(category signal.StreamingCategory) bool {
	if !c.outstanding[category] {
		logging.Debug().
			Str("session_id", c.connectionID).
			Str("category", string(category)).
			Msg("subscription already acknowledged, ignoring duplicate confirmation")
		return false
	}
	delete(c.outstanding, category)
	return true
}
