// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"context"
	"errors"

	"github.com/meridianhq/streamgate/internal/signal"
)

// ErrUnknownSubscriber is returned for operations on a subscriber that
// never subscribed or was already removed.
var ErrUnknownSubscriber = errors.New("pubsub: unknown subscriber")

// Handler receives signals delivered by the cluster for one subscriber.
// Implementations must not block; sessions enqueue into their own mailbox.
type Handler func(sig signal.Signal)

// Registry is the cluster pub/sub collaborator. All methods describe the
// desired subscription state; completion of the call is the cluster's
// acknowledgement. Callers run them off their processing goroutine and
// feed the completion back into their own mailbox.
type Registry interface {
	// Subscribe reconciles the subscriber's routing to cover the given
	// categories for the given authorization subjects. The handler is
	// installed on first use and kept afterwards.
	Subscribe(ctx context.Context, subscriberID string, categories []signal.StreamingCategory,
		subjects []string, deliver Handler) error

	// UpdateLiveSubscriptions reconciles only the live portion (live
	// events, messages, live commands) of the subscriber's routing,
	// leaving any persisted-event subscription untouched.
	UpdateLiveSubscriptions(ctx context.Context, subscriberID string,
		categories []signal.StreamingCategory, subjects []string) error

	// RemoveTwinSubscriber drops the subscriber's persisted-event routing.
	RemoveTwinSubscriber(ctx context.Context, subscriberID string, subjects []string) error

	// RemoveSubscriber drops all routing for the subscriber. Fire and
	// forget: no completion is awaited.
	RemoveSubscriber(subscriberID string)
}

// liveCategories filters the given categories down to the live portion.
func liveCategories(categories []signal.StreamingCategory) []signal.StreamingCategory {
	var live []signal.StreamingCategory
	for _, c := range categories {
		if c != signal.CategoryEvents {
			live = append(live, c)
		}
	}
	return live
}
