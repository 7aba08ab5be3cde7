// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/signal"
)

// SubjectPrefix roots every cluster subject used by the gateway.
const SubjectPrefix = "streamgate"

// NATSConfig holds the broker connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns connection defaults matching the gateway's
// deployment baseline.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "streamgate",
		MaxReconnects: 10,
		ReconnectWait: time.Second,
	}
}

type natsSubscriber struct {
	deliver       Handler
	subscriptions map[string]*nats.Subscription // keyed by subject
	categories    map[signal.StreamingCategory]bool
	subjects      []string
}

// NATSRegistry implements Registry over core NATS subject subscriptions.
// Each (category, authorization subject) pair maps to one NATS subject;
// completing a subscribe call is the cluster acknowledgement.
type NATSRegistry struct {
	nc *nats.Conn

	mu          sync.Mutex
	subscribers map[string]*natsSubscriber
}

// NewNATSRegistry connects to the broker and returns the registry.
func NewNATSRegistry(cfg NATSConfig) (*NATSRegistry, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connect to NATS at %s: %w", cfg.URL, err)
	}
	logging.Info().Str("url", cfg.URL).Msg("connected to NATS cluster")
	return &NATSRegistry{nc: nc, subscribers: make(map[string]*natsSubscriber)}, nil
}

// Healthy reports whether the broker connection is currently usable.
func (r *NATSRegistry) Healthy() bool {
	return r.nc.IsConnected()
}

// SubscriberCount returns the number of registered subscribers.
func (r *NATSRegistry) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}

// Subject builds the cluster subject for a category and authorization
// subject. Dots in subject ids would split NATS tokens, so they are
// folded to hyphens.
func Subject(category signal.StreamingCategory, authSubject string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, category, sanitizeToken(authSubject))
}

func sanitizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ':
			return '-'
		}
		return r
	}, s)
}

// Subscribe implements Registry.
func (r *NATSRegistry) Subscribe(ctx context.Context, subscriberID string,
	categories []signal.StreamingCategory, subjects []string, deliver Handler) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok {
		sub = &natsSubscriber{
			subscriptions: make(map[string]*nats.Subscription),
			categories:    make(map[signal.StreamingCategory]bool),
		}
		r.subscribers[subscriberID] = sub
	}
	if deliver != nil {
		sub.deliver = deliver
	}
	sub.subjects = subjects
	sub.categories = make(map[signal.StreamingCategory]bool, len(categories))
	for _, c := range categories {
		sub.categories[c] = true
	}
	return r.reconcileLocked(subscriberID, sub)
}

// UpdateLiveSubscriptions implements Registry.
func (r *NATSRegistry) UpdateLiveSubscriptions(ctx context.Context, subscriberID string,
	categories []signal.StreamingCategory, subjects []string) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok {
		return ErrUnknownSubscriber
	}
	sub.subjects = subjects
	hadEvents := sub.categories[signal.CategoryEvents]
	sub.categories = make(map[signal.StreamingCategory]bool)
	if hadEvents {
		sub.categories[signal.CategoryEvents] = true
	}
	for _, c := range liveCategories(categories) {
		sub.categories[c] = true
	}
	return r.reconcileLocked(subscriberID, sub)
}

// RemoveTwinSubscriber implements Registry.
func (r *NATSRegistry) RemoveTwinSubscriber(ctx context.Context, subscriberID string,
	subjects []string) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok {
		return ErrUnknownSubscriber
	}
	delete(sub.categories, signal.CategoryEvents)
	return r.reconcileLocked(subscriberID, sub)
}

// RemoveSubscriber implements Registry.
func (r *NATSRegistry) RemoveSubscriber(subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok {
		return
	}
	for subject, s := range sub.subscriptions {
		if err := s.Unsubscribe(); err != nil {
			logging.Warn().Err(err).Str("subject", subject).Msg("unsubscribe failed during subscriber removal")
		}
	}
	delete(r.subscribers, subscriberID)
}

// Close drains the broker connection.
func (r *NATSRegistry) Close() {
	if err := r.nc.Drain(); err != nil {
		logging.Warn().Err(err).Msg("NATS drain failed")
	}
}

// reconcileLocked aligns the subscriber's NATS subscriptions with its
// desired category/subject matrix. Caller holds r.mu.
func (r *NATSRegistry) reconcileLocked(subscriberID string, sub *natsSubscriber) error {
	desired := make(map[string]bool)
	for category := range sub.categories {
		for _, authSubject := range sub.subjects {
			desired[Subject(category, authSubject)] = true
		}
	}

	for subject, s := range sub.subscriptions {
		if desired[subject] {
			continue
		}
		if err := s.Unsubscribe(); err != nil {
			return fmt.Errorf("pubsub: unsubscribe %s: %w", subject, err)
		}
		delete(sub.subscriptions, subject)
	}

	deliver := sub.deliver
	for subject := range desired {
		if _, ok := sub.subscriptions[subject]; ok {
			continue
		}
		s, err := r.nc.Subscribe(subject, func(msg *nats.Msg) {
			sig, err := DecodeSignal(msg.Data)
			if err != nil {
				logging.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable cluster signal")
				return
			}
			if deliver != nil {
				deliver(sig)
			}
		})
		if err != nil {
			return fmt.Errorf("pubsub: subscribe %s for %s: %w", subject, subscriberID, err)
		}
		sub.subscriptions[subject] = s
	}
	return nil
}
