// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"context"
	"sync"

	"github.com/meridianhq/streamgate/internal/signal"
)

// Call records one registry operation for test assertions.
type Call struct {
	Op           string
	SubscriberID string
	Categories   []signal.StreamingCategory
	Subjects     []string
}

type memorySubscriber struct {
	categories map[signal.StreamingCategory]bool
	subjects   []string
	deliver    Handler
}

// MemoryRegistry is an in-process Registry used by tests and local runs.
// It records every call and can be configured to fail or delay completions.
type MemoryRegistry struct {
	mu          sync.Mutex
	subscribers map[string]*memorySubscriber
	calls       []Call

	// FailWith, when set, is returned by all awaited operations.
	FailWith error
}

// NewMemoryRegistry creates an empty in-process registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{subscribers: make(map[string]*memorySubscriber)}
}

// Subscribe implements Registry.
func (m *MemoryRegistry) Subscribe(ctx context.Context, subscriberID string,
	categories []signal.StreamingCategory, subjects []string, deliver Handler) error {

	if err := m.barrier(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "subscribe", SubscriberID: subscriberID,
		Categories: categories, Subjects: subjects})

	sub, ok := m.subscribers[subscriberID]
	if !ok {
		sub = &memorySubscriber{categories: make(map[signal.StreamingCategory]bool)}
		m.subscribers[subscriberID] = sub
	}
	if deliver != nil {
		sub.deliver = deliver
	}
	sub.subjects = subjects
	sub.categories = make(map[signal.StreamingCategory]bool, len(categories))
	for _, c := range categories {
		sub.categories[c] = true
	}
	return nil
}

// UpdateLiveSubscriptions implements Registry.
func (m *MemoryRegistry) UpdateLiveSubscriptions(ctx context.Context, subscriberID string,
	categories []signal.StreamingCategory, subjects []string) error {

	if err := m.barrier(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "update-live", SubscriberID: subscriberID,
		Categories: categories, Subjects: subjects})

	sub, ok := m.subscribers[subscriberID]
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
	return nil
}

// RemoveTwinSubscriber implements Registry.
func (m *MemoryRegistry) RemoveTwinSubscriber(ctx context.Context, subscriberID string,
	subjects []string) error {

	if err := m.barrier(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "remove-twin", SubscriberID: subscriberID,
		Subjects: subjects})

	sub, ok := m.subscribers[subscriberID]
	if !ok {
		return ErrUnknownSubscriber
	}
	delete(sub.categories, signal.CategoryEvents)
	return nil
}

// RemoveSubscriber implements Registry.
func (m *MemoryRegistry) RemoveSubscriber(subscriberID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "remove", SubscriberID: subscriberID})
	delete(m.subscribers, subscriberID)
}

// Publish delivers a signal to every subscriber routed for the category.
// Test helper standing in for the cluster's delivery path.
func (m *MemoryRegistry) Publish(category signal.StreamingCategory, sig signal.Signal) {
	m.mu.Lock()
	var handlers []Handler
	for _, sub := range m.subscribers {
		if sub.categories[category] && sub.deliver != nil {
			handlers = append(handlers, sub.deliver)
		}
	}
	m.mu.Unlock()

	for _, deliver := range handlers {
		deliver(sig)
	}
}

// Calls returns a copy of the recorded operations.
func (m *MemoryRegistry) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Subscribed reports whether the subscriber currently routes the category.
func (m *MemoryRegistry) Subscribed(subscriberID string, category signal.StreamingCategory) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscribers[subscriberID]
	return ok && sub.categories[category]
}

func (m *MemoryRegistry) barrier(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	failWith := m.FailWith
	m.mu.Unlock()
	return failWith
}
