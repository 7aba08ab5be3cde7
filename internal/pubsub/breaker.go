// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/signal"
)

// BreakerConfig tunes the circuit breaker around registry handshakes.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns conservative defaults: trip after five
// consecutive failures, probe again after ten seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "cluster-registry",
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerRegistry decorates a Registry with a circuit breaker. While the
// breaker is open, subscription handshakes fail immediately; the session
// surfaces that as an absent subscription acknowledgement.
type BreakerRegistry struct {
	inner Registry
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerRegistry wraps the given registry.
func NewBreakerRegistry(inner Registry, cfg BreakerConfig) *BreakerRegistry {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("cluster registry breaker state changed")
		},
	}
	return &BreakerRegistry{inner: inner, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the breaker state for monitoring.
func (b *BreakerRegistry) State() string {
	return b.cb.State().String()
}

func (b *BreakerRegistry) execute(op func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, op()
	})
	return err
}

// Subscribe implements Registry.
func (b *BreakerRegistry) Subscribe(ctx context.Context, subscriberID string,
	categories []signal.StreamingCategory, subjects []string, deliver Handler) error {

	return b.execute(func() error {
		return b.inner.Subscribe(ctx, subscriberID, categories, subjects, deliver)
	})
}

// UpdateLiveSubscriptions implements Registry.
func (b *BreakerRegistry) UpdateLiveSubscriptions(ctx context.Context, subscriberID string,
	categories []signal.StreamingCategory, subjects []string) error {

	return b.execute(func() error {
		return b.inner.UpdateLiveSubscriptions(ctx, subscriberID, categories, subjects)
	})
}

// RemoveTwinSubscriber implements Registry.
func (b *BreakerRegistry) RemoveTwinSubscriber(ctx context.Context, subscriberID string,
	subjects []string) error {

	return b.execute(func() error {
		return b.inner.RemoveTwinSubscriber(ctx, subscriberID, subjects)
	})
}

// RemoveSubscriber implements Registry. Fire-and-forget calls bypass the
// breaker; there is no completion to protect.
func (b *BreakerRegistry) RemoveSubscriber(subscriberID string) {
	b.inner.RemoveSubscriber(subscriberID)
}
