// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"context"
	"time"

	"github.com/meridianhq/streamgate/internal/logging"
)

// DefaultMonitorInterval is how often the cluster monitor samples broker
// health when no interval is configured.
const DefaultMonitorInterval = 30 * time.Second

// BrokerHealth is the slice of the registry the cluster monitor observes.
type BrokerHealth interface {
	Healthy() bool
	SubscriberCount() int
}

// BreakerState exposes the circuit breaker state for monitoring.
type BreakerState interface {
	State() string
}

// ClusterMonitor is the cluster supervisor layer's watchdog. It samples
// the broker connection and breaker state on an interval, logging a
// warning while the broker is unreachable. It runs as a suture service:
// a crash restarts the monitor without touching live sessions.
type ClusterMonitor struct {
	health   BrokerHealth
	breaker  BreakerState // nil when the breaker is disabled
	interval time.Duration
}

// NewClusterMonitor creates a monitor over the given broker health source.
// breaker may be nil. An interval of zero means DefaultMonitorInterval.
func NewClusterMonitor(health BrokerHealth, breaker BreakerState, interval time.Duration) *ClusterMonitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &ClusterMonitor{health: health, breaker: breaker, interval: interval}
}

// String implements suture's service naming.
func (m *ClusterMonitor) String() string { return "cluster-monitor" }

// Serve implements suture.Service. It blocks until the context is
// canceled.
func (m *ClusterMonitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *ClusterMonitor) sample() {
	connected := m.health.Healthy()

	ev := logging.Debug()
	if !connected {
		ev = logging.Warn()
	}
	ev = ev.
		Bool("broker_connected", connected).
		Int("subscribers", m.health.SubscriberCount())
	if m.breaker != nil {
		ev = ev.Str("breaker_state", m.breaker.State())
	}
	ev.Msg("cluster health sample")
}
