// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package metrics provides Prometheus instrumentation for the gateway core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive tracks currently connected streaming sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_sessions_active",
		Help: "Number of active streaming sessions",
	})

	// CollectorsActive tracks live acknowledgement collectors.
	CollectorsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_ack_collectors_active",
		Help: "Number of outstanding acknowledgement collectors",
	})

	// eventsDelivered counts events delivered to sessions, by category.
	eventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_events_delivered_total",
		Help: "Events delivered to sessions",
	}, []string{"category"})

	// eventsDropped counts events withheld from sessions, by reason.
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_events_dropped_total",
		Help: "Events withheld from sessions",
	}, []string{"reason"})

	// ackAggregates counts completed acknowledgement aggregates by result.
	ackAggregates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_ack_aggregates_total",
		Help: "Completed acknowledgement aggregates",
	}, []string{"result"})

	// subscriptionOps counts cluster subscribe/unsubscribe handshakes.
	subscriptionOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_subscription_operations_total",
		Help: "Cluster subscription handshakes",
	}, []string{"operation"})

	// EmitterElements counts elements pushed by rate-limited emitter jobs.
	EmitterElements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_emitter_elements_total",
		Help: "Elements delivered by rate-limited emitter jobs",
	})
)

// Drop reasons for eventsDropped.
const (
	DropReasonUnauthorized   = "unauthorized"
	DropReasonNamespace      = "namespace"
	DropReasonCriteria       = "criteria"
	DropReasonSelfOrigin     = "self_origin"
	DropReasonNoSubscription = "no_subscription"
	DropReasonOverflow       = "mailbox_overflow"
)

// RecordEventDelivered increments the delivery counter for a category.
func RecordEventDelivered(category string) {
	eventsDelivered.WithLabelValues(category).Inc()
}

// RecordEventDropped increments the drop counter for a reason.
func RecordEventDropped(reason string) {
	eventsDropped.WithLabelValues(reason).Inc()
}

// RecordAckAggregate increments the aggregate counter by result.
func RecordAckAggregate(successful, timedOut bool) {
	switch {
	case timedOut:
		ackAggregates.WithLabelValues("timeout").Inc()
	case successful:
		ackAggregates.WithLabelValues("success").Inc()
	default:
		ackAggregates.WithLabelValues("failure").Inc()
	}
}

// RecordSubscriptionOp increments the handshake counter for an operation.
func RecordSubscriptionOp(operation string) {
	subscriptionOps.WithLabelValues(operation).Inc()
}
