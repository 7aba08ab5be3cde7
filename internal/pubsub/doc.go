// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package pubsub defines the cluster pub/sub registry collaborator and its
// implementations.
//
// The registry is the gateway's only view of the cluster: sessions request
// subscription changes and await their completion; signal delivery and its
// guarantees belong to the broker. NATSRegistry maps streaming categories
// and authorization subjects onto NATS subjects; MemoryRegistry backs tests.
// BreakerRegistry decorates either with a circuit breaker so a struggling
// cluster fails subscription handshakes fast, which clients observe as an
// absent subscription ack.
package pubsub
