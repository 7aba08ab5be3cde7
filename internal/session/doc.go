// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package session implements the per-connection session core.
//
// Each connection is served by one Actor: a single goroutine draining a
// strictly ordered mailbox, so all session state is mutated from exactly
// one place. The actor applies the inbound pipeline (envelope strip, ack
// defaulting, collector spawn), the outbound pipeline (ack forwarding,
// authorization and namespace filtering, self-echo suppression) and the
// subscription handshakes against the cluster registry. The Manager owns
// the actors, fans cluster deliveries into them and runs as a supervised
// service.
package session
