// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package signal defines the domain signals flowing through the gateway:
// commands, command responses, events, acknowledgements and error signals.
//
// Signals form a closed tagged union; every component dispatches on the
// concrete type with a single exhaustive switch. Each signal carries Headers
// with the correlation id, the originating connection, the twin/live channel
// marker and the authorization subjects used for outbound filtering.
//
// The package also defines the session-facing envelope (Sessioned) handed to
// the connection transport, and the streaming categories clients subscribe to.
package signal
