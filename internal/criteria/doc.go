// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package criteria parses subscription filter expressions into a boolean
// criteria tree and evaluates them against outbound events.
//
// The grammar is a compact functional form:
//
//	and(eq(namespace,'org.acme'),gt(payload/temperature,21.5))
//	or(exists(payload/location),like(entityId,'org.acme:*'))
//
// Predicates: eq, ne, gt, ge, lt, le, in, exists, like. Connectives: and,
// or, not. Paths address the synthetic fields entityId, namespace and topic,
// or descend into the event payload with '/' separators.
package criteria
