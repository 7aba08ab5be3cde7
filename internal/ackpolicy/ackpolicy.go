// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package ackpolicy supplies the pluggable default acknowledgement-request
// injection applied to inbound commands before dispatch.
package ackpolicy

import "github.com/meridianhq/streamgate/internal/signal"

// Injector normalizes the requested acks of an inbound command. It returns
// the command unchanged or a copy with injected defaults; it never mutates
// its argument.
type Injector func(cmd *signal.Command) *signal.Command

// None performs no injection.
func None() Injector {
	return func(cmd *signal.Command) *signal.Command { return cmd }
}

// Default returns the built-in policy: a command that requires a response
// and carries no explicit ack requests gets
//
//   - live-response when it is a message command or addresses the live
//     channel,
//   - twin-persisted when it is a modifying twin command.
//
// Query commands and commands with explicit requests pass unchanged.
func Default() Injector {
	return func(cmd *signal.Command) *signal.Command {
		h := cmd.Headers
		if !h.ResponseRequired || len(h.RequestedAcks) > 0 {
			return cmd
		}

		var label signal.AckRequest
		switch {
		case cmd.Kind == signal.KindMessage:
			label = signal.AckLiveResponse
		case h.IsLive():
			label = signal.AckLiveResponse
		case cmd.Kind == signal.KindModify:
			label = signal.AckTwinPersisted
		default:
			return cmd
		}

		h.RequestedAcks = []signal.AckRequest{label}
		injected := cmd.WithHdr(h)
		return injected.(*signal.Command)
	}
}
