// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package signal

import "fmt"

// StreamingCategory is the client-visible subscription axis. A session holds
// at most one subscription per category.
type StreamingCategory string

const (
	// CategoryEvents is the persisted (twin) event feed.
	CategoryEvents StreamingCategory = "events"

	// CategoryLiveEvents is the live event feed.
	CategoryLiveEvents StreamingCategory = "live-events"

	// CategoryMessages is the direct message feed.
	CategoryMessages StreamingCategory = "messages"

	// CategoryLiveCommands is the live command feed.
	CategoryLiveCommands StreamingCategory = "live-commands"
)

// Categories lists all streaming categories in a stable order.
func Categories() []StreamingCategory {
	return []StreamingCategory{
		CategoryEvents,
		CategoryLiveEvents,
		CategoryMessages,
		CategoryLiveCommands,
	}
}

// ParseCategory converts a client-supplied category name.
func ParseCategory(s string) (StreamingCategory, error) {
	switch StreamingCategory(s) {
	case CategoryEvents, CategoryLiveEvents, CategoryMessages, CategoryLiveCommands:
		return StreamingCategory(s), nil
	}
	return "", fmt.Errorf("unknown streaming category %q", s)
}

// CategoryOf determines the streaming category an outbound signal belongs
// to: twin events route to the event feed, live events to the live-event
// feed, message commands to the message feed and everything else to the
// live-command feed.
func CategoryOf(sig Signal) StreamingCategory {
	switch s := sig.(type) {
	case *Event:
		if s.Headers.IsLive() {
			return CategoryLiveEvents
		}
		return CategoryEvents
	case *Command:
		if s.Kind == KindMessage {
			return CategoryMessages
		}
		return CategoryLiveCommands
	default:
		return CategoryLiveCommands
	}
}
