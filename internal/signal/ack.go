// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package signal

// AckRequest names a receiver that must acknowledge a dispatched command.
type AckRequest string

// Well-known acknowledgement labels.
const (
	// AckTwinPersisted confirms the command's change reached the persisted
	// twin state.
	AckTwinPersisted AckRequest = "twin-persisted"

	// AckSearchPersisted confirms the change is visible to the search index.
	AckSearchPersisted AckRequest = "search-persisted"

	// AckLiveResponse confirms a live receiver produced a response.
	AckLiveResponse AckRequest = "live-response"
)

// HasAckRequest reports whether label is among the requested acks.
func (h Headers) HasAckRequest(label AckRequest) bool {
	for _, req := range h.RequestedAcks {
		if req == label {
			return true
		}
	}
	return false
}
