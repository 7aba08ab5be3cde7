// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package acks

import "github.com/meridianhq/streamgate/internal/signal"

// Outcome is the result recorded for one expected acknowledgement label.
type Outcome struct {
	Label signal.AckRequest

	// Success reports whether the label acknowledged with a success status.
	Success bool

	// TimedOut marks a label still missing when the deadline elapsed.
	TimedOut bool

	// Ack holds the received acknowledgement, nil when timed out or
	// completed by an error signal.
	Ack *signal.Acknowledgement

	// Err holds the failure value for labels completed by an error signal
	// or by the deadline.
	Err *signal.ErrorSignal
}

// Aggregate is the single completion reported per collector.
type Aggregate struct {
	CorrelationID string

	// Outcomes holds one entry per expected label, in the order the labels
	// were requested.
	Outcomes []Outcome

	// Successful is true only when every outcome succeeded.
	Successful bool

	// TimedOut is true when the deadline elapsed before all labels were
	// satisfied.
	TimedOut bool
}

// Outcome returns the recorded outcome for a label.
func (a Aggregate) Outcome(label signal.AckRequest) (Outcome, bool) {
	for _, o := range a.Outcomes {
		if o.Label == label {
			return o, true
		}
	}
	return Outcome{}, false
}

// ReportFunc receives the aggregate exactly once per collector.
type ReportFunc func(Aggregate)
