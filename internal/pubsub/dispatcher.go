// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"github.com/nats-io/nats.go"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/signal"
)

// DispatchSubject carries commands and queries toward the business layer.
const DispatchSubject = SubjectPrefix + ".dispatch"

// NATSDispatcher publishes session signals to the cluster. Commands go to
// the business-layer dispatch subject; streaming signals fan out on the
// per-category subjects that subscribed sessions listen on.
type NATSDispatcher struct {
	nc *nats.Conn
}

// Dispatcher returns a dispatcher sharing the registry's broker connection.
func (r *NATSRegistry) Dispatcher() *NATSDispatcher {
	return &NATSDispatcher{nc: r.nc}
}

// Dispatch implements the session dispatcher contract. Publishing is
// asynchronous and never blocks the session actor.
func (d *NATSDispatcher) Dispatch(sig signal.Signal) {
	data, err := EncodeSignal(sig)
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode dispatched signal")
		return
	}
	for _, subject := range dispatchSubjects(sig) {
		if err := d.nc.Publish(subject, data); err != nil {
			logging.Warn().
				Err(err).
				Str("subject", subject).
				Str("correlation_id", sig.Hdr().CorrelationID).
				Msg("failed to publish dispatched signal")
		}
	}
}

// dispatchSubjects selects the cluster subjects for a signal. Commands
// always reach the business layer; live commands and messages additionally
// fan out to the sessions granted to read them.
func dispatchSubjects(sig signal.Signal) []string {
	subjects := []string{}
	h := sig.Hdr()

	cmd, isCommand := sig.(*signal.Command)
	if isCommand {
		subjects = append(subjects, DispatchSubject)
		if cmd.Kind != signal.KindMessage && !h.IsLive() {
			return subjects
		}
	}

	category := signal.CategoryOf(sig)
	for _, granted := range h.ReadGranted {
		subjects = append(subjects, Subject(category, granted))
	}
	return subjects
}
