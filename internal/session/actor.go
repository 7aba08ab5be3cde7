// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/meridianhq/streamgate/internal/ackpolicy"
	"github.com/meridianhq/streamgate/internal/acks"
	"github.com/meridianhq/streamgate/internal/criteria"
	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/metrics"
	"github.com/meridianhq/streamgate/internal/pubsub"
	"github.com/meridianhq/streamgate/internal/signal"
)

const mailboxSize = 256

// Options configure session actor behavior shared across all sessions.
type Options struct {
	// AckTimeout bounds each acknowledgement collector's lifetime.
	AckTimeout time.Duration

	// TerminationGrace delays actor teardown after the connection closed,
	// letting in-flight responses drain.
	TerminationGrace time.Duration

	// Injector normalizes requested acks on inbound commands. Defaults to
	// ackpolicy.Default().
	Injector ackpolicy.Injector
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.AckTimeout <= 0 {
		out.AckTimeout = 10 * time.Second
	}
	if out.TerminationGrace < 0 {
		out.TerminationGrace = 0
	}
	if out.Injector == nil {
		out.Injector = ackpolicy.Default()
	}
	return out
}

// Actor serves one streaming session. All state is owned by a single
// goroutine draining the mailbox in order; external callers only post
// messages and never touch the state directly.
type Actor struct {
	connectionID  string
	connType      string
	schemaVersion int

	auth       signal.AuthorizationContext
	publisher  Publisher
	dispatcher Dispatcher
	registry   pubsub.Registry
	opts       Options

	router *acks.Router
	coord  *coordinator

	subscriptions map[signal.StreamingCategory]*Subscription

	mailbox chan message
	stopped chan struct{}
	once    sync.Once

	expiryAt time.Time
	expiry   *time.Timer

	// unsubscribed guards the one-time registry cleanup. Only touched from
	// the actor goroutine.
	unsubscribed bool

	cancel context.CancelFunc

	// onStop is invoked exactly once after the run loop exits.
	onStop func(connectionID string)
}

// newActor builds a session actor from a connect request. The caller
// starts it with run.
func newActor(connect Connect, dispatcher Dispatcher, registry pubsub.Registry,
	opts Options, onStop func(string)) *Actor {

	return &Actor{
		connectionID:  connect.ConnectionID,
		connType:      connect.Type,
		schemaVersion: connect.SchemaVersion,
		auth:          connect.AuthContext,
		expiryAt:      connect.Expiry,
		publisher:     connect.Publisher,
		dispatcher:    dispatcher,
		registry:      registry,
		opts:          opts.withDefaults(),
		router:        acks.NewRouter(),
		coord:         newCoordinator(connect.ConnectionID, registry),
		subscriptions: make(map[signal.StreamingCategory]*Subscription),
		mailbox:       make(chan message, mailboxSize),
		stopped:       make(chan struct{}),
		onStop:        onStop,
	}
}

// ConnectionID returns the session's connection correlation id.
func (a *Actor) ConnectionID() string { return a.connectionID }

// Receive posts a signal arriving from the connection transport. It blocks
// while the mailbox is full, propagating backpressure to the transport.
// Returns false once the session stopped.
func (a *Actor) Receive(in Incoming) bool {
	return a.post(incomingMsg{sig: in.Signal})
}

// Deliver posts a signal arriving from the cluster or the business layer.
// Never blocks: deliveries to a full mailbox are dropped and counted, the
// cluster side must not stall on a slow session.
func (a *Actor) Deliver(sig signal.Signal) {
	select {
	case <-a.stopped:
		return
	default:
	}
	select {
	case a.mailbox <- outgoingMsg{sig: sig}:
	case <-a.stopped:
	default:
		metrics.RecordEventDropped(metrics.DropReasonOverflow)
		logging.Warn().
			Str("session_id", a.connectionID).
			Msg("session mailbox full, dropping cluster delivery")
	}
}

// StartStreaming requests a subscription for a category. The filter is an
// optional predicate expression; namespaces is the optional allow-list.
func (a *Actor) StartStreaming(category signal.StreamingCategory, correlationID string,
	namespaces []string, filter string, extraFields []string) bool {

	return a.post(startStreamingMsg{
		category:      category,
		correlationID: correlationID,
		namespaces:    namespaces,
		filter:        filter,
		extraFields:   extraFields,
	})
}

// StopStreaming requests removal of a category subscription.
func (a *Actor) StopStreaming(category signal.StreamingCategory) bool {
	return a.post(stopStreamingMsg{category: category})
}

// Refresh renews the session against a re-presented authorization context.
func (a *Actor) Refresh(auth signal.AuthorizationContext, expiry time.Time) bool {
	return a.post(refreshSessionMsg{auth: auth, expiry: expiry})
}

// Invalidate disables the expiry timer after the token source reported the
// session token invalid. The session lives on until the connection closes.
func (a *Actor) Invalidate() bool {
	return a.post(invalidateSessionMsg{})
}

// ConnectionClosed notifies the actor that the transport went away.
func (a *Actor) ConnectionClosed() bool {
	return a.post(connectionClosedMsg{})
}

// post enqueues a mailbox message, blocking while the mailbox is full.
// Returns false when the session stopped.
func (a *Actor) post(m message) bool {
	select {
	case <-a.stopped:
		return false
	default:
	}
	select {
	case a.mailbox <- m:
		return true
	case <-a.stopped:
		return false
	}
}

// start launches the actor loop under a child of the given context. The
// cancel handle is installed before the goroutine exists, so stop() never
// races the loop.
func (a *Actor) start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	go a.run(ctx)
}

// run is the actor loop. It exits when the context is cancelled or a
// terminal message arrives; either way the session counts down and the
// manager is notified.
func (a *Actor) run(ctx context.Context) {
	ctx = logging.ContextWithSessionID(ctx, a.connectionID)

	metrics.SessionsActive.Inc()
	logging.Info().
		Str("session_id", a.connectionID).
		Str("type", a.connType).
		Int("schema_version", a.schemaVersion).
		Msg("session started")

	if !a.expiryAt.IsZero() {
		a.armExpiry(a.expiryAt)
	}

	defer func() {
		a.removeSubscriber()
		a.terminate()
		metrics.SessionsActive.Dec()
		logging.Info().Str("session_id", a.connectionID).Msg("session stopped")
		if a.onStop != nil {
			a.onStop(a.connectionID)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-a.mailbox:
			switch msg := m.(type) {
			case incomingMsg:
				a.handleIncoming(ctx, msg.sig)
			case outgoingMsg:
				a.handleOutgoing(ctx, msg.sig)
			case startStreamingMsg:
				a.handleStartStreaming(ctx, msg)
			case stopStreamingMsg:
				a.handleStopStreaming(ctx, msg)
			case subscriptionAckedMsg:
				a.handleSubscriptionAcked(msg)
			case refreshSessionMsg:
				if !a.handleRefresh(msg) {
					return
				}
			case invalidateSessionMsg:
				a.disarmExpiry()
			case connectionClosedMsg:
				a.handleConnectionClosed()
			case expireMsg:
				a.publisher.Publish(signal.SessionedClose(
					signal.SessionExpiredError(a.connectionID), a.connectionID))
				return
			case stopMsg:
				return
			}
		}
	}
}

// --- inbound pipeline ---

// handleIncoming normalizes a transport signal and hands it to the
// dispatcher. Commands with requested acks get a collector bound to their
// correlation id; a spawn failure is reported to the client but never
// withholds the command from the business layer.
func (a *Actor) handleIncoming(ctx context.Context, sig signal.Signal) {
	h := sig.Hdr()
	if h.CorrelationID == "" || h.Origin == "" {
		if h.CorrelationID == "" {
			h.CorrelationID = logging.NewCorrelationID()
		}
		// Stamp the issuing connection so that echoes of this signal are
		// suppressed on the way back and responses find this session.
		if h.Origin == "" {
			h.Origin = a.connectionID
		}
		sig = sig.WithHdr(h)
	}
	ctx = logging.ContextWithCorrelationID(ctx, h.CorrelationID)

	if cmd, ok := sig.(*signal.Command); ok {
		cmd = a.opts.Injector(cmd)
		sig = cmd
		if len(cmd.Headers.RequestedAcks) > 0 {
			a.spawnCollector(ctx, cmd)
		}
	}

	logging.Ctx(ctx).Debug().Str("session_id", a.connectionID).Msg("dispatching inbound signal")
	a.dispatcher.Dispatch(sig)
}

func (a *Actor) spawnCollector(ctx context.Context, cmd *signal.Command) {
	correlationID := cmd.Headers.CorrelationID
	_, err := a.router.Spawn(correlationID, cmd.Headers.RequestedAcks, a.opts.AckTimeout,
		func(agg acks.Aggregate) {
			a.publisher.Publish(aggregateEnvelope(agg))
		})
	if err != nil {
		if errors.Is(err, acks.ErrDuplicateCorrelationID) {
			a.publisher.Publish(signal.SessionedFromError(
				signal.DuplicateCorrelationError(correlationID)))
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to spawn ack collector")
	}
}

// aggregateEnvelope renders a collector aggregate as the acknowledgements
// response for the issuing client. A fully successful aggregate reports
// 200, anything else 424 with the per-label results in the payload.
func aggregateEnvelope(agg acks.Aggregate) signal.Sessioned {
	type labelResult struct {
		Label   signal.AckRequest `json:"label"`
		Status  int               `json:"status"`
		Payload any               `json:"payload,omitempty"`
	}

	status := 200
	results := make([]labelResult, 0, len(agg.Outcomes))
	for _, outcome := range agg.Outcomes {
		r := labelResult{Label: outcome.Label}
		switch {
		case outcome.Ack != nil:
			r.Status = outcome.Ack.Status
			if len(outcome.Ack.Payload) > 0 {
				r.Payload = json.RawMessage(outcome.Ack.Payload)
			}
		case outcome.Err != nil:
			r.Status = outcome.Err.Status
			r.Payload = outcome.Err
		}
		if !outcome.Success {
			status = 424
		}
		results = append(results, r)
	}

	payload, err := json.Marshal(results)
	if err != nil {
		payload = nil
	}
	return signal.SessionedFromResponse(&signal.Response{
		Headers: signal.Headers{CorrelationID: agg.CorrelationID},
		Type:    "acknowledgements",
		Status:  status,
		Payload: payload,
	})
}

// --- outbound pipeline ---

// handleOutgoing routes a signal from the cluster or the business layer.
// Acknowledgements, responses and errors are offered to the collector for
// their correlation id first; events and live signals pass the
// subscription filters.
func (a *Actor) handleOutgoing(ctx context.Context, sig signal.Signal) {
	correlationID := sig.Hdr().CorrelationID
	ctx = logging.ContextWithCorrelationID(ctx, correlationID)

	switch s := sig.(type) {
	case *signal.Acknowledgement:
		if !a.router.Forward(correlationID, s) {
			logging.Ctx(ctx).Debug().
				Str("label", string(s.Label)).
				Msg("no live collector for acknowledgement, dropping")
		}
	case *signal.Response:
		if !a.router.Forward(correlationID, s) {
			a.publisher.Publish(signal.SessionedFromResponse(s))
		}
	case *signal.ErrorSignal:
		if !a.router.Forward(correlationID, s) {
			a.publisher.Publish(signal.SessionedFromError(s))
		}
	default:
		a.deliverStreaming(ctx, sig)
	}
}

// deliverStreaming applies the subscription filters to an event, live
// command or message and publishes the enveloped signal on success.
func (a *Actor) deliverStreaming(ctx context.Context, sig signal.Signal) {
	h := sig.Hdr()

	if h.Origin != "" && h.Origin == a.connectionID {
		metrics.RecordEventDropped(metrics.DropReasonSelfOrigin)
		return
	}

	category := signal.CategoryOf(sig)
	sub, ok := a.subscriptions[category]
	if !ok {
		metrics.RecordEventDropped(metrics.DropReasonNoSubscription)
		return
	}

	if !a.auth.IsAuthorized(h.ReadGranted, h.ReadRevoked) {
		metrics.RecordEventDropped(metrics.DropReasonUnauthorized)
		return
	}

	if !sub.admitsNamespace(signal.NamespaceOf(entityIDOf(sig))) {
		metrics.RecordEventDropped(metrics.DropReasonNamespace)
		return
	}

	var extra json.RawMessage
	if ev, isEvent := sig.(*signal.Event); isEvent {
		if !sub.matches(ev) {
			metrics.RecordEventDropped(metrics.DropReasonCriteria)
			return
		}
		extra = sub.extra(ev)
	}

	// Live commands reaching a subscriber carry forwarding metadata so the
	// subscriber's response finds its way back to the issuer's collector.
	if cmd, isCommand := sig.(*signal.Command); isCommand && !h.Forwarded {
		fh := cmd.Headers
		fh.Forwarded = true
		sig = cmd.WithHdr(fh)
	}

	metrics.RecordEventDelivered(string(category))
	logging.Ctx(ctx).Trace().
		Str("session_id", a.connectionID).
		Str("category", string(category)).
		Msg("delivering streaming signal")
	a.publisher.Publish(signal.SessionedSignal(sig, category, extra))
}

func entityIDOf(sig signal.Signal) string {
	switch s := sig.(type) {
	case *signal.Event:
		return s.EntityID
	case *signal.Command:
		return s.EntityID
	case *signal.Response:
		return s.EntityID
	case *signal.Acknowledgement:
		return s.EntityID
	default:
		return ""
	}
}

// --- subscription handshakes ---

func (a *Actor) handleStartStreaming(ctx context.Context, msg startStreamingMsg) {
	var filter criteria.Criteria
	if msg.filter != "" {
		parsed, err := criteria.Parse(msg.filter)
		if err != nil {
			logging.Ctx(ctx).Debug().
				Err(err).
				Str("category", string(msg.category)).
				Msg("rejecting subscription with malformed filter")
			a.publisher.Publish(signal.SessionedFromError(
				signal.InvalidFilterError(msg.correlationID, err)))
			return
		}
		filter = parsed
	}

	a.subscriptions[msg.category] = &Subscription{
		Namespaces:  msg.namespaces,
		Criteria:    filter,
		ExtraFields: msg.extraFields,
	}
	a.coord.requestSubscribe(ctx, msg.category, a.activeCategories(),
		a.auth.SubjectIDs, a.Deliver, a.post)
}

func (a *Actor) handleStopStreaming(ctx context.Context, msg stopStreamingMsg) {
	delete(a.subscriptions, msg.category)
	delete(a.coord.outstanding, msg.category)
	a.coord.requestUnsubscribe(ctx, msg.category, a.activeCategories(), a.auth.SubjectIDs, a.post)
}

func (a *Actor) handleSubscriptionAcked(msg subscriptionAckedMsg) {
	if msg.subscribed {
		if !a.coord.acknowledgeSubscribe(msg.category) {
			return
		}
	}
	a.publisher.Publish(signal.SessionedAck(msg.category, msg.subscribed, a.connectionID))
}

func (a *Actor) activeCategories() []signal.StreamingCategory {
	active := make([]signal.StreamingCategory, 0, len(a.subscriptions))
	for _, category := range signal.Categories() {
		if _, ok := a.subscriptions[category]; ok {
			active = append(active, category)
		}
	}
	return active
}

// --- lifecycle ---

// handleRefresh renews the expiry timer when the re-presented authorization
// context equals the session's. A changed context force-closes the session;
// the client must reconnect to pick up new permissions.
func (a *Actor) handleRefresh(msg refreshSessionMsg) bool {
	if !msg.auth.Equal(a.auth) {
		logging.Info().
			Str("session_id", a.connectionID).
			Msg("authorization context changed, closing session")
		a.publisher.Publish(signal.SessionedClose(
			signal.SessionClosedError(a.connectionID), a.connectionID))
		return false
	}
	a.armExpiry(msg.expiry)
	return true
}

// removeSubscriber drops all cluster routing for the session, once.
func (a *Actor) removeSubscriber() {
	if a.unsubscribed {
		return
	}
	a.unsubscribed = true
	a.registry.RemoveSubscriber(a.connectionID)
}

func (a *Actor) handleConnectionClosed() {
	a.removeSubscriber()
	if a.opts.TerminationGrace <= 0 {
		a.stop()
		return
	}
	// Ack collectors keep running to their own deadlines; only the actor
	// waits out the grace period before going away.
	time.AfterFunc(a.opts.TerminationGrace, func() { a.post(stopMsg{}) })
}

func (a *Actor) stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

// terminate flips the stopped marker so posters stop blocking. Idempotent.
func (a *Actor) terminate() {
	a.once.Do(func() {
		a.disarmExpiry()
		if a.cancel != nil {
			a.cancel()
		}
		close(a.stopped)
	})
}

// --- expiry timer ---

func (a *Actor) armExpiry(at time.Time) {
	a.disarmExpiry()
	if at.IsZero() {
		return
	}
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	a.expiry = time.AfterFunc(d, func() { a.post(expireMsg{}) })
}

func (a *Actor) disarmExpiry() {
	if a.expiry != nil {
		a.expiry.Stop()
		a.expiry = nil
	}
}
