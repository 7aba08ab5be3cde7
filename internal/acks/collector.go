// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package acks

import (
	"time"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/metrics"
	"github.com/meridianhq/streamgate/internal/signal"
)

// mailboxSize bounds buffered deliveries per collector. Expected label sets
// are small; the buffer only needs to absorb forwards racing completion.
const mailboxSize = 16

// Collector gathers acknowledgements for one correlation id. It runs on its
// own goroutine with a strictly ordered mailbox and reports its aggregate
// at most once: when all expected labels are satisfied, on the first error
// signal, or when the deadline elapses.
type Collector struct {
	correlationID string
	expected      []signal.AckRequest
	received      map[signal.AckRequest]Outcome
	report        ReportFunc
	router        *Router

	mailbox chan signal.Signal
	done    chan struct{}
}

func newCollector(router *Router, correlationID string, expected []signal.AckRequest,
	report ReportFunc) *Collector {

	return &Collector{
		correlationID: correlationID,
		expected:      expected,
		received:      make(map[signal.AckRequest]Outcome, len(expected)),
		report:        report,
		router:        router,
		mailbox:       make(chan signal.Signal, mailboxSize),
		done:          make(chan struct{}),
	}
}

// CorrelationID returns the correlation id the collector aggregates for.
func (c *Collector) CorrelationID() string { return c.correlationID }

// deliver hands a signal to the collector mailbox. Returns false once the
// collector completed; the caller falls back to direct publish then.
func (c *Collector) deliver(sig signal.Signal) bool {
	select {
	case <-c.done:
		return false
	case c.mailbox <- sig:
		return true
	}
}

// run is the collector loop. The deadline timer is single-shot; collectors
// owned by an already-terminated session still run to this deadline.
func (c *Collector) run(timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case sig := <-c.mailbox:
			if c.accept(sig) {
				return
			}
		case <-timer.C:
			c.finish(c.timeoutAggregate())
			return
		}
	}
}

// accept records one delivered signal. Returns true when the collector
// completed and stopped.
func (c *Collector) accept(sig signal.Signal) bool {
	switch s := sig.(type) {
	case *signal.Acknowledgement:
		c.record(s.Label, Outcome{Label: s.Label, Success: s.Successful(), Ack: s})
	case *signal.Response:
		// A live response satisfies the live-response label.
		ack := &signal.Acknowledgement{
			Headers:  s.Headers,
			Label:    signal.AckLiveResponse,
			Status:   s.Status,
			EntityID: s.EntityID,
			Payload:  s.Payload,
		}
		c.record(signal.AckLiveResponse, Outcome{
			Label:   signal.AckLiveResponse,
			Success: ack.Successful(),
			Ack:     ack,
		})
	case *signal.ErrorSignal:
		// First error completes the aggregate; missing labels carry the
		// error as their failure value.
		c.finish(c.errorAggregate(s))
		return true
	default:
		logging.Debug().
			Str("correlation_id", c.correlationID).
			Msgf("ack collector ignoring unexpected signal %T", sig)
		return false
	}

	if len(c.received) == len(c.expected) {
		c.finish(c.completeAggregate())
		return true
	}
	return false
}

func (c *Collector) record(label signal.AckRequest, outcome Outcome) {
	if !c.expects(label) {
		logging.Debug().
			Str("correlation_id", c.correlationID).
			Str("label", string(label)).
			Msg("ignoring acknowledgement for unexpected label")
		return
	}
	if _, dup := c.received[label]; dup {
		logging.Debug().
			Str("correlation_id", c.correlationID).
			Str("label", string(label)).
			Msg("ignoring duplicate acknowledgement")
		return
	}
	c.received[label] = outcome
}

func (c *Collector) expects(label signal.AckRequest) bool {
	for _, l := range c.expected {
		if l == label {
			return true
		}
	}
	return false
}

func (c *Collector) completeAggregate() Aggregate {
	agg := Aggregate{CorrelationID: c.correlationID, Successful: true}
	for _, label := range c.expected {
		outcome := c.received[label]
		if !outcome.Success {
			agg.Successful = false
		}
		agg.Outcomes = append(agg.Outcomes, outcome)
	}
	return agg
}

func (c *Collector) timeoutAggregate() Aggregate {
	agg := Aggregate{CorrelationID: c.correlationID, TimedOut: true}
	for _, label := range c.expected {
		if outcome, ok := c.received[label]; ok {
			agg.Outcomes = append(agg.Outcomes, outcome)
			continue
		}
		agg.Outcomes = append(agg.Outcomes, Outcome{
			Label:    label,
			TimedOut: true,
			Err:      signal.AckTimeoutError(c.correlationID, label),
		})
	}
	return agg
}

func (c *Collector) errorAggregate(cause *signal.ErrorSignal) Aggregate {
	agg := Aggregate{CorrelationID: c.correlationID}
	for _, label := range c.expected {
		if outcome, ok := c.received[label]; ok {
			agg.Outcomes = append(agg.Outcomes, outcome)
			continue
		}
		agg.Outcomes = append(agg.Outcomes, Outcome{Label: label, Err: cause})
	}
	return agg
}

// finish reports the aggregate exactly once and removes the collector from
// the router. Deliveries arriving afterwards fail fast on the closed done
// channel.
func (c *Collector) finish(agg Aggregate) {
	c.router.remove(c.correlationID, c)
	close(c.done)
	metrics.RecordAckAggregate(agg.Successful, agg.TimedOut)
	logging.Debug().
		Str("correlation_id", c.correlationID).
		Bool("successful", agg.Successful).
		Bool("timed_out", agg.TimedOut).
		Msg("ack collector completed")
	c.report(agg)
}
