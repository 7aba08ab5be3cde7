// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package emitter converts a lazily produced element sequence into a
// bounded-rate push stream toward a recipient, with a terminal status
// report. One job, one outcome; independent runs are unrelated.
package emitter

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/metrics"
)

// ErrRecipientGone is returned by a Recipient whose consumer disappeared.
// The emitter stops drawing from the source and reports the outcome to the
// status recipient instead of raising it to the caller.
var ErrRecipientGone = errors.New("emitter: recipient gone")

// Source produces the element sequence. It returns ok=false when the
// sequence is exhausted. Sources may block; they are always called with the
// job context.
type Source func(ctx context.Context) (element any, ok bool)

// Recipient receives the shaped element stream.
type Recipient interface {
	Deliver(element any) error
}

// StatusRecipient receives exactly one terminal status per job.
type StatusRecipient interface {
	Complete(Status)
}

// Status is the terminal outcome of one emitter job.
type Status struct {
	// Delivered counts the elements handed to the recipient.
	Delivered int

	// Err is nil when the source completed normally. ErrRecipientGone
	// (possibly wrapped) when the recipient disappeared mid-stream, or the
	// context error on cancellation.
	Err error
}

// Done reports normal completion.
func (s Status) Done() bool { return s.Err == nil }

// Job describes one rate-limited emission run.
type Job struct {
	// Source yields the elements, in delivery order.
	Source Source

	// Recipient receives the elements.
	Recipient Recipient

	// Status receives the single terminal status.
	Status StatusRecipient

	// PerSecond is the rate ceiling in elements per second. The token
	// bucket burst equals the ceiling.
	PerSecond int
}

func (j Job) validate() error {
	if j.Source == nil {
		return errors.New("emitter: job requires a source")
	}
	if j.Recipient == nil {
		return errors.New("emitter: job requires a recipient")
	}
	if j.Status == nil {
		return errors.New("emitter: job requires a status recipient")
	}
	if j.PerSecond <= 0 {
		return fmt.Errorf("emitter: rate ceiling must be positive, got %d", j.PerSecond)
	}
	return nil
}

// Start validates the job and runs it in its own goroutine. The returned
// error covers validation only; runtime outcomes go to the status recipient.
func Start(ctx context.Context, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	go run(ctx, job)
	return nil
}

// Run validates the job and runs it on the calling goroutine, returning
// after the terminal status was reported.
func Run(ctx context.Context, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	run(ctx, job)
	return nil
}

func run(ctx context.Context, job Job) {
	limiter := rate.NewLimiter(rate.Limit(job.PerSecond), job.PerSecond)
	delivered := 0

	for {
		if err := limiter.Wait(ctx); err != nil {
			job.Status.Complete(Status{Delivered: delivered, Err: err})
			return
		}

		element, ok := job.Source(ctx)
		if !ok {
			job.Status.Complete(Status{Delivered: delivered})
			return
		}

		if err := job.Recipient.Deliver(element); err != nil {
			logging.Debug().
				Err(err).
				Int("delivered", delivered).
				Msg("emitter recipient unavailable, stopping stream")
			job.Status.Complete(Status{Delivered: delivered, Err: err})
			return
		}
		delivered++
		metrics.EmitterElements.Inc()
	}
}
