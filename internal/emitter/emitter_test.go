// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package emitter

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/metrics"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "fatal", Output: io.Discard})
}

// sliceSource yields the given elements in order.
func sliceSource(elements []any) Source {
	i := 0
	return func(ctx context.Context) (any, bool) {
		if i >= len(elements) {
			return nil, false
		}
		e := elements[i]
		i++
		return e, true
	}
}

type recordingRecipient struct {
	mu       sync.Mutex
	elements []any
	failFrom int // Deliver fails once this many elements arrived; <0 disables
}

func (r *recordingRecipient) Deliver(element any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFrom >= 0 && len(r.elements) >= r.failFrom {
		return ErrRecipientGone
	}
	r.elements = append(r.elements, element)
	return nil
}

func (r *recordingRecipient) got() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.elements...)
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
	done     chan struct{}
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{done: make(chan struct{}, 8)}
}

func (s *statusRecorder) Complete(st Status) {
	s.mu.Lock()
	s.statuses = append(s.statuses, st)
	s.mu.Unlock()
	s.done <- struct{}{}
}

func (s *statusRecorder) wait(t *testing.T) Status {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for terminal status")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) != 1 {
		t.Fatalf("expected exactly one terminal status, got %d", len(s.statuses))
	}
	return s.statuses[0]
}

func intElements(n int) []any {
	elements := make([]any, n)
	for i := range elements {
		elements[i] = i
	}
	return elements
}

func TestThrottledDeliveryCompletesInOrder(t *testing.T) {
	recv := &recordingRecipient{failFrom: -1}
	status := newStatusRecorder()

	start := time.Now()
	err := Start(context.Background(), Job{
		Source:    sliceSource(intElements(12)),
		Recipient: recv,
		Status:    status,
		PerSecond: 5,
	})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	st := status.wait(t)
	elapsed := time.Since(start)

	if !st.Done() || st.Delivered != 12 {
		t.Errorf("expected Done status with 12 delivered, got %+v", st)
	}
	// Burst of 5 is immediate, the remaining 7 are spaced at 5/s.
	if elapsed < 1300*time.Millisecond {
		t.Errorf("12 elements at 5/s finished too fast: %v", elapsed)
	}
	if elapsed > 3*time.Second {
		t.Errorf("12 elements at 5/s took too long: %v", elapsed)
	}

	got := recv.got()
	if len(got) != 12 {
		t.Fatalf("expected 12 delivered elements, got %d", len(got))
	}
	for i, e := range got {
		if e != i {
			t.Fatalf("element %d delivered out of order: got %v", i, e)
		}
	}
}

func TestDeliveredElementsCounted(t *testing.T) {
	recv := &recordingRecipient{failFrom: -1}
	status := newStatusRecorder()

	before := testutil.ToFloat64(metrics.EmitterElements)
	if err := Run(context.Background(), Job{
		Source:    sliceSource(intElements(7)),
		Recipient: recv,
		Status:    status,
		PerSecond: 100,
	}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	status.wait(t)

	after := testutil.ToFloat64(metrics.EmitterElements)
	if got := after - before; got != 7 {
		t.Errorf("expected counter to grow by 7 delivered elements, grew by %v", got)
	}
}

func TestRecipientGoneStopsDrawing(t *testing.T) {
	drawn := 0
	source := func(ctx context.Context) (any, bool) {
		drawn++
		return drawn, true // unbounded
	}
	recv := &recordingRecipient{failFrom: 3}
	status := newStatusRecorder()

	if err := Run(context.Background(), Job{
		Source:    source,
		Recipient: recv,
		Status:    status,
		PerSecond: 100,
	}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	st := status.wait(t)
	if !errors.Is(st.Err, ErrRecipientGone) {
		t.Errorf("expected ErrRecipientGone, got %v", st.Err)
	}
	if st.Delivered != 3 {
		t.Errorf("expected 3 delivered before abort, got %d", st.Delivered)
	}
	if drawn > 4 {
		t.Errorf("source should not be drawn after recipient vanished, drew %d", drawn)
	}
}

func TestContextCancelReportsStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blockingSource := func(ctx context.Context) (any, bool) {
		<-ctx.Done()
		return nil, false
	}
	recv := &recordingRecipient{failFrom: -1}
	status := newStatusRecorder()

	if err := Start(ctx, Job{
		Source:    blockingSource,
		Recipient: recv,
		Status:    status,
		PerSecond: 1,
	}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	cancel()
	st := status.wait(t)
	if st.Done() {
		t.Error("cancelled run must not report Done")
	}
}

func TestJobValidation(t *testing.T) {
	recv := &recordingRecipient{failFrom: -1}
	status := newStatusRecorder()
	src := sliceSource(nil)

	cases := []struct {
		name string
		job  Job
	}{
		{"missing source", Job{Recipient: recv, Status: status, PerSecond: 1}},
		{"missing recipient", Job{Source: src, Status: status, PerSecond: 1}},
		{"missing status", Job{Source: src, Recipient: recv, PerSecond: 1}},
		{"zero rate", Job{Source: src, Recipient: recv, Status: status}},
		{"negative rate", Job{Source: src, Recipient: recv, Status: status, PerSecond: -2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Start(context.Background(), tc.job); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIndependentRuns(t *testing.T) {
	for i := 0; i < 2; i++ {
		recv := &recordingRecipient{failFrom: -1}
		status := newStatusRecorder()
		if err := Run(context.Background(), Job{
			Source:    sliceSource(intElements(4)),
			Recipient: recv,
			Status:    status,
			PerSecond: 100,
		}); err != nil {
			t.Fatalf("run %d error: %v", i, err)
		}
		st := status.wait(t)
		if !st.Done() || st.Delivered != 4 {
			t.Errorf("run %d: expected 4 delivered, got %+v", i, st)
		}
	}
}
