// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/signal"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "fatal", Output: io.Discard})
}

func TestCodecRoundTrip(t *testing.T) {
	signals := []signal.Signal{
		&signal.Command{Headers: signal.Headers{CorrelationID: "c1"}, Type: "things.commands:modify", Kind: signal.KindModify, EntityID: "org.acme:thing1"},
		&signal.Event{Headers: signal.Headers{CorrelationID: "c2", Channel: signal.ChannelLive}, Type: "things.events:modified", EntityID: "org.acme:thing1", Revision: 7},
		&signal.Response{Headers: signal.Headers{CorrelationID: "c3"}, Type: "things.responses:modify", Status: 204},
		&signal.Acknowledgement{Headers: signal.Headers{CorrelationID: "c4"}, Label: signal.AckTwinPersisted, Status: 200},
		&signal.ErrorSignal{Headers: signal.Headers{CorrelationID: "c5"}, Code: "things:thing.notfound", Status: 404},
	}

	for _, sig := range signals {
		data, err := EncodeSignal(sig)
		if err != nil {
			t.Fatalf("EncodeSignal(%T) error: %v", sig, err)
		}
		decoded, err := DecodeSignal(data)
		if err != nil {
			t.Fatalf("DecodeSignal(%T) error: %v", sig, err)
		}
		if decoded.Hdr().CorrelationID != sig.Hdr().CorrelationID {
			t.Errorf("%T round trip lost correlation id", sig)
		}
	}
}

func TestDecodeSignalRejectsUnknownKind(t *testing.T) {
	if _, err := DecodeSignal([]byte(`{"kind":"mystery","body":{}}`)); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := DecodeSignal([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestMemoryRegistrySubscribeAndPublish(t *testing.T) {
	reg := NewMemoryRegistry()

	var mu sync.Mutex
	var got []signal.Signal
	deliver := func(sig signal.Signal) {
		mu.Lock()
		got = append(got, sig)
		mu.Unlock()
	}

	err := reg.Subscribe(context.Background(), "conn-1",
		[]signal.StreamingCategory{signal.CategoryEvents}, []string{"sub:alice"}, deliver)
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	ev := &signal.Event{Headers: signal.Headers{CorrelationID: "e1"}, EntityID: "org.acme:t1"}
	reg.Publish(signal.CategoryEvents, ev)
	reg.Publish(signal.CategoryMessages, &signal.Command{Kind: signal.KindMessage})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 delivered signal, got %d", len(got))
	}
	if got[0].Hdr().CorrelationID != "e1" {
		t.Error("wrong signal delivered")
	}
}

func TestMemoryRegistryUpdateLiveKeepsTwin(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	categories := []signal.StreamingCategory{signal.CategoryEvents, signal.CategoryLiveEvents}
	if err := reg.Subscribe(ctx, "conn-1", categories, []string{"sub:a"}, func(signal.Signal) {}); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	// Dropping live-events must leave the twin event routing in place.
	if err := reg.UpdateLiveSubscriptions(ctx, "conn-1",
		[]signal.StreamingCategory{signal.CategoryEvents}, []string{"sub:a"}); err != nil {
		t.Fatalf("UpdateLiveSubscriptions error: %v", err)
	}

	if !reg.Subscribed("conn-1", signal.CategoryEvents) {
		t.Error("twin events routing should survive live update")
	}
	if reg.Subscribed("conn-1", signal.CategoryLiveEvents) {
		t.Error("live events routing should be dropped")
	}
}

func TestMemoryRegistryRemoveTwin(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	categories := []signal.StreamingCategory{signal.CategoryEvents, signal.CategoryMessages}
	if err := reg.Subscribe(ctx, "conn-1", categories, []string{"sub:a"}, func(signal.Signal) {}); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if err := reg.RemoveTwinSubscriber(ctx, "conn-1", []string{"sub:a"}); err != nil {
		t.Fatalf("RemoveTwinSubscriber error: %v", err)
	}

	if reg.Subscribed("conn-1", signal.CategoryEvents) {
		t.Error("twin events routing should be removed")
	}
	if !reg.Subscribed("conn-1", signal.CategoryMessages) {
		t.Error("message routing should survive twin removal")
	}
}

func TestMemoryRegistryRemoveSubscriber(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	if err := reg.Subscribe(ctx, "conn-1",
		[]signal.StreamingCategory{signal.CategoryEvents}, []string{"sub:a"}, func(signal.Signal) {}); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	reg.RemoveSubscriber("conn-1")

	if reg.Subscribed("conn-1", signal.CategoryEvents) {
		t.Error("removed subscriber should have no routing")
	}
	if err := reg.UpdateLiveSubscriptions(ctx, "conn-1", nil, nil); !errors.Is(err, ErrUnknownSubscriber) {
		t.Errorf("expected ErrUnknownSubscriber, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	reg := NewMemoryRegistry()
	reg.FailWith = errors.New("cluster unavailable")

	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 3
	cfg.Timeout = time.Minute
	breaker := NewBreakerRegistry(reg, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := breaker.Subscribe(ctx, "conn-1", nil, nil, nil); err == nil {
			t.Fatal("expected failure from registry")
		}
	}
	if breaker.State() != "open" {
		t.Errorf("breaker should be open after threshold, state %s", breaker.State())
	}

	// Calls while open fail fast without reaching the registry.
	before := len(reg.Calls())
	if err := breaker.Subscribe(ctx, "conn-1", nil, nil, nil); err == nil {
		t.Error("expected fast failure from open breaker")
	}
	if len(reg.Calls()) != before {
		t.Error("open breaker must not invoke the registry")
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	reg := NewMemoryRegistry()
	breaker := NewBreakerRegistry(reg, DefaultBreakerConfig())

	err := breaker.Subscribe(context.Background(), "conn-1",
		[]signal.StreamingCategory{signal.CategoryEvents}, []string{"sub:a"}, func(signal.Signal) {})
	if err != nil {
		t.Fatalf("Subscribe through breaker error: %v", err)
	}
	if !reg.Subscribed("conn-1", signal.CategoryEvents) {
		t.Error("subscription should reach the inner registry")
	}
}

func TestSubjectSanitization(t *testing.T) {
	got := Subject(signal.CategoryEvents, "sub:org.acme users")
	want := "streamgate.events.sub:org-acme-users"
	if got != want {
		t.Errorf("Subject = %q, want %q", got, want)
	}
}
