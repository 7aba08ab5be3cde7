// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{
		Level:     "debug",
		Format:    "json",
		Timestamp: true,
		Output:    &buf,
	})

	Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
}

func TestEventStarters(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{
		Level:     "trace",
		Format:    "json",
		Timestamp: false,
		Output:    &buf,
	})

	starters := []struct {
		level string
		start func() *zerolog.Event
	}{
		{"trace", Trace},
		{"debug", Debug},
		{"info", Info},
		{"warn", Warn},
		{"error", Error},
	}

	for _, tt := range starters {
		buf.Reset()
		tt.start().Msg("starter check")

		output := buf.String()
		if !strings.Contains(output, `"level":"`+tt.level+`"`) {
			t.Errorf("expected %s event to carry its level, got: %s", tt.level, output)
		}
		if !strings.Contains(output, "starter check") {
			t.Errorf("expected %s event to carry the message, got: %s", tt.level, output)
		}
	}
}

func TestEventStartersHonorLevel(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{
		Level:     "warn",
		Format:    "json",
		Timestamp: false,
		Output:    &buf,
	})

	Debug().Msg("filtered out")
	Info().Msg("filtered out")

	if buf.Len() != 0 {
		t.Errorf("expected below-level events to be suppressed, got: %s", buf.String())
	}

	Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("expected warn event to be written, got: %s", buf.String())
	}
}
