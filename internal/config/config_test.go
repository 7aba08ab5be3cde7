// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.AckTimeout != 10*time.Second {
		t.Errorf("Session.AckTimeout = %s, want 10s", cfg.Session.AckTimeout)
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("NATS.URL = %q", cfg.NATS.URL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
session:
  ack_timeout: 30s
nats:
  url: nats://cluster.internal:4222
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.AckTimeout != 30*time.Second {
		t.Errorf("Session.AckTimeout = %s, want 30s", cfg.Session.AckTimeout)
	}
	if cfg.NATS.URL != "nats://cluster.internal:4222" {
		t.Errorf("NATS.URL = %q", cfg.NATS.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("Breaker.FailureThreshold = %d, want 5", cfg.Breaker.FailureThreshold)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("nats:\n  url: nats://from-file:4222\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("STREAMGATE_NATS_URL", "nats://from-env:4222")
	t.Setenv("STREAMGATE_SESSION_ACK_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NATS.URL != "nats://from-env:4222" {
		t.Errorf("NATS.URL = %q, env must win over file", cfg.NATS.URL)
	}
	if cfg.Session.AckTimeout != 45*time.Second {
		t.Errorf("Session.AckTimeout = %s, want 45s", cfg.Session.AckTimeout)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"STREAMGATE_NATS_URL", "nats.url"},
		{"STREAMGATE_SESSION_ACK_TIMEOUT", "session.ack_timeout"},
		{"STREAMGATE_LOGGING_LEVEL", "logging.level"},
		{"STREAMGATE_BREAKER_FAILURE_THRESHOLD", "breaker.failure_threshold"},
		{"STREAMGATE_CONFIG_PATH", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ack timeout", func(c *Config) { c.Session.AckTimeout = 0 }},
		{"negative grace", func(c *Config) { c.Session.TerminationGrace = -time.Second }},
		{"zero emitter rate", func(c *Config) { c.Emitter.PerSecond = 0 }},
		{"empty nats url", func(c *Config) { c.NATS.URL = "" }},
		{"http nats url", func(c *Config) { c.NATS.URL = "http://example.com" }},
		{"zero breaker threshold", func(c *Config) { c.Breaker.FailureThreshold = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidateSkipsDisabledSections(t *testing.T) {
	cfg := defaultConfig()
	cfg.NATS.Enabled = false
	cfg.NATS.URL = ""
	cfg.Breaker.Enabled = false
	cfg.Breaker.FailureThreshold = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled sections must not be validated: %v", err)
	}
}
