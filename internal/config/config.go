// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package config loads and validates the gateway configuration from
// defaults, an optional YAML file and STREAMGATE_ environment variables,
// in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/streamgate/config.yaml",
	"/etc/streamgate/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "STREAMGATE_CONFIG_PATH"

// envPrefix namespaces all configuration environment variables.
const envPrefix = "STREAMGATE_"

// Config is the root gateway configuration.
type Config struct {
	Session SessionConfig `koanf:"session"`
	Emitter EmitterConfig `koanf:"emitter"`
	NATS    NATSConfig    `koanf:"nats"`
	Breaker BreakerConfig `koanf:"breaker"`
	Logging LoggingConfig `koanf:"logging"`
}

// SessionConfig bounds per-session behavior.
type SessionConfig struct {
	// AckTimeout is the deadline for acknowledgement collectors.
	AckTimeout time.Duration `koanf:"ack_timeout"`

	// TerminationGrace delays session teardown after the connection
	// closed so in-flight responses can drain.
	TerminationGrace time.Duration `koanf:"termination_grace"`
}

// EmitterConfig sets the rate-limited emitter defaults.
type EmitterConfig struct {
	// PerSecond is the default element rate for streaming emitters.
	PerSecond float64 `koanf:"per_second"`
}

// NATSConfig configures the cluster registry connection.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Name          string        `koanf:"name"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// BreakerConfig configures the circuit breaker around cluster handshakes.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before the config
// file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			AckTimeout:       10 * time.Second,
			TerminationGrace: 2 * time.Second,
		},
		Emitter: EmitterConfig{
			PerSecond: 100,
		},
		NATS: NATSConfig{
			Enabled:       true,
			URL:           "nats://127.0.0.1:4222",
			Name:          "streamgate",
			MaxReconnects: 10,
			ReconnectWait: time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          10 * time.Second,
			FailureThreshold: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, then validates it. Precedence: ENV > file >
// defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or empty.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf paths. The
// first segment after the prefix selects the section, the rest is the key:
//
//	STREAMGATE_NATS_URL            -> nats.url
//	STREAMGATE_SESSION_ACK_TIMEOUT -> session.ack_timeout
func envTransformFunc(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if s == "config_path" {
		return ""
	}
	section, key, found := strings.Cut(s, "_")
	if !found {
		return section
	}
	return section + "." + key
}
