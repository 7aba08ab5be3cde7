// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateSession,
		c.validateEmitter,
		c.validateNATS,
		c.validateBreaker,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.AckTimeout <= 0 {
		return fmt.Errorf("session.ack_timeout must be positive, got %s", c.Session.AckTimeout)
	}
	if c.Session.TerminationGrace < 0 {
		return fmt.Errorf("session.termination_grace must not be negative, got %s",
			c.Session.TerminationGrace)
	}
	return nil
}

func (c *Config) validateEmitter() error {
	if c.Emitter.PerSecond <= 0 {
		return fmt.Errorf("emitter.per_second must be positive, got %v", c.Emitter.PerSecond)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.enabled is true")
	}
	u, err := url.Parse(c.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats.url is not a valid URL: %w", err)
	}
	if !strings.HasPrefix(u.Scheme, "nats") && u.Scheme != "tls" {
		return fmt.Errorf("nats.url must use a nats:// or tls:// scheme, got %q", u.Scheme)
	}
	if c.NATS.MaxReconnects < -1 {
		return fmt.Errorf("nats.max_reconnects must be -1 (unlimited) or greater, got %d",
			c.NATS.MaxReconnects)
	}
	if c.NATS.ReconnectWait <= 0 {
		return fmt.Errorf("nats.reconnect_wait must be positive, got %s", c.NATS.ReconnectWait)
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if !c.Breaker.Enabled {
		return nil
	}
	if c.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("breaker.failure_threshold must be at least 1")
	}
	if c.Breaker.Timeout <= 0 {
		return fmt.Errorf("breaker.timeout must be positive, got %s", c.Breaker.Timeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal; got %q",
			c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
