// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package main is the entry point for the Streamgate gateway.
//
// Streamgate terminates streaming connections for a cluster of entity
// services: each connection gets a session actor that authorizes,
// filters and rate-limits the cluster's event feeds, collects command
// acknowledgements and keeps the cluster's subscription routing in sync.
//
// # Startup order
//
//  1. Configuration: defaults, optional YAML file, STREAMGATE_ env vars
//  2. Logging: zerolog, configured from the logging section
//  3. Cluster registry: NATS connection (or in-process for single-node)
//  4. Session manager: owns the per-connection session actors
//  5. Supervisor tree: session and cluster layers under one root
//
// # Signal handling
//
// SIGINT and SIGTERM cancel the root context; the supervisor tree then
// stops every session, which removes its cluster routing on the way out.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/meridianhq/streamgate/internal/config"
	"github.com/meridianhq/streamgate/internal/logging"
	"github.com/meridianhq/streamgate/internal/pubsub"
	"github.com/meridianhq/streamgate/internal/session"
	gwsignal "github.com/meridianhq/streamgate/internal/signal"
	"github.com/meridianhq/streamgate/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Bool("nats_enabled", cfg.NATS.Enabled).
		Str("log_level", cfg.Logging.Level).
		Msg("starting streamgate")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager, monitor, cleanup, err := buildSessionManager(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build session manager")
	}
	defer cleanup()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}
	tree.AddSessionService(manager)
	if monitor != nil {
		tree.AddClusterService(monitor)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	logging.Info().Msg("gateway stopped")
}

// buildSessionManager wires the cluster registry, the dispatcher and the
// session manager from configuration. The returned monitor supervises
// broker health and is nil in single-node mode; the cleanup closes the
// broker connection.
func buildSessionManager(cfg *config.Config) (*session.Manager, *pubsub.ClusterMonitor, func(), error) {
	opts := session.Options{
		AckTimeout:       cfg.Session.AckTimeout,
		TerminationGrace: cfg.Session.TerminationGrace,
	}

	if !cfg.NATS.Enabled {
		// Single-node mode: signals loop back through the manager, so
		// live subscribers on this node still receive them.
		logging.Info().Msg("NATS disabled, running with in-process registry")
		registry := pubsub.NewMemoryRegistry()
		loop := &loopbackDispatcher{}
		manager := session.NewManager(loop, registry, opts)
		loop.manager = manager
		return manager, nil, func() {}, nil
	}

	natsRegistry, err := pubsub.NewNATSRegistry(pubsub.NATSConfig{
		URL:           cfg.NATS.URL,
		Name:          cfg.NATS.Name,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var registry pubsub.Registry = natsRegistry
	var breakerState pubsub.BreakerState
	if cfg.Breaker.Enabled {
		breaker := pubsub.NewBreakerRegistry(natsRegistry, pubsub.BreakerConfig{
			Name:             "cluster-registry",
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		})
		registry = breaker
		breakerState = breaker
	}

	manager := session.NewManager(natsRegistry.Dispatcher(), registry, opts)
	monitor := pubsub.NewClusterMonitor(natsRegistry, breakerState, pubsub.DefaultMonitorInterval)
	return manager, monitor, natsRegistry.Close, nil
}

// loopbackDispatcher routes dispatched signals straight back into the
// session manager. Used when no cluster broker is configured.
type loopbackDispatcher struct {
	manager *session.Manager
}

func (d *loopbackDispatcher) Dispatch(sig gwsignal.Signal) {
	d.manager.Route(sig)
}
