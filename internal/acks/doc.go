// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

// Package acks aggregates end-to-end acknowledgements for dispatched
// commands.
//
// A Collector is spawned per outstanding command carrying requested acks.
// It gathers one outcome per expected label and reports a single aggregate:
// success when every label acknowledged successfully, failure on the first
// error signal, or a timeout aggregate marking the labels still missing at
// the deadline. The Router maps correlation ids to live collectors so the
// session's outbound pipeline can forward late acknowledgements, falling
// back to direct publish when no collector exists.
package acks
