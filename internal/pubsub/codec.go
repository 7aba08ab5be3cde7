// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/meridianhq/streamgate/internal/signal"
)

// wireEnvelope carries a signal across the cluster with an explicit kind
// discriminator for the tagged union.
type wireEnvelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

const (
	wireCommand         = "command"
	wireResponse        = "response"
	wireEvent           = "event"
	wireAcknowledgement = "acknowledgement"
	wireError           = "error"
)

// EncodeSignal marshals a signal into its cluster wire form.
func EncodeSignal(sig signal.Signal) ([]byte, error) {
	var kind string
	switch sig.(type) {
	case *signal.Command:
		kind = wireCommand
	case *signal.Response:
		kind = wireResponse
	case *signal.Event:
		kind = wireEvent
	case *signal.Acknowledgement:
		kind = wireAcknowledgement
	case *signal.ErrorSignal:
		kind = wireError
	default:
		return nil, fmt.Errorf("pubsub: cannot encode signal type %T", sig)
	}

	body, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("pubsub: encode %s body: %w", kind, err)
	}
	return json.Marshal(wireEnvelope{Kind: kind, Body: body})
}

// DecodeSignal unmarshals a cluster wire form back into a signal.
func DecodeSignal(data []byte) (signal.Signal, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("pubsub: decode envelope: %w", err)
	}

	var sig signal.Signal
	switch env.Kind {
	case wireCommand:
		sig = &signal.Command{}
	case wireResponse:
		sig = &signal.Response{}
	case wireEvent:
		sig = &signal.Event{}
	case wireAcknowledgement:
		sig = &signal.Acknowledgement{}
	case wireError:
		sig = &signal.ErrorSignal{}
	default:
		return nil, fmt.Errorf("pubsub: unknown signal kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Body, sig); err != nil {
		return nil, fmt.Errorf("pubsub: decode %s body: %w", env.Kind, err)
	}
	return sig, nil
}
