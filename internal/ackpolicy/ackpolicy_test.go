// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package ackpolicy

import (
	"testing"

	"github.com/meridianhq/streamgate/internal/signal"
)

func TestDefaultInjection(t *testing.T) {
	cases := []struct {
		name string
		cmd  *signal.Command
		want []signal.AckRequest
	}{
		{
			"modifying twin command",
			&signal.Command{Kind: signal.KindModify, Headers: signal.Headers{ResponseRequired: true}},
			[]signal.AckRequest{signal.AckTwinPersisted},
		},
		{
			"message command",
			&signal.Command{Kind: signal.KindMessage, Headers: signal.Headers{ResponseRequired: true}},
			[]signal.AckRequest{signal.AckLiveResponse},
		},
		{
			"live modify command",
			&signal.Command{Kind: signal.KindModify, Headers: signal.Headers{ResponseRequired: true, Channel: signal.ChannelLive}},
			[]signal.AckRequest{signal.AckLiveResponse},
		},
		{
			"live query command",
			&signal.Command{Kind: signal.KindQuery, Headers: signal.Headers{ResponseRequired: true, Channel: signal.ChannelLive}},
			[]signal.AckRequest{signal.AckLiveResponse},
		},
		{
			"twin query command untouched",
			&signal.Command{Kind: signal.KindQuery, Headers: signal.Headers{ResponseRequired: true}},
			nil,
		},
		{
			"no response required untouched",
			&signal.Command{Kind: signal.KindModify, Headers: signal.Headers{}},
			nil,
		},
		{
			"explicit requests preserved",
			&signal.Command{Kind: signal.KindModify, Headers: signal.Headers{
				ResponseRequired: true,
				RequestedAcks:    []signal.AckRequest{signal.AckSearchPersisted},
			}},
			[]signal.AckRequest{signal.AckSearchPersisted},
		},
	}

	inject := Default()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inject(tc.cmd).Headers.RequestedAcks
			if len(got) != len(tc.want) {
				t.Fatalf("requested acks = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("requested acks = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestDefaultDoesNotMutateOriginal(t *testing.T) {
	cmd := &signal.Command{Kind: signal.KindModify, Headers: signal.Headers{ResponseRequired: true}}
	Default()(cmd)
	if len(cmd.Headers.RequestedAcks) != 0 {
		t.Error("injection mutated the original command")
	}
}

func TestNone(t *testing.T) {
	cmd := &signal.Command{Kind: signal.KindModify, Headers: signal.Headers{ResponseRequired: true}}
	if got := None()(cmd); got != cmd {
		t.Error("None must return the command unchanged")
	}
}
