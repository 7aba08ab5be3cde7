// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package pubsub

import (
	"testing"

	"github.com/meridianhq/streamgate/internal/signal"
)

func TestDispatchSubjects(t *testing.T) {
	tests := []struct {
		name string
		sig  signal.Signal
		want []string
	}{
		{
			name: "twin command goes to dispatch only",
			sig: &signal.Command{
				Headers:  signal.Headers{ReadGranted: []string{"subject:alice"}},
				Kind:     signal.KindModify,
				EntityID: "org.acme:s1",
			},
			want: []string{DispatchSubject},
		},
		{
			name: "message command fans out to granted readers",
			sig: &signal.Command{
				Headers:  signal.Headers{ReadGranted: []string{"subject:alice", "subject:bob"}},
				Kind:     signal.KindMessage,
				EntityID: "org.acme:s1",
			},
			want: []string{
				DispatchSubject,
				Subject(signal.CategoryMessages, "subject:alice"),
				Subject(signal.CategoryMessages, "subject:bob"),
			},
		},
		{
			name: "live command fans out on the live-command feed",
			sig: &signal.Command{
				Headers: signal.Headers{
					Channel:     signal.ChannelLive,
					ReadGranted: []string{"subject:alice"},
				},
				Kind:     signal.KindQuery,
				EntityID: "org.acme:s1",
			},
			want: []string{
				DispatchSubject,
				Subject(signal.CategoryLiveCommands, "subject:alice"),
			},
		},
		{
			name: "event fans out without the dispatch subject",
			sig: &signal.Event{
				Headers:  signal.Headers{ReadGranted: []string{"subject:alice"}},
				EntityID: "org.acme:s1",
			},
			want: []string{Subject(signal.CategoryEvents, "subject:alice")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dispatchSubjects(tt.sig)
			if len(got) != len(tt.want) {
				t.Fatalf("subjects = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("subjects[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
