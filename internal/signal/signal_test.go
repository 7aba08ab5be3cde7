// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package signal

import "testing"

func TestNamespaceOf(t *testing.T) {
	cases := []struct {
		entityID string
		want     string
	}{
		{"org.acme:thing1", "org.acme"},
		{"org.other:thing2", "org.other"},
		{"no-namespace", ""},
		{":leading", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NamespaceOf(tc.entityID); got != tc.want {
			t.Errorf("NamespaceOf(%q) = %q, want %q", tc.entityID, got, tc.want)
		}
	}
}

func TestIsAuthorized(t *testing.T) {
	ctx := NewAuthorizationContext("sub:alice", "sub:team")

	cases := []struct {
		name    string
		granted []string
		revoked []string
		want    bool
	}{
		{"granted match", []string{"sub:alice"}, nil, true},
		{"second subject match", []string{"sub:team"}, nil, true},
		{"no match", []string{"sub:bob"}, nil, false},
		{"revoked wins", []string{"sub:alice"}, []string{"sub:team"}, false},
		{"revoked without grant", nil, []string{"sub:alice"}, false},
		{"empty grants", nil, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ctx.IsAuthorized(tc.granted, tc.revoked); got != tc.want {
				t.Errorf("IsAuthorized(%v, %v) = %v, want %v", tc.granted, tc.revoked, got, tc.want)
			}
		})
	}
}

func TestAuthorizationContextEqual(t *testing.T) {
	a := NewAuthorizationContext("sub:alice", "sub:team")

	if !a.Equal(NewAuthorizationContext("sub:alice", "sub:team")) {
		t.Error("identical contexts should be equal")
	}
	if a.Equal(NewAuthorizationContext("sub:team", "sub:alice")) {
		t.Error("reordered contexts count as changed")
	}
	if a.Equal(NewAuthorizationContext("sub:alice")) {
		t.Error("shorter context should not be equal")
	}
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		name string
		sig  Signal
		want StreamingCategory
	}{
		{"twin event", &Event{Headers: Headers{}}, CategoryEvents},
		{"live event", &Event{Headers: Headers{Channel: ChannelLive}}, CategoryLiveEvents},
		{"message command", &Command{Kind: KindMessage}, CategoryMessages},
		{"live modify command", &Command{Kind: KindModify, Headers: Headers{Channel: ChannelLive}}, CategoryLiveCommands},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CategoryOf(tc.sig); got != tc.want {
				t.Errorf("CategoryOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, valid := range []string{"events", "live-events", "messages", "live-commands"} {
		if _, err := ParseCategory(valid); err != nil {
			t.Errorf("ParseCategory(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParseCategory("search"); err == nil {
		t.Error("ParseCategory(search) expected error")
	}
}

func TestWithHdrCopies(t *testing.T) {
	orig := &Command{Headers: Headers{CorrelationID: "a"}, Type: "modify"}
	mod := orig.WithHdr(Headers{CorrelationID: "b"})

	if orig.Headers.CorrelationID != "a" {
		t.Error("WithHdr mutated the original signal")
	}
	if mod.Hdr().CorrelationID != "b" {
		t.Error("WithHdr did not replace headers")
	}
}

func TestAcknowledgementSuccessful(t *testing.T) {
	if !(&Acknowledgement{Status: 204}).Successful() {
		t.Error("204 should be successful")
	}
	if (&Acknowledgement{Status: 503}).Successful() {
		t.Error("503 should not be successful")
	}
}
