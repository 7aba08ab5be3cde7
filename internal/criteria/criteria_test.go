// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package criteria

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/meridianhq/streamgate/internal/signal"
)

func testEvent() *signal.Event {
	payload, _ := json.Marshal(map[string]any{
		"temperature": 23.5,
		"active":      true,
		"location": map[string]any{
			"city": "Berlin",
		},
	})
	return &signal.Event{
		Headers:  signal.Headers{CorrelationID: "c-1"},
		Type:     "things.events:thingModified",
		EntityID: "org.acme:thing1",
		Payload:  payload,
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"eq(",
		"eq(namespace)",
		"eq(namespace,'org.acme'",
		"frob(namespace,'org.acme')",
		"eq(namespace,'org.acme')garbage",
		"and()",
		"in(namespace)",
		"like(entityId,42)",
		"eq(namespace,'unterminated",
		"eq('quoted',1)",
	}

	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) expected error", input)
			}
		})
	}
}

func TestParseErrorType(t *testing.T) {
	_, err := Parse("gt(payload/temperature,")
	var perr *ParseError
	if !asParseError(err, &perr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if perr.Pos == 0 && perr.Message == "" {
		t.Error("parse error should carry position and message")
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if ok {
		*target = pe
	}
	return ok
}

func TestMatches(t *testing.T) {
	ev := testEvent()

	cases := []struct {
		expr string
		want bool
	}{
		{"eq(namespace,'org.acme')", true},
		{"eq(namespace,'org.other')", false},
		{"ne(namespace,'org.other')", true},
		{"eq(entityId,'org.acme:thing1')", true},
		{"eq(topic,'things.events:thingModified')", true},
		{"gt(temperature,21)", true},
		{"gt(temperature,25)", false},
		{"ge(temperature,23.5)", true},
		{"lt(temperature,24)", true},
		{"le(temperature,23)", false},
		{"eq(active,true)", true},
		{"eq(active,false)", false},
		{"eq(location/city,'Berlin')", true},
		{"eq(location/city,'Paris')", false},
		{"exists(location/city)", true},
		{"exists(location/street)", false},
		{"in(namespace,'org.other','org.acme')", true},
		{"in(namespace,'org.other','org.misc')", false},
		{"like(entityId,'org.acme:*')", true},
		{"like(entityId,'*thing1')", true},
		{"like(entityId,'org.other:*')", false},
		{"and(eq(namespace,'org.acme'),gt(temperature,21))", true},
		{"and(eq(namespace,'org.acme'),gt(temperature,99))", false},
		{"or(eq(namespace,'org.other'),gt(temperature,21))", true},
		{"not(eq(namespace,'org.other'))", true},
		{"ne(missing/field,'x')", true},
		{"eq(missing/field,'x')", false},
		{"gt(missing/field,1)", false},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			crit, err := Parse(tc.expr)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tc.expr, err)
			}
			if got := crit.Matches(ev); got != tc.want {
				t.Errorf("Matches(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestMatchesWhitespaceTolerant(t *testing.T) {
	crit, err := Parse("and( eq(namespace, 'org.acme') , exists(location/city) )")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !crit.Matches(testEvent()) {
		t.Error("whitespace-padded expression should match")
	}
}

func TestWildcardMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"exact", "exact", true},
		{"exact", "other", false},
		{"pre*", "prefix", true},
		{"*fix", "prefix", true},
		{"p*x", "prefix", true},
		{"p*z", "prefix", false},
		{"*", "anything", true},
		{"a*b*c", "a-b-c", true},
		{"a*b*c", "a-c-b", false},
	}

	for _, tc := range cases {
		if got := wildcardMatch(tc.pattern, tc.s); got != tc.want {
			t.Errorf("wildcardMatch(%q, %q) = %v, want %v", tc.pattern, tc.s, got, tc.want)
		}
	}
}
