// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package criteria

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/meridianhq/streamgate/internal/signal"
)

// Criteria is a boolean predicate tree over event attributes.
type Criteria interface {
	// Matches evaluates the tree against an event. Missing paths make
	// comparison predicates false, never an error.
	Matches(ev *signal.Event) bool
}

// Synthetic path heads resolvable without descending into the payload.
const (
	pathEntityID  = "entityId"
	pathNamespace = "namespace"
	pathTopic     = "topic"
)

type andCriteria struct{ children []Criteria }

type orCriteria struct{ children []Criteria }

type notCriteria struct{ child Criteria }

func (c *andCriteria) Matches(ev *signal.Event) bool {
	for _, child := range c.children {
		if !child.Matches(ev) {
			return false
		}
	}
	return true
}

func (c *orCriteria) Matches(ev *signal.Event) bool {
	for _, child := range c.children {
		if child.Matches(ev) {
			return true
		}
	}
	return false
}

func (c *notCriteria) Matches(ev *signal.Event) bool {
	return !c.child.Matches(ev)
}

type comparison int

const (
	cmpEq comparison = iota
	cmpNe
	cmpGt
	cmpGe
	cmpLt
	cmpLe
)

type compareCriteria struct {
	op    comparison
	path  string
	value any
}

func (c *compareCriteria) Matches(ev *signal.Event) bool {
	got, ok := ResolvePath(ev, c.path)
	if !ok {
		// Absent values satisfy only the not-equal predicate.
		return c.op == cmpNe
	}
	switch c.op {
	case cmpEq:
		return equalValues(got, c.value)
	case cmpNe:
		return !equalValues(got, c.value)
	default:
		order, comparable := compareValues(got, c.value)
		if !comparable {
			return false
		}
		switch c.op {
		case cmpGt:
			return order > 0
		case cmpGe:
			return order >= 0
		case cmpLt:
			return order < 0
		default:
			return order <= 0
		}
	}
}

type inCriteria struct {
	path   string
	values []any
}

func (c *inCriteria) Matches(ev *signal.Event) bool {
	got, ok := ResolvePath(ev, c.path)
	if !ok {
		return false
	}
	for _, v := range c.values {
		if equalValues(got, v) {
			return true
		}
	}
	return false
}

type existsCriteria struct{ path string }

func (c *existsCriteria) Matches(ev *signal.Event) bool {
	_, ok := ResolvePath(ev, c.path)
	return ok
}

type likeCriteria struct {
	path    string
	pattern string
}

func (c *likeCriteria) Matches(ev *signal.Event) bool {
	got, ok := ResolvePath(ev, c.path)
	if !ok {
		return false
	}
	s, isString := got.(string)
	return isString && wildcardMatch(c.pattern, s)
}

// ResolvePath returns the value addressed by path, either a synthetic
// event field or a descent into the JSON payload. Subscription extra-field
// enrichment shares this resolution with predicate evaluation.
func ResolvePath(ev *signal.Event, path string) (any, bool) {
	switch path {
	case pathEntityID:
		return ev.EntityID, true
	case pathNamespace:
		ns := signal.NamespaceOf(ev.EntityID)
		return ns, ns != ""
	case pathTopic:
		return ev.Type, true
	}

	if len(ev.Payload) == 0 {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal(ev.Payload, &doc); err != nil {
		return nil, false
	}
	current := doc
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		obj, isObj := current.(map[string]any)
		if !isObj {
			return nil, false
		}
		next, present := obj[seg]
		if !present {
			return nil, false
		}
		current = next
	}
	return current, true
}

func equalValues(got, want any) bool {
	if order, comparable := compareValues(got, want); comparable {
		return order == 0
	}
	return got == nil && want == nil
}

// compareValues orders two scalar values. JSON numbers arrive as float64;
// everything else compares as string or bool equality only.
func compareValues(got, want any) (int, bool) {
	switch g := got.(type) {
	case float64:
		w, ok := toFloat(want)
		if !ok {
			return 0, false
		}
		switch {
		case g < w:
			return -1, true
		case g > w:
			return 1, true
		default:
			return 0, true
		}
	case string:
		w, ok := want.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(g, w), true
	case bool:
		w, ok := want.(bool)
		if !ok || g != w {
			return 1, ok
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// wildcardMatch matches s against pattern where '*' spans any run of
// characters.
func wildcardMatch(pattern, s string) bool {
	segments := strings.Split(pattern, "*")
	if len(segments) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, segments[0]) {
		return false
	}
	s = s[len(segments[0]):]
	for _, seg := range segments[1 : len(segments)-1] {
		idx := strings.Index(s, seg)
		if idx < 0 {
			return false
		}
		s = s[idx+len(seg):]
	}
	return strings.HasSuffix(s, segments[len(segments)-1])
}
