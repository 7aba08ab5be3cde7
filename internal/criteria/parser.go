// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package criteria

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseError describes a rejected filter expression.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter parse error at position %d: %s", e.Pos, e.Message)
}

// Parse converts a filter expression into a criteria tree.
func Parse(input string) (Criteria, error) {
	p := &parser{input: input}
	p.skipSpace()
	crit, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, p.errorf("unexpected trailing input %q", p.input[p.pos:])
	}
	return crit, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Pos: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) expect(ch byte) error {
	if p.pos >= len(p.input) || p.input[p.pos] != ch {
		return p.errorf("expected %q", string(ch))
	}
	p.pos++
	return nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			p.pos++
			continue
		}
		break
	}
	return p.input[start:p.pos]
}

func (p *parser) parseExpr() (Criteria, error) {
	p.skipSpace()
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected predicate name")
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}

	var crit Criteria
	var err error
	switch name {
	case "and", "or":
		crit, err = p.parseConnective(name)
	case "not":
		var child Criteria
		if child, err = p.parseExpr(); err == nil {
			crit = &notCriteria{child: child}
		}
	case "eq", "ne", "gt", "ge", "lt", "le":
		crit, err = p.parseComparison(name)
	case "in":
		crit, err = p.parseIn()
	case "exists":
		var path string
		if path, err = p.parsePath(); err == nil {
			crit = &existsCriteria{path: path}
		}
	case "like":
		crit, err = p.parseLike()
	default:
		return nil, p.errorf("unknown predicate %q", name)
	}
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return crit, nil
}

func (p *parser) parseConnective(name string) (Criteria, error) {
	var children []Criteria
	for {
		child, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		p.skipSpace()
		if p.pos < len(p.input) && p.input[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}
	if name == "and" {
		return &andCriteria{children: children}, nil
	}
	return &orCriteria{children: children}, nil
}

func (p *parser) parseComparison(name string) (Criteria, error) {
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	ops := map[string]comparison{
		"eq": cmpEq, "ne": cmpNe, "gt": cmpGt, "ge": cmpGe, "lt": cmpLt, "le": cmpLe,
	}
	return &compareCriteria{op: ops[name], path: path, value: value}, nil
}

func (p *parser) parseIn() (Criteria, error) {
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	var values []any
	for {
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ',' {
			break
		}
		p.pos++
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, p.errorf("in() requires at least one value")
	}
	return &inCriteria{path: path, values: values}, nil
}

func (p *parser) parseLike() (Criteria, error) {
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	pattern, ok := value.(string)
	if !ok {
		return nil, p.errorf("like() requires a string pattern")
	}
	return &likeCriteria{path: path, pattern: pattern}, nil
}

func (p *parser) parsePath() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == ',' || c == ')' || c == '(' || unicode.IsSpace(rune(c)) {
			break
		}
		p.pos++
	}
	path := p.input[start:p.pos]
	if path == "" {
		return "", p.errorf("expected field path")
	}
	if strings.ContainsAny(path, "'\"") {
		return "", p.errorf("field path %q must not be quoted", path)
	}
	return path, nil
}

func (p *parser) parseValue() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, p.errorf("expected value")
	}
	switch c := p.input[p.pos]; {
	case c == '\'' || c == '"':
		return p.parseString(c)
	case c == '-' || c >= '0' && c <= '9':
		return p.parseNumber()
	default:
		word := p.ident()
		switch word {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		return nil, p.errorf("invalid value %q", word)
	}
}

func (p *parser) parseString(quote byte) (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '\\' && p.pos+1 < len(p.input) {
			sb.WriteByte(p.input[p.pos+1])
			p.pos += 2
			continue
		}
		if c == quote {
			p.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) parseNumber() (any, error) {
	start := p.pos
	if p.input[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			p.pos++
			continue
		}
		break
	}
	n, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", p.input[start:p.pos])
	}
	return n, nil
}
