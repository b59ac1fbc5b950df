// Package query compiles Lucene-style filter strings ("type:host AND region:ap-*")
// into predicates over label sets.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/grindlemire/go-lucene"
	"github.com/grindlemire/go-lucene/pkg/lucene/expr"
)

// DefaultField is matched by bare terms
const DefaultField = "name"

// Filter is a compiled query
type Filter struct {
	source string
	match  func(labels map[string]string) bool
}

// Compile parses q. An empty query matches everything.
func Compile(q string) (*Filter, error) {
	q = strings.TrimSpace(q)
	if q == "" || q == "*" {
		return &Filter{source: q, match: func(map[string]string) bool { return true }}, nil
	}

	parsed, err := lucene.Parse(q)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", q, err)
	}
	match, err := compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", q, err)
	}
	return &Filter{source: q, match: match}, nil
}

// String returns the source query
func (f *Filter) String() string {
	return f.source
}

// Match reports whether labels satisfy the filter. Field names and values compare case-insensitively.
func (f *Filter) Match(labels map[string]string) bool {
	lowered := make(map[string]string, len(labels))
	for k, v := range labels {
		lowered[strings.ToLower(k)] = strings.ToLower(v)
	}
	return f.match(lowered)
}

type predicate func(labels map[string]string) bool

func compile(e *expr.Expression) (predicate, error) {
	switch e.Op {
	case expr.And, expr.Or:
		left, err := operand(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := operand(e.Right)
		if err != nil {
			return nil, err
		}
		if e.Op == expr.And {
			return func(l map[string]string) bool { return left(l) && right(l) }, nil
		}
		return func(l map[string]string) bool { return left(l) || right(l) }, nil

	case expr.Not:
		inner, err := operand(e.Right)
		if err != nil {
			inner, err = operand(e.Left)
		}
		if err != nil {
			return nil, err
		}
		return func(l map[string]string) bool { return !inner(l) }, nil

	case expr.Equals:
		field, err := column(e.Left)
		if err != nil {
			return nil, err
		}
		value, err := literal(e.Right)
		if err != nil {
			return nil, err
		}
		if strings.ContainsAny(value, "*?") {
			return wildcard(field, value)
		}
		return func(l map[string]string) bool {
			v, ok := l[field]
			return ok && v == value
		}, nil

	case expr.Like:
		field, err := column(e.Left)
		if err != nil {
			return nil, err
		}
		right, ok := e.Right.(*expr.Expression)
		if !ok || right.Op != expr.Wild {
			return nil, fmt.Errorf("expected a wildcard pattern for %s", field)
		}
		pattern, ok := right.Left.(string)
		if !ok {
			return nil, fmt.Errorf("expected a wildcard pattern for %s", field)
		}
		return wildcard(field, pattern)

	case expr.Wild:
		pattern, ok := e.Left.(string)
		if !ok {
			return nil, fmt.Errorf("unsupported wildcard term")
		}
		return wildcard(DefaultField, pattern)

	case expr.Literal:
		term := strings.ToLower(unquote(fmt.Sprint(e.Left)))
		return func(l map[string]string) bool {
			return strings.Contains(l[DefaultField], term)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported expression %v", e.Op)
	}
}

func operand(v interface{}) (predicate, error) {
	e, ok := v.(*expr.Expression)
	if !ok || e == nil {
		return nil, fmt.Errorf("expected an expression, got %T", v)
	}
	return compile(e)
}

func column(v interface{}) (string, error) {
	e, ok := v.(*expr.Expression)
	if ok && e.Op == expr.Literal {
		if col, ok := e.Left.(expr.Column); ok {
			return strings.ToLower(string(col)), nil
		}
	}
	return "", fmt.Errorf("expected a field name")
}

func literal(v interface{}) (string, error) {
	e, ok := v.(*expr.Expression)
	if !ok || e.Op != expr.Literal {
		return "", fmt.Errorf("expected a value")
	}
	return strings.ToLower(unquote(fmt.Sprint(e.Left))), nil
}

func wildcard(field, pattern string) (predicate, error) {
	re, err := regexp.Compile("^" + wildcardToRegex(strings.ToLower(unquote(pattern))) + "$")
	if err != nil {
		return nil, fmt.Errorf("invalid wildcard %q: %w", pattern, err)
	}
	return func(l map[string]string) bool {
		v, ok := l[field]
		return ok && re.MatchString(v)
	}, nil
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// wildcardToRegex converts shell-style wildcards to an unanchored regex
func wildcardToRegex(s string) string {
	var r strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*':
			r.WriteString(".*")
		case '?':
			r.WriteByte('.')
		case '.', '+', '(', ')', '[', ']', '{', '}', '|', '^', '$', '\\':
			r.WriteByte('\\')
			r.WriteByte(s[i])
		default:
			r.WriteByte(s[i])
		}
	}
	return r.String()
}
