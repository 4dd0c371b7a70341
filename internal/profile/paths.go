package profile

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoData is the single "no data" sentinel for path resolution. Every
// broken path, out-of-range index, nil value and empty string resolves to it.
var ErrNoData = errors.New("profile: no data")

var bracketRe = regexp.MustCompile(`\[(.*?)\]`)

// parsePath converts "a.b[0].c" and "work[experience][0].title" into
// traversal segments; digit segments become list indices.
func parsePath(path string) []any {
	normalized := bracketRe.ReplaceAllString(path, ".$1")
	var parts []any
	for _, part := range strings.Split(normalized, ".") {
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil && !strings.ContainsAny(part, "+-") {
			parts = append(parts, idx)
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

// Resolve walks the raw document by dot + bracket notation and returns the
// value at the path. Any failure to traverse yields ErrNoData.
func (p *Profile) Resolve(path string) (any, error) {
	return resolveNested(p.raw, path)
}

// ResolveString resolves a path to a non-empty string rendering; numbers
// format without an exponent.
func (p *Profile) ResolveString(path string) (string, error) {
	v, err := p.Resolve(path)
	if err != nil {
		return "", err
	}
	s := Stringify(v)
	if s == "" {
		return "", ErrNoData
	}
	return s, nil
}

func resolveNested(doc any, path string) (any, error) {
	acc := doc
	for _, key := range parsePath(path) {
		if acc == nil {
			return nil, ErrNoData
		}
		switch node := acc.(type) {
		case map[string]any:
			name, ok := key.(string)
			if !ok {
				name = strconv.Itoa(key.(int))
			}
			acc, ok = node[name]
			if !ok {
				return nil, ErrNoData
			}
		case []any:
			idx, ok := key.(int)
			if !ok || idx < 0 || idx >= len(node) {
				return nil, ErrNoData
			}
			acc = node[idx]
		default:
			return nil, ErrNoData
		}
	}
	if acc == nil {
		return nil, ErrNoData
	}
	return acc, nil
}

// Stringify renders a resolved document value as an answer string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := Stringify(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}
