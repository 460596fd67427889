// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fieldpath addresses nested fields of a record with dotted paths
// such as "system.description".
package fieldpath

import (
	"fmt"
	"strings"

	"github.com/pdiddy/pack-sync/pkg/types"
)

// Path is a parsed dotted field path. Each element is one object key.
type Path []string

// Parse splits a dotted path. Empty paths and empty segments ("a..b",
// ".a") are rejected.
func Parse(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty field path")
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("field path %q has an empty segment", s)
		}
	}
	return Path(segs), nil
}

// ParseAll parses every path in list, failing on the first invalid one.
func ParseAll(list []string) ([]Path, error) {
	paths := make([]Path, 0, len(list))
	for _, s := range list {
		p, err := Parse(s)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dotted form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Get returns the value at p. A missing key, or an intermediate value
// that is not an object, reports ok=false. An explicit null is present
// and returns (nil, true).
func (p Path) Get(rec types.Record) (any, bool) {
	if len(p) == 0 {
		return nil, false
	}
	var cur any = map[string]any(rec)
	for _, seg := range p {
		m, isMap := asMap(cur)
		if !isMap {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Set stores v at p, creating intermediate objects as needed. An
// intermediate that exists but is not an object is replaced by one.
func (p Path) Set(rec types.Record, v any) {
	if len(p) == 0 || rec == nil {
		return
	}
	cur := map[string]any(rec)
	last := len(p) - 1
	for _, seg := range p[:last] {
		next, ok := asMap(cur[seg])
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[p[last]] = v
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, t != nil
	case types.Record:
		return map[string]any(t), t != nil
	default:
		return nil, false
	}
}
