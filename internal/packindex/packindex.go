// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package packindex builds the lookup structures used to match incoming
// records against a pack: the set of known identifiers and a map from
// match key to the first identifier seen with that key.
package packindex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/pack-sync/internal/identity"
	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// Lister is the part of a store the index is built from.
type Lister interface {
	Collection() string
	DefaultType() string
	Index(ctx context.Context) ([]types.IndexEntry, error)
}

// Index is a snapshot of a pack taken at the start of a dataset and kept
// current as records are created. It is owned by a single run and is not
// safe for concurrent use.
type Index struct {
	ids   map[string]struct{}
	names map[string]string

	// Duplicates lists, per match key, the identifiers that collided with
	// the first-seen one. It is diagnostic only.
	Duplicates map[string][]string
}

// New returns an empty index.
func New() *Index {
	return &Index{
		ids:        make(map[string]struct{}),
		names:      make(map[string]string),
		Duplicates: make(map[string][]string),
	}
}

// Build reads the full listing from l and indexes every entry. When two
// entries share a match key the first one wins and the rest are recorded
// in Duplicates and reported as a warning.
func Build(ctx context.Context, l Lister, n identity.Normalizer, r notify.Reporter) (*Index, error) {
	entries, err := l.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pack %s: %w", l.Collection(), err)
	}

	idx := New()
	defaultType := l.DefaultType()
	for _, e := range entries {
		key := n.MatchKey(e.Name, e.Type, defaultType)
		idx.ids[e.ID] = struct{}{}
		if _, seen := idx.names[key]; !seen {
			idx.names[key] = e.ID
			continue
		}
		idx.Duplicates[key] = append(idx.Duplicates[key], e.ID)
	}

	if len(idx.Duplicates) > 0 && r != nil {
		r.Warnf("duplicate names in pack %s: %s", l.Collection(), idx.describeDuplicates())
	}
	return idx, nil
}

// HasID reports whether id is known.
func (x *Index) HasID(id string) bool {
	_, ok := x.ids[id]
	return ok
}

// Lookup returns the identifier registered for key.
func (x *Index) Lookup(key string) (string, bool) {
	id, ok := x.names[key]
	return id, ok
}

// Register records a newly created identifier. The key is only mapped
// when it is not already taken, preserving first-seen ownership.
func (x *Index) Register(id, key string) {
	x.ids[id] = struct{}{}
	if _, taken := x.names[key]; !taken {
		x.names[key] = id
	}
}

// Len returns the number of known identifiers.
func (x *Index) Len() int { return len(x.ids) }

// Keys returns the number of distinct match keys.
func (x *Index) Keys() int { return len(x.names) }

// DuplicateCount returns how many entries lost a key collision.
func (x *Index) DuplicateCount() int {
	n := 0
	for _, ids := range x.Duplicates {
		n += len(ids)
	}
	return n
}

func (x *Index) describeDuplicates() string {
	keys := make([]string, 0, len(x.Duplicates))
	for k := range x.Duplicates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s -> %s (also %s)", k, x.names[k], strings.Join(x.Duplicates[k], ", ")))
	}
	return strings.Join(parts, "; ")
}
