// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package packindex

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pack-sync/internal/identity"
	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/pkg/types"
)

type fakeLister struct {
	entries []types.IndexEntry
	err     error
}

func (f *fakeLister) Collection() string  { return "l5r5e.core-bonds" }
func (f *fakeLister) DefaultType() string { return "Item" }
func (f *fakeLister) Index(context.Context) ([]types.IndexEntry, error) {
	return f.entries, f.err
}

var norm = identity.Normalizer{RemoveDiacritics: true, CollapseWhitespace: true}

func TestBuildFirstSeenWins(t *testing.T) {
	var buf bytes.Buffer
	l := &fakeLister{entries: []types.IndexEntry{
		{ID: "A", Name: "Bushido", Type: "bond"},
		{ID: "B", Name: "bushidō ", Type: "bond"},
		{ID: "C", Name: "Bushido", Type: "title"},
		{ID: "D", Name: "BUSHIDO", Type: "bond"},
		{ID: "E", Name: "Untyped"},
	}}

	idx, err := Build(context.Background(), l, norm, notify.New(&buf, types.VerbosityNormal))
	require.NoError(t, err)

	id, ok := idx.Lookup("bushido::bond")
	assert.True(t, ok)
	assert.Equal(t, "A", id)

	id, _ = idx.Lookup("bushido::title")
	assert.Equal(t, "C", id)

	id, _ = idx.Lookup("untyped::Item")
	assert.Equal(t, "E", id, "missing type falls back to the pack default")

	for _, want := range []string{"A", "B", "C", "D", "E"} {
		assert.True(t, idx.HasID(want), want)
	}
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, 3, idx.Keys())
	assert.Equal(t, []string{"B", "D"}, idx.Duplicates["bushido::bond"])
	assert.Equal(t, 2, idx.DuplicateCount())
	assert.Contains(t, buf.String(), "warning: duplicate names in pack l5r5e.core-bonds")
	assert.Contains(t, buf.String(), "bushido::bond -> A (also B, D)")
}

func TestBuildNoDuplicatesNoWarning(t *testing.T) {
	var buf bytes.Buffer
	l := &fakeLister{entries: []types.IndexEntry{{ID: "A", Name: "Kata", Type: "technique"}}}

	idx, err := Build(context.Background(), l, norm, notify.New(&buf, types.VerbosityNormal))
	require.NoError(t, err)
	assert.Empty(t, idx.Duplicates)
	assert.Empty(t, buf.String())
}

func TestBuildListingError(t *testing.T) {
	l := &fakeLister{err: errors.New("disk gone")}
	_, err := Build(context.Background(), l, norm, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing pack l5r5e.core-bonds")
}

func TestRegister(t *testing.T) {
	idx := New()
	idx.Register("A", "kata::technique")
	idx.Register("B", "kata::technique")

	assert.True(t, idx.HasID("A"))
	assert.True(t, idx.HasID("B"))
	id, ok := idx.Lookup("kata::technique")
	assert.True(t, ok)
	assert.Equal(t, "A", id, "registration never steals a taken key")

	_, ok = idx.Lookup("kiho::technique")
	assert.False(t, ok)
}
