// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/pack-sync/internal/fieldpath"
	"github.com/pdiddy/pack-sync/pkg/types"
)

func paths(list ...string) []fieldpath.Path {
	out := make([]fieldpath.Path, len(list))
	for i, s := range list {
		out[i] = fieldpath.MustParse(s)
	}
	return out
}

func sourceRecord() types.Record {
	return types.Record{
		"_id":  "B",
		"name": "Bushido",
		"type": "bond",
		"system": map[string]any{
			"description": "<p>The way of the warrior.</p>",
			"ring":        "fire",
			"tags":        []any{"honor", "duty"},
		},
	}
}

func TestBuildCopiesOnlyListedPaths(t *testing.T) {
	src := sourceRecord()
	got := Build(src, paths("system.description"))

	assert.Equal(t, types.Record{
		"system": map[string]any{"description": "<p>The way of the warrior.</p>"},
	}, got)
}

func TestBuildSkipsAbsentPaths(t *testing.T) {
	src := types.Record{"_id": "B", "name": "Bushido", "system": map[string]any{"ring": "fire"}}
	got := Build(src, paths("system.description", "img"))

	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestBuildEmptyPaths(t *testing.T) {
	got := Build(sourceRecord(), nil)
	assert.Equal(t, types.Record{}, got)
}

func TestBuildKeepsExplicitNull(t *testing.T) {
	src := types.Record{"system": map[string]any{"description": nil}}
	got := Build(src, paths("system.description"))
	assert.Equal(t, types.Record{"system": map[string]any{"description": nil}}, got)
}

func TestBuildDoesNotAliasSource(t *testing.T) {
	src := sourceRecord()
	got := Build(src, paths("system.tags", "system"))

	got["system"].(map[string]any)["ring"] = "water"
	got["system"].(map[string]any)["tags"].([]any)[0] = "changed"

	assert.Equal(t, sourceRecord(), src)
}

func TestMerge(t *testing.T) {
	dst := types.Record{
		"_id":  "A",
		"name": "Bushido",
		"system": map[string]any{
			"description": "old",
			"ring":        "fire",
		},
		"flags": map[string]any{"core": true},
	}
	Merge(dst, types.Record{
		"_id":    "A",
		"system": map[string]any{"description": "new"},
		"img":    "bond.webp",
	})

	assert.Equal(t, types.Record{
		"_id":  "A",
		"name": "Bushido",
		"system": map[string]any{
			"description": "new",
			"ring":        "fire",
		},
		"flags": map[string]any{"core": true},
		"img":   "bond.webp",
	}, dst)
}

func TestMergeEmptyPatchChangesNothing(t *testing.T) {
	dst := sourceRecord()
	Merge(dst, types.Record{})
	assert.Equal(t, sourceRecord(), dst)
}

func TestMergeOverwritesNonObjects(t *testing.T) {
	dst := types.Record{"system": "legacy", "tags": []any{"a"}}
	Merge(dst, types.Record{"system": map[string]any{"x": 1.0}, "tags": []any{"b", "c"}})
	assert.Equal(t, types.Record{"system": map[string]any{"x": 1.0}, "tags": []any{"b", "c"}}, dst)
}
