// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package patch builds sparse update documents from source records and
// merges them into stored ones.
package patch

import (
	"github.com/pdiddy/pack-sync/internal/fieldpath"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// Build copies the value at each path present in src into a fresh record
// at the same path. Paths absent from src are skipped entirely, so the
// patch never clears a field. Values are deep-copied and src is not
// modified. An empty path list yields an empty record.
func Build(src types.Record, paths []fieldpath.Path) types.Record {
	out := types.Record{}
	for _, p := range paths {
		v, ok := p.Get(src)
		if !ok {
			continue
		}
		p.Set(out, types.CloneValue(v))
	}
	return out
}

// Merge deep-merges src into dst: nested objects are merged key by key,
// every other value (including arrays and nulls) overwrites. Values taken
// from src are copied so later edits to src do not leak into dst.
func Merge(dst, src types.Record) {
	mergeMaps(dst, src)
}

func mergeMaps(dst, src map[string]any) {
	for k, sv := range src {
		srcMap, srcIsMap := sv.(map[string]any)
		if srcIsMap {
			if dstMap, ok := dst[k].(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[k] = types.CloneValue(sv)
	}
}
