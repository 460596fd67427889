// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"

	"github.com/pdiddy/pack-sync/internal/store"
)

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, collection string) (Pack, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, collection string) (Pack, error) {
	return f(ctx, collection)
}

// StoreResolver resolves collections against the packs in db.
func StoreResolver(db *store.DB) Resolver {
	return ResolverFunc(func(ctx context.Context, collection string) (Pack, error) {
		p, err := db.Pack(ctx, collection)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}
