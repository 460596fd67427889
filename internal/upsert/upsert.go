// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upsert applies source records to a pack one at a time. Each
// record is matched by name and type first, then by identifier, and is
// created when neither matches. Records are never deleted.
package upsert

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/pack-sync/internal/fieldpath"
	"github.com/pdiddy/pack-sync/internal/identity"
	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/internal/packindex"
	"github.com/pdiddy/pack-sync/internal/patch"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// ErrNoIdentity is returned for a record with neither a name nor an
// identifier; it cannot be matched and would collide with any unnamed
// record of the default type.
var ErrNoIdentity = errors.New("record has no name and no _id")

// Store is the record store capability the engine writes through.
// Get must return an error matching types.ErrNotFound for unknown ids.
type Store interface {
	Collection() string
	DefaultType() string
	Index(ctx context.Context) ([]types.IndexEntry, error)
	Get(ctx context.Context, id string) (types.Record, error)

	// Update deep-merges fields into the record with the given id.
	Update(ctx context.Context, id string, fields types.Record) error

	// Replace overwrites the record body, keeping id.
	Replace(ctx context.Context, id string, rec types.Record) error

	// CreatePreservingIdentity builds a record of the store's concrete
	// type from rec and inserts it under rec's own identifier.
	CreatePreservingIdentity(ctx context.Context, rec types.Record) (string, error)
}

// Options selects the update policy.
type Options struct {
	MatchByNameFirst bool
	PatchOnly        bool
	PatchPaths       []fieldpath.Path
	DryRun           bool
}

// NewOptions derives engine options from a sync configuration. It fails
// when a patch path is malformed.
func NewOptions(cfg types.SyncConfig) (Options, error) {
	paths, err := fieldpath.ParseAll(cfg.PatchPaths)
	if err != nil {
		return Options{}, fmt.Errorf("patch paths: %w", err)
	}
	return Options{
		MatchByNameFirst: cfg.MatchByNameFirst,
		PatchOnly:        cfg.PatchOnly,
		PatchPaths:       paths,
		DryRun:           cfg.DryRun,
	}, nil
}

// Engine upserts records into one pack. The index is updated as records
// are created, so a later record sharing a match key with an earlier
// creation resolves to it.
type Engine struct {
	store    Store
	index    *packindex.Index
	norm     identity.Normalizer
	opts     Options
	reporter notify.Reporter

	// planned holds ids "created" during a dry run, which exist only in
	// the index.
	planned map[string]struct{}
}

// New returns an engine writing to store and matching against index.
func New(store Store, index *packindex.Index, norm identity.Normalizer, opts Options, r notify.Reporter) *Engine {
	if r == nil {
		r = notify.Discard
	}
	return &Engine{
		store:    store,
		index:    index,
		norm:     norm,
		opts:     opts,
		reporter: r,
		planned:  make(map[string]struct{}),
	}
}

// Upsert applies rec and reports what happened. Errors never escape:
// a record that cannot be applied yields an OpFailed result so the
// caller can continue with the next one.
func (e *Engine) Upsert(ctx context.Context, rec types.Record) (res types.OperationResult) {
	defer func() {
		if p := recover(); p != nil {
			res = failed(rec, fmt.Errorf("panic: %v", p))
		}
	}()

	if rec == nil || (rec.Name() == "" && rec.ID() == "") {
		return failed(rec, ErrNoIdentity)
	}

	key := e.norm.RecordKey(rec, e.store.DefaultType())
	srcID := rec.ID()

	if e.opts.MatchByNameFirst {
		if targetID, ok := e.index.Lookup(key); ok {
			applied, err := e.apply(ctx, targetID, rec)
			if err != nil {
				return failed(rec, err)
			}
			if applied {
				res = types.OperationResult{Kind: types.OpNameMatched, TargetID: targetID, Name: rec.Label()}
				if srcID != "" && srcID != targetID && e.index.HasID(srcID) {
					res.ConflictID = srcID
					e.reporter.Warnf("%q matched %s by name but its id %s names another record; updated %s",
						rec.Label(), targetID, srcID, targetID)
				}
				return res
			}
		}
	}

	if srcID != "" && e.index.HasID(srcID) {
		applied, err := e.apply(ctx, srcID, rec)
		if err != nil {
			return failed(rec, err)
		}
		if applied {
			return types.OperationResult{Kind: types.OpIDMatched, TargetID: srcID, Name: rec.Label()}
		}
	}

	id, err := e.create(ctx, rec)
	if err != nil {
		return failed(rec, err)
	}
	e.index.Register(id, key)
	return types.OperationResult{Kind: types.OpCreated, TargetID: id, Name: rec.Label()}
}

// apply updates the record stored under id. It reports false without an
// error when id no longer resolves, so the caller can try the next match.
func (e *Engine) apply(ctx context.Context, id string, rec types.Record) (bool, error) {
	if _, ok := e.planned[id]; ok {
		return true, nil
	}
	if _, err := e.store.Get(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("fetching %s: %w", id, err)
	}
	if e.opts.DryRun {
		return true, nil
	}

	if e.opts.PatchOnly {
		p := patch.Build(rec, e.opts.PatchPaths)
		p[types.FieldID] = id
		if err := e.store.Update(ctx, id, p); err != nil {
			return false, fmt.Errorf("patching %s: %w", id, err)
		}
		return true, nil
	}

	if err := e.store.Replace(ctx, id, rec.Clone()); err != nil {
		return false, fmt.Errorf("replacing %s: %w", id, err)
	}
	return true, nil
}

func (e *Engine) create(ctx context.Context, rec types.Record) (string, error) {
	if e.opts.DryRun {
		if rec.ID() == "" {
			return "", fmt.Errorf("creating record: missing %s", types.FieldID)
		}
		e.planned[rec.ID()] = struct{}{}
		return rec.ID(), nil
	}
	id, err := e.store.CreatePreservingIdentity(ctx, rec.Clone())
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", rec.ID(), err)
	}
	if id == "" {
		id = rec.ID()
	}
	return id, nil
}

func failed(rec types.Record, err error) types.OperationResult {
	return types.OperationResult{Kind: types.OpFailed, Name: rec.Label(), Err: err}
}
