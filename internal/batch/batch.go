// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs a sync over a list of datasets. Each dataset is
// fetched, validated, matched against its target pack and upserted record
// by record. A problem with one dataset or record never stops the run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/pack-sync/internal/identity"
	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/internal/packindex"
	"github.com/pdiddy/pack-sync/internal/source"
	"github.com/pdiddy/pack-sync/internal/upsert"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// Pack is a target pack as seen by the runner.
type Pack interface {
	upsert.Store
	Label() string
	Locked() bool
	Unlock(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Resolver looks up the pack for a collection address. An unknown
// collection yields an error wrapping types.ErrNotFound.
type Resolver interface {
	Resolve(ctx context.Context, collection string) (Pack, error)
}

// Runner holds what a run needs. Sleep defaults to a context-aware wait.
type Runner struct {
	Fetcher  source.Fetcher
	Packs    Resolver
	Reporter notify.Reporter
	Config   types.SyncConfig

	// Sleep pauses between datasets. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run syncs each dataset in order and returns the per-dataset outcomes.
// It pauses Config.FileDelay between consecutive datasets. When ctx is
// cancelled during a pause the remaining datasets are skipped. Run fails
// only when the configuration is unusable; dataset and record problems
// are reported in the returned RunReport.
func (r *Runner) Run(ctx context.Context, datasets []string) (types.RunReport, error) {
	cfg, err := r.Config.Validate()
	if err != nil {
		return types.RunReport{}, fmt.Errorf("invalid sync configuration: %w", err)
	}
	opts, err := upsert.NewOptions(cfg)
	if err != nil {
		return types.RunReport{}, fmt.Errorf("invalid sync configuration: %w", err)
	}
	rep := r.reporter()
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	run := types.RunReport{
		RunID:    uuid.NewString(),
		Started:  time.Now(),
		Datasets: make([]types.DatasetReport, 0, len(datasets)),
	}
	rep.Infof("sync %s starting: %d dataset(s)", run.RunID, len(datasets))

	for i, name := range datasets {
		if i > 0 && cfg.FileDelay > 0 {
			if err := sleep(ctx, cfg.FileDelay); err != nil {
				rep.Warnf("sync interrupted: %v", err)
				break
			}
		}
		run.Datasets = append(run.Datasets, r.processDataset(ctx, name, cfg, opts))
	}

	run.Finished = time.Now()
	t := run.Totals()
	rep.Infof("sync complete: %d name-updated, %d id-updated, %d created, %d failed across %d dataset(s); see summary",
		t.UpdatedByName, t.UpdatedByID, t.Created, t.Failed, len(run.Datasets))
	return run, nil
}

func (r *Runner) processDataset(ctx context.Context, name string, cfg types.SyncConfig, opts upsert.Options) (dr types.DatasetReport) {
	rep := r.reporter()
	start := time.Now()
	dr.Dataset = name
	defer func() { dr.Duration = time.Since(start) }()

	rep.Infof("fetching %s", name)
	data, err := r.Fetcher.Fetch(ctx, name)
	if err != nil {
		rep.Errorf("fetch failed: %s: %v", name, err)
		return skipped(dr, types.StatusFetchFailed, err)
	}

	ds, err := source.Decode(data)
	if errors.Is(err, source.ErrMalformed) {
		rep.Errorf("fetch failed: %s: %v", name, err)
		return skipped(dr, types.StatusFetchFailed, err)
	}
	if err != nil {
		rep.Errorf("invalid JSON in %s: %v", name, err)
		return skipped(dr, types.StatusBadJSON, err)
	}
	dr.Collection = ds.Pack.Collection

	pack, err := r.Packs.Resolve(ctx, ds.Pack.Collection)
	if err != nil {
		rep.Errorf("pack missing: %s: %v", ds.Pack.Collection, err)
		return skipped(dr, types.StatusNoPack, err)
	}
	dr.Label = pack.Label()

	if pack.Locked() && cfg.UnlockIfLocked && !cfg.DryRun {
		if err := pack.Unlock(ctx); err != nil {
			rep.Warnf("unlock failed for %s: %v", pack.Label(), err)
		} else {
			rep.Infof("unlocked %s", pack.Label())
		}
	}

	norm := identity.New(cfg.Normalize)
	index, err := packindex.Build(ctx, pack, norm, rep)
	if err != nil {
		rep.Errorf("indexing %s: %v", ds.Pack.Collection, err)
		return skipped(dr, types.StatusIndexFailed, err)
	}
	dr.Duplicates = index.DuplicateCount()

	engine := upsert.New(pack, index, norm, opts, rep)

	docs := ds.Documents
	for i := 0; i < len(docs); i += cfg.ChunkSize {
		end := min(i+cfg.ChunkSize, len(docs))
		for j := i; j < end; j++ {
			var res types.OperationResult
			if err := ds.Reject(j); err != nil {
				res = types.OperationResult{Kind: types.OpFailed, Name: fmt.Sprintf("document %d", j), Err: err}
			} else {
				res = engine.Upsert(ctx, docs[j])
			}
			if res.Kind == types.OpFailed {
				rep.Warnf("fail: %s: %v", res.Name, res.Err)
			} else {
				rep.Debugf("%s: %s -> %s", res.Kind, res.Name, res.TargetID)
			}
			dr.Add(res)
		}
		rep.Infof("%s: %d/%d records processed", name, end, len(docs))
	}

	if err := pack.Reload(ctx); err != nil {
		rep.Warnf("reloading %s: %v", pack.Label(), err)
	}

	dr.Status = types.StatusOK
	rep.Infof("%s: %d name-updated, %d id-updated, %d created, %d failed",
		dr.Label, dr.UpdatedByName, dr.UpdatedByID, dr.Created, dr.Failed)
	return dr
}

func (r *Runner) reporter() notify.Reporter {
	if r.Reporter == nil {
		return notify.Discard
	}
	return r.Reporter
}

func skipped(dr types.DatasetReport, status types.DatasetStatus, err error) types.DatasetReport {
	dr.Status = status
	dr.Error = err.Error()
	return dr
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
