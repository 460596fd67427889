// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/internal/source"
	"github.com/pdiddy/pack-sync/internal/store"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// --- test helpers ---

const bondsCollection = "l5r5e.core-bonds"

type fixture struct {
	dir    string
	db     *store.DB
	log    *bytes.Buffer
	runner *Runner
	sleeps []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(types.StoreConfig{DataDir: filepath.Join(dir, "data")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.CreatePack(context.Background(), types.PackDescriptor{
		Collection: bondsCollection,
		Type:       "Item",
		Label:      "Bonds",
	}))

	f := &fixture{dir: dir, db: db, log: &bytes.Buffer{}}
	cfg := types.DefaultSyncConfig()
	cfg.BaseURL = dir
	cfg.Verbosity = types.VerbosityVerbose
	f.runner = &Runner{
		Fetcher:  source.NewDirFetcher(dir),
		Packs:    StoreResolver(db),
		Reporter: notify.New(f.log, cfg.Verbosity),
		Config:   cfg,
		Sleep: func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		},
	}
	return f
}

func (f *fixture) writeDataset(t *testing.T, name, collection string, docs ...types.Record) {
	t.Helper()
	if docs == nil {
		docs = []types.Record{}
	}
	data, err := json.Marshal(types.Dataset{
		Pack:      &types.PackDescriptor{Collection: collection},
		Documents: docs,
	})
	require.NoError(t, err)
	f.writeRaw(t, name, string(data))
}

func (f *fixture) writeRaw(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func (f *fixture) run(t *testing.T, datasets ...string) types.RunReport {
	t.Helper()
	run, err := f.runner.Run(context.Background(), datasets)
	require.NoError(t, err)
	require.Len(t, run.Datasets, len(datasets))
	return run
}

func (f *fixture) pack(t *testing.T) *store.Pack {
	t.Helper()
	p, err := f.db.Pack(context.Background(), bondsCollection)
	require.NoError(t, err)
	return p
}

func (f *fixture) seed(t *testing.T, recs ...types.Record) {
	t.Helper()
	p := f.pack(t)
	for _, r := range recs {
		_, err := p.CreatePreservingIdentity(context.Background(), r)
		require.NoError(t, err)
	}
}

func bond(id, name, desc string) types.Record {
	return types.Record{
		"_id":    id,
		"name":   name,
		"type":   "bond",
		"system": map[string]any{"description": desc, "ring": "fire"},
	}
}

func description(t *testing.T, p *store.Pack, id string) string {
	t.Helper()
	rec, err := p.Get(context.Background(), id)
	require.NoError(t, err)
	sys, _ := rec["system"].(map[string]any)
	s, _ := sys["description"].(string)
	return s
}

// --- end to end ---

func TestRunCreatesThenUpdates(t *testing.T) {
	f := newFixture(t)
	f.writeDataset(t, "bonds.json", bondsCollection,
		bond("A", "Bushido", "honor"),
		bond("B", "Courage", "valor"),
	)

	first := f.run(t, "bonds.json")
	d := first.Datasets[0]
	assert.Equal(t, types.StatusOK, d.Status)
	assert.Equal(t, bondsCollection, d.Collection)
	assert.Equal(t, "Bonds", d.Label)
	assert.Equal(t, 2, d.Created)
	assert.NotEmpty(t, first.RunID)
	assert.False(t, first.HasFailures())

	// A second run over unchanged input creates nothing.
	second := f.run(t, "bonds.json")
	d = second.Datasets[0]
	assert.Equal(t, 0, d.Created)
	assert.Equal(t, 2, d.UpdatedByName)
	assert.Equal(t, 0, d.Failed)
	assert.NotEqual(t, first.RunID, second.RunID)

	assert.Contains(t, f.log.String(), "Bonds: 2 name-updated, 0 id-updated, 0 created, 0 failed")
}

func TestRunMatchesByNormalizedName(t *testing.T) {
	f := newFixture(t)
	f.seed(t, bond("OLD", "Bushidō", "stale"))
	f.writeDataset(t, "bonds.json", bondsCollection, bond("NEW", "  BUSHIDO ", "fresh"))

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, 1, d.UpdatedByName)
	assert.Equal(t, 0, d.Created)

	p := f.pack(t)
	assert.Equal(t, "fresh", description(t, p, "OLD"))
	_, err := p.Get(context.Background(), "NEW")
	assert.ErrorIs(t, err, types.ErrNotFound, "no record created under the source id")

	rec, err := p.Get(context.Background(), "OLD")
	require.NoError(t, err)
	assert.Equal(t, "Bushidō", rec.Name(), "patch-only mode leaves the name alone")
	assert.Equal(t, "fire", rec["system"].(map[string]any)["ring"])
}

func TestRunFallsBackToID(t *testing.T) {
	f := newFixture(t)
	f.seed(t, bond("A", "Old Name", "stale"))
	f.writeDataset(t, "bonds.json", bondsCollection, bond("A", "Renamed", "fresh"))

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, 1, d.UpdatedByID)
	assert.Equal(t, "fresh", description(t, f.pack(t), "A"))
}

func TestRunConvergesWithinDataset(t *testing.T) {
	f := newFixture(t)
	f.writeDataset(t, "bonds.json", bondsCollection,
		bond("A", "Bushido", "first"),
		bond("B", "bushido", "second"),
	)

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, 1, d.Created)
	assert.Equal(t, 1, d.UpdatedByName)
	assert.Equal(t, "second", description(t, f.pack(t), "A"))
}

func TestRunStatuses(t *testing.T) {
	f := newFixture(t)
	f.writeDataset(t, "bonds.json", bondsCollection, bond("A", "Bushido", "x"))
	f.writeDataset(t, "titles.json", "l5r5e.core-titles", bond("T", "Emerald Champion", "x"))
	f.writeRaw(t, "nodocs.json", `{"pack":{"collection":"l5r5e.core-bonds"}}`)
	f.writeRaw(t, "broken.json", `{"pack":`)

	run := f.run(t, "missing.json", "broken.json", "nodocs.json", "titles.json", "bonds.json")

	want := []types.DatasetStatus{
		types.StatusFetchFailed,
		types.StatusFetchFailed,
		types.StatusBadJSON,
		types.StatusNoPack,
		types.StatusOK,
	}
	for i, st := range want {
		assert.Equal(t, st, run.Datasets[i].Status, run.Datasets[i].Dataset)
	}
	assert.Equal(t, "l5r5e.core-titles", run.Datasets[3].Collection)
	assert.NotEmpty(t, run.Datasets[3].Error)
	assert.Equal(t, 1, run.Datasets[4].Created, "later datasets still run")
	assert.True(t, run.HasFailures())

	assert.Equal(t, []time.Duration{
		types.DefaultFileDelay, types.DefaultFileDelay, types.DefaultFileDelay, types.DefaultFileDelay,
	}, f.sleeps, "pause between datasets only")
}

func TestRunUnlocksLockedPack(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.SetLocked(context.Background(), bondsCollection, true))
	f.writeDataset(t, "bonds.json", bondsCollection, bond("A", "Bushido", "x"))

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, 1, d.Created)
	assert.False(t, f.pack(t).Locked())
	assert.Contains(t, f.log.String(), "unlocked Bonds")
}

func TestRunLockedPackWithoutUnlock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, bond("A", "Bushido", "old"))
	require.NoError(t, f.db.SetLocked(context.Background(), bondsCollection, true))
	f.runner.Config.UnlockIfLocked = false
	f.writeDataset(t, "bonds.json", bondsCollection,
		bond("A", "Bushido", "new"),
		bond("B", "Courage", "new"),
	)

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, types.StatusOK, d.Status, "the dataset still completes")
	assert.Equal(t, 2, d.Failed)
	require.Len(t, d.Failures, 2)
	assert.Contains(t, d.Failures[0].Error, "locked")
	assert.False(t, d.OK())
}

func TestRunIsolatesRecordFailures(t *testing.T) {
	f := newFixture(t)
	f.writeDataset(t, "bonds.json", bondsCollection,
		bond("A", "Bushido", "x"),
		types.Record{"name": "No Identifier"},
		bond("C", "Compassion", "y"),
	)

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, 2, d.Created)
	assert.Equal(t, 1, d.Failed)
	assert.Equal(t, "No Identifier", d.Failures[0].Name)
	assert.Contains(t, f.log.String(), "fail: No Identifier")
}

func TestRunIsolatesUndecodableDocuments(t *testing.T) {
	f := newFixture(t)
	f.seed(t, types.Record{"_id": "E", "type": "Item"})
	f.writeRaw(t, "bonds.json", `{"pack":{"collection":"l5r5e.core-bonds"},"documents":[
		7, null, "Bushido", ["x"],
		{"_id":"A","name":"Bushido","type":"bond","system":{"description":"x"}}
	]}`)

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, types.StatusOK, d.Status)
	assert.Equal(t, 1, d.Created)
	assert.Zero(t, d.UpdatedByName)
	assert.Equal(t, 4, d.Failed)
	require.Len(t, d.Failures, 4)
	assert.Equal(t, "document 0", d.Failures[0].Name)
	assert.Contains(t, d.Failures[0].Error, "not a JSON object")
	assert.Equal(t, "x", description(t, f.pack(t), "A"))

	rec, err := f.pack(t).Get(context.Background(), "E")
	require.NoError(t, err)
	assert.Equal(t, types.Record{"_id": "E", "type": "Item"}, rec, "unnamed record left alone")
}

func TestRunPreservesLargeIntegers(t *testing.T) {
	f := newFixture(t)
	f.writeRaw(t, "bonds.json", `{"pack":{"collection":"l5r5e.core-bonds"},"documents":[
		{"_id":"A","name":"Bushido","type":"bond","flags":9007199254740993,"system":{"rank":1.5}}
	]}`)

	require.Equal(t, 1, f.run(t, "bonds.json").Datasets[0].Created)
	rec, err := f.pack(t).Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), rec["flags"])
	assert.Equal(t, json.Number("1.5"), rec["system"].(map[string]any)["rank"])
}

func TestRunWholeRecordMode(t *testing.T) {
	f := newFixture(t)
	f.seed(t, bond("A", "Bushido", "old"))
	f.runner.Config.PatchOnly = false
	f.writeDataset(t, "bonds.json", bondsCollection, types.Record{"_id": "Z", "name": "Bushido", "type": "bond"})

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, 1, d.UpdatedByName)

	rec, err := f.pack(t).Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, types.Record{"_id": "A", "name": "Bushido", "type": "bond"}, rec)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, bond("A", "Bushido", "old"))
	f.runner.Config.DryRun = true
	f.writeDataset(t, "bonds.json", bondsCollection,
		bond("A", "Bushido", "new"),
		bond("B", "Courage", "new"),
		bond("C", "courage", "again"),
	)

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, 2, d.UpdatedByName)
	assert.Equal(t, 1, d.Created)

	p := f.pack(t)
	assert.Equal(t, "old", description(t, p, "A"))
	idx, err := p.Index(context.Background())
	require.NoError(t, err)
	assert.Len(t, idx, 1)
}

func TestRunReportsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, bond("A", "Bushido", "a"), bond("B", "BUSHIDO", "b"))
	f.writeDataset(t, "bonds.json", bondsCollection, bond("X", "bushido", "new"))

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, 1, d.Duplicates)
	assert.Equal(t, "new", description(t, f.pack(t), "A"), "first seen wins")
	assert.Equal(t, "b", description(t, f.pack(t), "B"))
	assert.Contains(t, f.log.String(), "duplicate names")
}

func TestRunStopsWhenCancelledDuringPause(t *testing.T) {
	f := newFixture(t)
	f.writeDataset(t, "bonds.json", bondsCollection)
	f.runner.Sleep = func(context.Context, time.Duration) error { return context.Canceled }

	run, err := f.runner.Run(context.Background(), []string{"bonds.json", "bonds.json", "bonds.json"})
	require.NoError(t, err)
	assert.Len(t, run.Datasets, 1)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	f := newFixture(t)
	f.runner.Config.PatchPaths = []string{"system..description"}

	_, err := f.runner.Run(context.Background(), []string{"bonds.json"})
	assert.Error(t, err)
}

func TestRunIndexFailure(t *testing.T) {
	f := newFixture(t)
	f.writeDataset(t, "bonds.json", bondsCollection, bond("A", "Bushido", "x"))
	f.runner.Packs = ResolverFunc(func(ctx context.Context, c string) (Pack, error) {
		p, err := f.db.Pack(ctx, c)
		if err != nil {
			return nil, err
		}
		return failingIndex{p}, nil
	})

	d := f.run(t, "bonds.json").Datasets[0]
	assert.Equal(t, types.StatusIndexFailed, d.Status)
}

type failingIndex struct{ *store.Pack }

func (failingIndex) Index(context.Context) ([]types.IndexEntry, error) {
	return nil, errors.New("listing unavailable")
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

// --- output ---

func sampleRun() types.RunReport {
	return types.RunReport{
		RunID: "run-1",
		Datasets: []types.DatasetReport{
			{Dataset: "bonds.json", Status: types.StatusOK, Collection: bondsCollection, UpdatedByName: 3, Created: 1, Failed: 1,
				Failures: []types.RecordFailure{{Name: "Broken", Error: "boom"}}},
			{Dataset: "titles.json", Status: types.StatusNoPack, Collection: "l5r5e.core-titles", Error: "pack not found"},
		},
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleRun(), &buf)
	out := buf.String()

	assert.Contains(t, out, "Dataset")
	assert.Contains(t, out, "bonds.json")
	assert.Contains(t, out, "no-pack")
	assert.Contains(t, out, "2 dataset(s): 3 name-updated, 0 id-updated, 1 created, 1 failed")
	assert.Contains(t, out, "bonds.json: Broken: boom")
	assert.Contains(t, out, "titles.json: no-pack: pack not found")

	buf.Reset()
	FormatTable(types.RunReport{}, &buf)
	assert.Equal(t, "No datasets processed.\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleRun(), &buf))

	var decoded types.RunReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Datasets, 2)
	assert.Equal(t, types.StatusNoPack, decoded.Datasets[1].Status)
}

func TestWriteReportFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "reports", "run.json")
	require.NoError(t, WriteReportFile(sampleRun(), jsonPath))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))

	yamlPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, WriteReportFile(sampleRun(), yamlPath))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(data, &generic))
	assert.Equal(t, "run-1", generic["run_id"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
