// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccessors(t *testing.T) {
	r := Record{"_id": "A", "name": "Bushido", "type": "bond"}
	assert.Equal(t, "A", r.ID())
	assert.Equal(t, "Bushido", r.Name())
	assert.Equal(t, "bond", r.Type())
	assert.Equal(t, "Bushido", r.Label())

	assert.Equal(t, "A", Record{"_id": "A"}.Label())
	assert.Equal(t, "", Record{"_id": 42}.ID(), "non-string id reads as empty")

	var nilRec Record
	assert.Equal(t, "", nilRec.Name())
	assert.Nil(t, nilRec.Clone())
}

func TestRecordCloneIsDeep(t *testing.T) {
	orig := Record{
		"system": map[string]any{"description": "x", "tags": []any{"a", map[string]any{"b": 1.0}}},
	}
	c := orig.Clone()
	c["system"].(map[string]any)["description"] = "y"
	c["system"].(map[string]any)["tags"].([]any)[1].(map[string]any)["b"] = 2.0

	assert.Equal(t, "x", orig["system"].(map[string]any)["description"])
	assert.Equal(t, 1.0, orig["system"].(map[string]any)["tags"].([]any)[1].(map[string]any)["b"])
}

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord([]byte(` {"_id":"A","flags":9007199254740993,"system":{"rank":2}} `))
	require.NoError(t, err)
	assert.Equal(t, "A", rec.ID())
	assert.Equal(t, json.Number("9007199254740993"), rec["flags"])
	assert.Equal(t, json.Number("2"), rec["system"].(map[string]any)["rank"])

	for _, in := range []string{``, `null`, `7`, `"x"`, `[]`, `true`} {
		_, err := DecodeRecord([]byte(in))
		assert.ErrorIs(t, err, ErrNotObject, in)
	}

	_, err = DecodeRecord([]byte(`{"name":`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotObject)
}

func TestDatasetReject(t *testing.T) {
	boom := errors.New("boom")
	ds := Dataset{Documents: []Record{nil, {}}, Rejected: map[int]error{0: boom}}
	assert.ErrorIs(t, ds.Reject(0), boom)
	assert.NoError(t, ds.Reject(1))
	assert.NoError(t, Dataset{}.Reject(0))
}

func TestDatasetReportAdd(t *testing.T) {
	var r DatasetReport
	r.Add(OperationResult{Kind: OpNameMatched, ConflictID: "Z"})
	r.Add(OperationResult{Kind: OpIDMatched})
	r.Add(OperationResult{Kind: OpCreated})
	r.Add(OperationResult{Kind: OpCreated})
	r.Add(OperationResult{Kind: OpFailed, Name: "Broken", Err: errors.New("boom")})
	r.Add(OperationResult{Kind: OpFailed, Name: "Silent"})

	assert.Equal(t, 1, r.UpdatedByName)
	assert.Equal(t, 1, r.UpdatedByID)
	assert.Equal(t, 2, r.Created)
	assert.Equal(t, 2, r.Failed)
	assert.Equal(t, 1, r.Conflicts)
	assert.Equal(t, 6, r.Total())
	assert.Equal(t, []RecordFailure{{Name: "Broken", Error: "boom"}, {Name: "Silent"}}, r.Failures)

	r.Status = StatusOK
	assert.False(t, r.OK(), "record failures make the dataset not ok")
}

func TestRunReportTotals(t *testing.T) {
	run := RunReport{Datasets: []DatasetReport{
		{Status: StatusOK, Created: 2, UpdatedByName: 1, Duplicates: 1},
		{Status: StatusOK, UpdatedByID: 3},
	}}
	assert.False(t, run.HasFailures())

	tot := run.Totals()
	assert.Equal(t, 2, tot.Created)
	assert.Equal(t, 1, tot.UpdatedByName)
	assert.Equal(t, 3, tot.UpdatedByID)
	assert.Equal(t, 1, tot.Duplicates)

	run.Datasets = append(run.Datasets, DatasetReport{Status: StatusNoPack})
	assert.True(t, run.HasFailures())
}

func TestPackDisplayName(t *testing.T) {
	assert.Equal(t, "Bonds", PackDescriptor{Collection: "c", Label: "Bonds"}.DisplayName())
	assert.Equal(t, "c", PackDescriptor{Collection: "c"}.DisplayName())
}

func TestSyncConfigDefaults(t *testing.T) {
	c := DefaultSyncConfig()
	assert.True(t, c.MatchByNameFirst)
	assert.True(t, c.PatchOnly)
	assert.True(t, c.UnlockIfLocked)
	assert.Equal(t, DefaultChunkSize, c.ChunkSize)
	assert.Equal(t, DefaultFileDelay, c.FileDelay)
	assert.Equal(t, []string{"system.description"}, c.PatchPaths)

	filled := SyncConfig{PatchOnly: true}.WithDefaults()
	assert.Equal(t, DefaultChunkSize, filled.ChunkSize)
	assert.Equal(t, DefaultUserAgent, filled.UserAgent)
	assert.Equal(t, VerbosityNormal, filled.Verbosity)
	assert.Equal(t, DefaultPatchPaths, filled.PatchPaths)
	assert.False(t, filled.MatchByNameFirst, "booleans are left alone")
}

func TestSyncConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SyncConfig
		wantErr string
	}{
		{name: "defaults", cfg: DefaultSyncConfig()},
		{name: "whole record mode without paths", cfg: SyncConfig{PatchPaths: []string{}}},
		{name: "bad verbosity", cfg: SyncConfig{Verbosity: "loud"}, wantErr: "unknown verbosity"},
		{name: "negative delay", cfg: SyncConfig{FileDelay: -1}, wantErr: "negative"},
		{name: "patch only without paths", cfg: SyncConfig{PatchOnly: true, PatchPaths: []string{}}, wantErr: "at least one"},
		{name: "empty segment", cfg: SyncConfig{PatchOnly: true, PatchPaths: []string{"system..description"}}, wantErr: "invalid patch path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
