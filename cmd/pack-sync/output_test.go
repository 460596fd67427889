// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pack-sync/pkg/types"
)

func sampleRun() types.RunReport {
	return types.RunReport{
		RunID: "run-1",
		Datasets: []types.DatasetReport{
			{Dataset: "bonds.json", Status: types.StatusOK, Created: 2},
			{Dataset: "titles.json", Status: types.StatusNoPack, Error: "pack not found"},
			{Dataset: "kata.json", Status: types.StatusOK, Failed: 1},
		},
	}
}

func TestEmitReportTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, emitReport(&buf, sampleRun(), false, ""))
	assert.Contains(t, buf.String(), "titles.json")
	assert.Contains(t, buf.String(), "no-pack")
}

func TestEmitReportJSONAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, emitReport(&buf, sampleRun(), true, path))

	var decoded types.RunReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: run-1")
}

func TestCountUnclean(t *testing.T) {
	assert.Equal(t, 2, countUnclean(sampleRun()))
	assert.Equal(t, 0, countUnclean(types.RunReport{}))
}

func TestFormatPacks(t *testing.T) {
	var buf bytes.Buffer
	formatPacks(nil, &buf)
	assert.Equal(t, "No packs.\n", buf.String())

	buf.Reset()
	formatPacks([]types.PackDescriptor{{Collection: "l5r5e.core-bonds", Label: "Bonds", Type: "Item", Locked: true}}, &buf)
	assert.Contains(t, buf.String(), "l5r5e.core-bonds")
	assert.Contains(t, buf.String(), "true")
}
