// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pack-sync/pkg/types"
)

// FormatTable writes the run summary as a human-readable table to w.
func FormatTable(run types.RunReport, w io.Writer) {
	if len(run.Datasets) == 0 {
		fmt.Fprintln(w, "No datasets processed.")
		return
	}

	fmt.Fprintf(w, "%-48s  %-12s  %-36s  %6s  %6s  %7s  %6s\n",
		"Dataset", "Status", "Collection", "ByName", "ByID", "Created", "Failed")
	fmt.Fprintln(w, strings.Repeat("-", 134))

	for _, d := range run.Datasets {
		fmt.Fprintf(w, "%-48s  %-12s  %-36s  %6d  %6d  %7d  %6d\n",
			truncate(d.Dataset, 48), d.Status, truncate(d.Collection, 36),
			d.UpdatedByName, d.UpdatedByID, d.Created, d.Failed)
	}

	t := run.Totals()
	fmt.Fprintf(w, "\n%d dataset(s): %d name-updated, %d id-updated, %d created, %d failed",
		len(run.Datasets), t.UpdatedByName, t.UpdatedByID, t.Created, t.Failed)
	if t.Conflicts > 0 {
		fmt.Fprintf(w, " (%d name/id conflicts)", t.Conflicts)
	}
	fmt.Fprintln(w)

	for _, d := range run.Datasets {
		if d.Status != types.StatusOK {
			fmt.Fprintf(w, "  %s: %s: %s\n", d.Dataset, d.Status, d.Error)
		}
		for _, f := range d.Failures {
			fmt.Fprintf(w, "  %s: %s: %s\n", d.Dataset, f.Name, f.Error)
		}
	}
}

// FormatJSON writes the run report as indented JSON to w.
func FormatJSON(run types.RunReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// WriteReportFile saves the run report to path, as JSON when the
// extension is .json and as YAML otherwise.
func WriteReportFile(run types.RunReport, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(run, "", "  ")
	default:
		data, err = yaml.Marshal(run)
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
