// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pack-sync/pkg/types"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

// ParseExportFormat accepts "json", "yaml" or "yml".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or yaml)", s)
	}
}

// Export returns the pack in dataset shape, so an exported JSON file can
// be synced back into another database.
func (p *Pack) Export(ctx context.Context) (types.Dataset, error) {
	records, err := p.Records(ctx)
	if err != nil {
		return types.Dataset{}, err
	}
	meta := p.meta
	meta.Locked = false
	if records == nil {
		records = []types.Record{}
	}
	return types.Dataset{Pack: &meta, Documents: records}, nil
}

// WriteExport encodes ds to w in the given format.
func WriteExport(w io.Writer, ds types.Dataset, format ExportFormat) error {
	switch format {
	case FormatYAML:
		docs := make([]any, len(ds.Documents))
		for i, rec := range ds.Documents {
			docs[i] = yamlValue(map[string]any(rec))
		}
		out := struct {
			Pack      *types.PackDescriptor `yaml:"pack"`
			Documents []any                 `yaml:"documents"`
		}{ds.Pack, docs}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ds); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// yamlValue converts json.Number leaves to int64 or float64 so YAML emits
// them as numbers rather than quoted strings. Integers that overflow
// int64 are kept as YAML integer literals.
func yamlValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = yamlValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = yamlValue(val)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if strings.ContainsAny(t.String(), ".eE") {
			if f, err := t.Float64(); err == nil {
				return f
			}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: t.String()}
	default:
		return v
	}
}
