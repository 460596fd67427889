// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches and decodes published datasets. A dataset lives
// under a base location that is an http(s) URL prefix, an
// s3://bucket/prefix URL, or a local directory.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/pack-sync/pkg/types"
)

var (
	// ErrNotFound is returned when the named dataset does not exist.
	ErrNotFound = errors.New("dataset not found")

	// ErrMalformed is returned when a dataset is not valid JSON.
	ErrMalformed = errors.New("malformed dataset")

	// ErrBadDataset is returned when a dataset parses but lacks the
	// pack collection or the documents array.
	ErrBadDataset = errors.New("invalid dataset")
)

// Fetcher retrieves the raw bytes of a named dataset.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// New returns the Fetcher for cfg.BaseURL: HTTP for http:// and https://,
// S3 for s3://, and a directory reader otherwise.
func New(cfg types.SyncConfig, s3 types.S3Config) (Fetcher, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	switch {
	case base == "":
		return nil, fmt.Errorf("no dataset base location configured")
	case strings.HasPrefix(base, "http://"), strings.HasPrefix(base, "https://"):
		return NewHTTPFetcher(base, cfg.HTTPConfig), nil
	case strings.HasPrefix(base, "s3://"):
		return NewS3Fetcher(base, s3)
	default:
		return NewDirFetcher(base), nil
	}
}

// Decode parses a dataset and checks its required top-level fields.
// Syntax errors wrap ErrMalformed; a missing pack collection or a
// documents value that is not an array wraps ErrBadDataset. An element of
// documents that is not an object does not fail the dataset: it is left
// nil in Documents and its error recorded in Rejected.
func Decode(data []byte) (types.Dataset, error) {
	var raw struct {
		Pack      *types.PackDescriptor `json:"pack"`
		Documents json.RawMessage       `json:"documents"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return types.Dataset{}, fmt.Errorf("%w: %v", ErrBadDataset, err)
		}
		return types.Dataset{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if raw.Pack == nil || strings.TrimSpace(raw.Pack.Collection) == "" {
		return types.Dataset{}, fmt.Errorf("%w: missing pack.collection", ErrBadDataset)
	}
	docs := bytes.TrimSpace(raw.Documents)
	if len(docs) == 0 || docs[0] != '[' {
		return types.Dataset{}, fmt.Errorf("%w: documents must be an array", ErrBadDataset)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(docs, &elems); err != nil {
		return types.Dataset{}, fmt.Errorf("%w: documents: %v", ErrBadDataset, err)
	}
	ds := types.Dataset{Pack: raw.Pack, Documents: make([]types.Record, len(elems))}
	for i, elem := range elems {
		rec, err := types.DecodeRecord(elem)
		if err != nil {
			if ds.Rejected == nil {
				ds.Rejected = make(map[int]error)
			}
			ds.Rejected[i] = err
			continue
		}
		ds.Documents[i] = rec
	}
	return ds, nil
}

// join appends name to a base location that may or may not end in "/".
func join(base, name string) string {
	if base == "" || strings.HasSuffix(base, "/") {
		return base + name
	}
	return base + "/" + name
}
