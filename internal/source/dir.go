// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirFetcher reads datasets from a local directory.
type DirFetcher struct {
	Dir string
}

// NewDirFetcher returns a fetcher rooted at dir. A file:// prefix is
// accepted and stripped.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{Dir: strings.TrimPrefix(dir, "file://")}
}

// Fetch reads Dir/name. Names may not leave the directory.
func (f *DirFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("dataset name %q escapes %s", name, f.Dir)
	}
	path := filepath.Join(f.Dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
