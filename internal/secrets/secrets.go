// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Recognized keys: s3-access-key, s3-secret-key, database-dsn.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// Key names.
const (
	S3AccessKey = "s3-access-key"
	S3SecretKey = "s3-secret-key"
	DatabaseDSN = "database-dsn"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads all files in dir and returns their trimmed contents by
// filename. A missing directory is not an error; Load returns an empty
// set. Unreadable files are reported as warnings and skipped.
func Load(dir string, r notify.Reporter) (Secrets, error) {
	if r == nil {
		r = notify.Discard
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			r.Warnf("could not read secret %s: %v", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// ApplyS3 fills missing S3 credentials in cfg.
func (s Secrets) ApplyS3(cfg types.S3Config) types.S3Config {
	if cfg.AccessKey == "" {
		cfg.AccessKey = s[S3AccessKey]
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = s[S3SecretKey]
	}
	return cfg
}

// ApplyStore fills a missing Postgres DSN in cfg.
func (s Secrets) ApplyStore(cfg types.StoreConfig) types.StoreConfig {
	if cfg.DSN == "" {
		cfg.DSN = s[DatabaseDSN]
	}
	return cfg
}
