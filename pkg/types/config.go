// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used when fetching datasets.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pack-sync/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on HTTP 429 and 503 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// NormalizeConfig toggles the optional steps of name normalization.
type NormalizeConfig struct {
	// RemoveDiacritics strips combining marks after NFD decomposition.
	RemoveDiacritics bool `json:"remove_diacritics" yaml:"remove_diacritics"`

	// CollapseWhitespace turns any whitespace run into a single space.
	CollapseWhitespace bool `json:"collapse_whitespace" yaml:"collapse_whitespace"`
}

// Verbosity selects how much the reporter prints.
type Verbosity string

const (
	VerbosityQuiet   Verbosity = "quiet"
	VerbosityNormal  Verbosity = "normal"
	VerbosityVerbose Verbosity = "verbose"
)

// Defaults applied by SyncConfig.WithDefaults.
const (
	DefaultChunkSize = 25
	DefaultFileDelay = 300 * time.Millisecond
	DefaultTimeout   = 60 * time.Second
	DefaultUserAgent = "pack-sync/0.1"
)

// DefaultPatchPaths is the field whitelist used in patch-only mode when
// none is configured.
var DefaultPatchPaths = []string{"system.description"}

// SyncConfig holds settings for a sync run.
type SyncConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the dataset location: an http(s) URL prefix,
	// an s3://bucket/prefix URL, or a local directory.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Datasets lists dataset file names relative to BaseURL.
	Datasets []string `json:"datasets" yaml:"datasets"`

	// MatchByNameFirst enables name+type matching ahead of identifiers.
	MatchByNameFirst bool `json:"match_by_name_first" yaml:"match_by_name_first"`

	Normalize NormalizeConfig `json:"normalize" yaml:"normalize"`

	// PatchOnly restricts updates to PatchPaths; otherwise matched
	// records are replaced wholesale.
	PatchOnly bool `json:"patch_only" yaml:"patch_only"`

	// PatchPaths lists dotted field paths copied in patch-only mode.
	PatchPaths []string `json:"patch_paths" yaml:"patch_paths"`

	// ChunkSize is the number of records per progress checkpoint (default 25).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// UnlockIfLocked unlocks a locked pack before writing to it.
	UnlockIfLocked bool `json:"unlock_if_locked" yaml:"unlock_if_locked"`

	// FileDelay is the pause between datasets (default 300ms).
	FileDelay time.Duration `json:"file_delay" yaml:"file_delay"`

	// Verbosity controls notifications: quiet, normal or verbose.
	Verbosity Verbosity `json:"verbosity" yaml:"verbosity"`

	// DryRun decides every record without writing to the store.
	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// DefaultSyncConfig returns the settings the importer ships with.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		MatchByNameFirst: true,
		Normalize: NormalizeConfig{
			RemoveDiacritics:   true,
			CollapseWhitespace: true,
		},
		PatchOnly:      true,
		PatchPaths:     append([]string(nil), DefaultPatchPaths...),
		ChunkSize:      DefaultChunkSize,
		UnlockIfLocked: true,
		FileDelay:      DefaultFileDelay,
		Verbosity:      VerbosityNormal,
	}
}

// WithDefaults fills zero-valued numeric and string settings. Boolean
// toggles are left as configured.
func (c SyncConfig) WithDefaults() SyncConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Verbosity == "" {
		c.Verbosity = VerbosityNormal
	}
	if c.PatchOnly && c.PatchPaths == nil {
		c.PatchPaths = append([]string(nil), DefaultPatchPaths...)
	}
	return c
}

// Validate applies defaults and rejects settings a run cannot use.
func (c SyncConfig) Validate() (SyncConfig, error) {
	c = c.WithDefaults()
	switch c.Verbosity {
	case VerbosityQuiet, VerbosityNormal, VerbosityVerbose:
	default:
		return c, fmt.Errorf("unknown verbosity %q (want quiet, normal or verbose)", c.Verbosity)
	}
	if c.FileDelay < 0 {
		return c, fmt.Errorf("file delay must not be negative: %v", c.FileDelay)
	}
	if c.PatchOnly && len(c.PatchPaths) == 0 {
		return c, fmt.Errorf("patch-only mode needs at least one patch path")
	}
	for _, p := range c.PatchPaths {
		for _, seg := range strings.Split(p, ".") {
			if strings.TrimSpace(seg) == "" {
				return c, fmt.Errorf("invalid patch path %q", p)
			}
		}
	}
	return c, nil
}

// StoreDriver selects the database backing the record store.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// StoreConfig holds settings for the record store.
type StoreConfig struct {
	// Driver is sqlite (default) or postgres.
	Driver StoreDriver `json:"driver" yaml:"driver"`

	// DataDir contains packs.db for the sqlite driver.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// DSN is the Postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// CacheSize is the number of record bodies kept in memory per pack
	// (default 512).
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// S3Config holds settings for datasets published to an S3-compatible bucket.
type S3Config struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Region    string `json:"region" yaml:"region"`
	AccessKey string `json:"-" yaml:"-"`
	SecretKey string `json:"-" yaml:"-"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}
