// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/pack-sync/pkg/types"
)

// setDefaults registers the shipped settings so that config files and
// environment variables only need to name what they change.
func setDefaults(v *viper.Viper) {
	d := types.DefaultSyncConfig()
	v.SetDefault("sync.base_url", d.BaseURL)
	v.SetDefault("sync.datasets", d.Datasets)
	v.SetDefault("sync.match_by_name_first", d.MatchByNameFirst)
	v.SetDefault("sync.normalize.remove_diacritics", d.Normalize.RemoveDiacritics)
	v.SetDefault("sync.normalize.collapse_whitespace", d.Normalize.CollapseWhitespace)
	v.SetDefault("sync.patch_only", d.PatchOnly)
	v.SetDefault("sync.patch_paths", d.PatchPaths)
	v.SetDefault("sync.chunk_size", d.ChunkSize)
	v.SetDefault("sync.unlock_if_locked", d.UnlockIfLocked)
	v.SetDefault("sync.file_delay", d.FileDelay)
	v.SetDefault("sync.verbosity", string(d.Verbosity))
	v.SetDefault("sync.dry_run", d.DryRun)
	v.SetDefault("sync.timeout", d.Timeout)
	v.SetDefault("sync.user_agent", d.UserAgent)
	v.SetDefault("sync.max_retries", d.MaxRetries)

	v.SetDefault("store.driver", string(types.DriverSQLite))
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.cache_size", 512)

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)

	v.SetDefault("secrets_dir", ".secrets")
}

// syncConfig reads the sync: section.
func syncConfig(v *viper.Viper) types.SyncConfig {
	return types.SyncConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    v.GetDuration("sync.timeout"),
			UserAgent:  v.GetString("sync.user_agent"),
			MaxRetries: v.GetInt("sync.max_retries"),
		},
		BaseURL:          v.GetString("sync.base_url"),
		Datasets:         v.GetStringSlice("sync.datasets"),
		MatchByNameFirst: v.GetBool("sync.match_by_name_first"),
		Normalize: types.NormalizeConfig{
			RemoveDiacritics:   v.GetBool("sync.normalize.remove_diacritics"),
			CollapseWhitespace: v.GetBool("sync.normalize.collapse_whitespace"),
		},
		PatchOnly:      v.GetBool("sync.patch_only"),
		PatchPaths:     v.GetStringSlice("sync.patch_paths"),
		ChunkSize:      v.GetInt("sync.chunk_size"),
		UnlockIfLocked: v.GetBool("sync.unlock_if_locked"),
		FileDelay:      v.GetDuration("sync.file_delay"),
		Verbosity:      types.Verbosity(v.GetString("sync.verbosity")),
		DryRun:         v.GetBool("sync.dry_run"),
	}
}

// storeConfig reads the store: section.
func storeConfig(v *viper.Viper) types.StoreConfig {
	return types.StoreConfig{
		Driver:    types.StoreDriver(v.GetString("store.driver")),
		DataDir:   v.GetString("store.data_dir"),
		DSN:       v.GetString("store.dsn"),
		CacheSize: v.GetInt("store.cache_size"),
	}
}

// s3Config reads the s3: section. Credentials come from secrets.
func s3Config(v *viper.Viper) types.S3Config {
	return types.S3Config{
		Endpoint: v.GetString("s3.endpoint"),
		Region:   v.GetString("s3.region"),
		UseSSL:   v.GetBool("s3.use_ssl"),
	}
}
