// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pack-sync CLI. pack-sync
// upserts published datasets into local record packs: records are matched
// by normalized name and type first, then by identifier, and created with
// their identifier preserved when neither matches.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/internal/secrets"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the pack-sync CLI.
var rootCmd = &cobra.Command{
	Use:   "pack-sync",
	Short: "Upsert published datasets into record packs",
	Long: `pack-sync keeps local record packs in step with datasets published at a
base location (an http(s) URL, an s3:// bucket or a local directory).

Each dataset names its target pack. Records are matched by normalized name
and type first, then by identifier; unmatched records are created with
their identifier preserved. Running the same sync twice creates nothing
the second time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("secrets_dir")
		s, err := secrets.Load(dir, notify.New(cmd.ErrOrStderr(), types.VerbosityNormal))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pack-sync.yaml or ~/.config/pack-sync/pack-sync.yaml)")
	pf.String("data-dir", "data", "directory holding packs.db and the run lock")
	pf.String("store-driver", string(types.DriverSQLite), "record store driver: sqlite or postgres")
	pf.String("secrets-dir", ".secrets", "directory of credential files")

	viper.BindPFlag("store.data_dir", pf.Lookup("data-dir"))
	viper.BindPFlag("store.driver", pf.Lookup("store-driver"))
	viper.BindPFlag("secrets_dir", pf.Lookup("secrets-dir"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pack-sync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pack-sync"))
		}
	}

	viper.SetEnvPrefix("PACK_SYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
