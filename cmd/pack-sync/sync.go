// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pack-sync/internal/batch"
	"github.com/pdiddy/pack-sync/internal/notify"
	"github.com/pdiddy/pack-sync/internal/runlock"
	"github.com/pdiddy/pack-sync/internal/source"
	"github.com/pdiddy/pack-sync/internal/store"
	"github.com/pdiddy/pack-sync/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync [datasets...]",
	Short: "Upsert datasets into their packs",
	Long: `Sync fetches each dataset from the base location and upserts its records
into the pack named by the dataset. Dataset names given as arguments replace
the configured list.

With --schedule, sync keeps running and syncs on every tick of the cron
spec (for example "0 * * * *" or "@every 6h") until interrupted.`,
	RunE: runSync,
}

func init() {
	d := types.DefaultSyncConfig()
	f := syncCmd.Flags()
	f.String("base-url", "", "dataset location: http(s) URL prefix, s3://bucket/prefix or directory")
	f.Bool("name-first", d.MatchByNameFirst, "match by normalized name and type before _id")
	f.Bool("strip-diacritics", d.Normalize.RemoveDiacritics, "ignore diacritics when comparing names")
	f.Bool("collapse-whitespace", d.Normalize.CollapseWhitespace, "treat whitespace runs in names as one space")
	f.Bool("patch-only", d.PatchOnly, "update only the patch paths of matched records")
	f.StringSlice("patch-path", d.PatchPaths, "dotted field path copied in patch-only mode (repeatable)")
	f.Int("chunk", d.ChunkSize, "records per progress checkpoint")
	f.Bool("unlock", d.UnlockIfLocked, "unlock locked packs before writing")
	f.Duration("delay", d.FileDelay, "pause between datasets")
	f.String("verbosity", string(d.Verbosity), "quiet, normal or verbose")
	f.Bool("dry-run", false, "decide every record without writing")
	f.Bool("json", false, "print the run report as JSON")
	f.String("report-file", "", "also write the run report to this file (.json or .yaml)")
	f.String("schedule", "", "cron spec; keep running and sync on every tick")
	f.Bool("break-lock", false, "remove a lock file left behind by a crashed run")

	for key, flag := range map[string]string{
		"sync.base_url":                      "base-url",
		"sync.match_by_name_first":           "name-first",
		"sync.normalize.remove_diacritics":   "strip-diacritics",
		"sync.normalize.collapse_whitespace": "collapse-whitespace",
		"sync.patch_only":                    "patch-only",
		"sync.patch_paths":                   "patch-path",
		"sync.chunk_size":                    "chunk",
		"sync.unlock_if_locked":              "unlock",
		"sync.file_delay":                    "delay",
		"sync.verbosity":                     "verbosity",
		"sync.dry_run":                       "dry-run",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	cfg := syncConfig(v)
	if len(args) > 0 {
		cfg.Datasets = args
	}
	if len(cfg.Datasets) == 0 {
		return fmt.Errorf("no datasets: pass dataset names or set sync.datasets")
	}
	cfg, err := cfg.Validate()
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	reportFile, _ := cmd.Flags().GetString("report-file")

	// Progress goes to stderr when stdout carries JSON.
	progress := cmd.OutOrStdout()
	if jsonOut {
		progress = cmd.ErrOrStderr()
	}
	rep := notify.New(progress, cfg.Verbosity).WithErrorWriter(cmd.ErrOrStderr())

	fetcher, err := source.New(cfg, loadedSecrets.ApplyS3(s3Config(v)))
	if err != nil {
		return err
	}
	if hf, ok := fetcher.(*source.HTTPFetcher); ok {
		hf.OnRetry = func(status int, wait time.Duration, attempt, maxRetries int) {
			rep.Warnf("HTTP %d, retrying in %v (attempt %d/%d)", status, wait, attempt, maxRetries)
		}
	}

	stCfg := loadedSecrets.ApplyStore(storeConfig(v))
	db, err := store.Open(stCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	guard := runlock.New(stCfg.DataDir)
	if breakLock, _ := cmd.Flags().GetBool("break-lock"); breakLock {
		if err := guard.Break(); err != nil {
			return err
		}
	}

	runner := &batch.Runner{
		Fetcher:  fetcher,
		Packs:    batch.StoreResolver(db),
		Reporter: rep,
		Config:   cfg,
	}

	emit := func(run types.RunReport) error {
		return emitReport(cmd.OutOrStdout(), run, jsonOut, reportFile)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if spec, _ := cmd.Flags().GetString("schedule"); spec != "" {
		return batch.Schedule(ctx, spec, guard, rep, func(ctx context.Context) {
			run, err := runner.Run(ctx, cfg.Datasets)
			if err != nil {
				rep.Errorf("%v", err)
				return
			}
			if err := emit(run); err != nil {
				rep.Errorf("%v", err)
			}
		})
	}

	release, err := guard.TryAcquire("sync")
	if err != nil {
		return err
	}
	defer release()

	run, err := runner.Run(ctx, cfg.Datasets)
	if err != nil {
		return err
	}
	if err := emit(run); err != nil {
		return err
	}
	if run.HasFailures() {
		return fmt.Errorf("%d of %d dataset(s) did not sync cleanly", countUnclean(run), len(run.Datasets))
	}
	return nil
}

func emitReport(w io.Writer, run types.RunReport, jsonOut bool, reportFile string) error {
	if jsonOut {
		if err := batch.FormatJSON(run, w); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w)
		batch.FormatTable(run, w)
	}
	if reportFile != "" {
		if err := batch.WriteReportFile(run, reportFile); err != nil {
			return err
		}
	}
	return nil
}

func countUnclean(run types.RunReport) int {
	n := 0
	for _, d := range run.Datasets {
		if !d.OK() {
			n++
		}
	}
	return n
}
