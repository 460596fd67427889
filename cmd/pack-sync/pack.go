// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pack-sync/internal/store"
	"github.com/pdiddy/pack-sync/pkg/types"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Manage record packs",
	Long: `Pack manages the record packs that datasets sync into: create and list
packs, inspect their records, lock or unlock them, and export their contents
in dataset shape.`,
}

var packCreateCmd = &cobra.Command{
	Use:   "create <collection>",
	Short: "Create an empty pack",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackCreate,
}

var packListCmd = &cobra.Command{
	Use:   "list",
	Short: "List packs",
	Args:  cobra.NoArgs,
	RunE:  runPackList,
}

var packShowCmd = &cobra.Command{
	Use:   "show <collection>",
	Short: "Show a pack and its records",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackShow,
}

var packLockCmd = &cobra.Command{
	Use:   "lock <collection>",
	Short: "Lock a pack against writes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLocked(cmd, args[0], true)
	},
}

var packUnlockCmd = &cobra.Command{
	Use:   "unlock <collection>",
	Short: "Unlock a pack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLocked(cmd, args[0], false)
	},
}

var packExportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Export a pack in dataset shape",
	Long: `Export writes every record of a pack as a dataset document. The JSON
form can be synced into another database with pack-sync sync.`,
	Args: cobra.ExactArgs(1),
	RunE: runPackExport,
}

func init() {
	packCreateCmd.Flags().String("type", store.DefaultDocumentType, "document type assumed for records without one")
	packCreateCmd.Flags().String("system", "", "game system or domain of the pack")
	packCreateCmd.Flags().String("label", "", "human-readable pack name")
	packCreateCmd.Flags().Bool("locked", false, "create the pack locked")

	packExportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	packExportCmd.Flags().String("out", "", "output file (default stdout)")

	packCmd.AddCommand(packCreateCmd, packListCmd, packShowCmd, packLockCmd, packUnlockCmd, packExportCmd)
	rootCmd.AddCommand(packCmd)
}

func openStore() (*store.DB, error) {
	return store.Open(loadedSecrets.ApplyStore(storeConfig(viper.GetViper())))
}

func runPackCreate(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	docType, _ := cmd.Flags().GetString("type")
	system, _ := cmd.Flags().GetString("system")
	label, _ := cmd.Flags().GetString("label")
	locked, _ := cmd.Flags().GetBool("locked")

	desc := types.PackDescriptor{
		Collection: args[0],
		Type:       docType,
		System:     system,
		Label:      label,
		Locked:     locked,
	}
	if err := db.CreatePack(cmd.Context(), desc); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created pack %s\n", desc.Collection)
	return nil
}

func runPackList(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	packs, err := db.Packs(cmd.Context())
	if err != nil {
		return err
	}
	formatPacks(packs, cmd.OutOrStdout())
	return nil
}

func formatPacks(packs []types.PackDescriptor, w io.Writer) {
	if len(packs) == 0 {
		fmt.Fprintln(w, "No packs.")
		return
	}
	fmt.Fprintf(w, "%-40s  %-30s  %-10s  %s\n", "Collection", "Label", "Type", "Locked")
	fmt.Fprintln(w, strings.Repeat("-", 92))
	for _, p := range packs {
		fmt.Fprintf(w, "%-40s  %-30s  %-10s  %v\n", p.Collection, p.Label, p.Type, p.Locked)
	}
}

func runPackShow(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := db.Pack(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	entries, err := p.Index(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	d := p.Descriptor()
	fmt.Fprintf(w, "Collection: %s\n", d.Collection)
	fmt.Fprintf(w, "Label:      %s\n", p.Label())
	fmt.Fprintf(w, "Type:       %s\n", p.DefaultType())
	if d.System != "" {
		fmt.Fprintf(w, "System:     %s\n", d.System)
	}
	fmt.Fprintf(w, "Locked:     %v\n", d.Locked)
	fmt.Fprintf(w, "Records:    %d\n", len(entries))
	if len(entries) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-20s  %-40s  %s\n", "ID", "Name", "Type")
	fmt.Fprintln(w, strings.Repeat("-", 76))
	for _, e := range entries {
		fmt.Fprintf(w, "%-20s  %-40s  %s\n", e.ID, e.Name, e.Type)
	}
	return nil
}

func setLocked(cmd *cobra.Command, collection string, locked bool) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SetLocked(cmd.Context(), collection, locked); err != nil {
		return err
	}
	state := "unlocked"
	if locked {
		state = "locked"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, collection)
	return nil
}

func runPackExport(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := store.ParseExportFormat(formatFlag)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := db.Pack(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	ds, err := p.Export(cmd.Context())
	if err != nil {
		return err
	}

	if out == "" {
		return store.WriteExport(cmd.OutOrStdout(), ds, format)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := store.WriteExport(f, ds, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "exported %d record(s) from %s to %s\n", len(ds.Documents), ds.Pack.Collection, out)
	return nil
}
