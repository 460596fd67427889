// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists packs and their records in SQLite (default) or
// Postgres. A Pack is the record store the upsert engine writes through.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pack-sync/pkg/types"
)

const (
	dbFile           = "packs.db"
	defaultCacheSize = 512

	// DefaultDocumentType is used for packs created without a type.
	DefaultDocumentType = "Item"
)

// Errors returned by the store. Record-level errors are the shared
// sentinels from pkg/types so callers need not import this package.
var (
	ErrNotFound      = types.ErrNotFound
	ErrAlreadyExists = types.ErrAlreadyExists
	ErrPackLocked    = types.ErrPackLocked
	ErrPackNotFound  = fmt.Errorf("pack %w", types.ErrNotFound)
)

// DB is an open pack database.
type DB struct {
	db        *sql.DB
	driver    types.StoreDriver
	cacheSize int
}

// Open opens or creates the pack database described by cfg and creates
// the schema if it does not exist. The sqlite driver stores its file at
// DataDir/packs.db; the postgres driver connects with DSN through pgx.
func Open(cfg types.StoreConfig) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = types.DriverSQLite
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case types.DriverSQLite:
		dir := cfg.DataDir
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		db, err = sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	case types.DriverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
		db, err = sql.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	d := &DB{db: db, driver: driver, cacheSize: cacheSize}
	if err := d.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return d, nil
}

// Close releases the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS packs (
			collection TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			document_type TEXT NOT NULL DEFAULT '',
			system TEXT NOT NULL DEFAULT '',
			locked INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL REFERENCES packs(collection),
			id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_name ON records(collection, name)`,
	}
	for _, stmt := range statements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (d *DB) rebind(query string) string {
	if d.driver != types.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CreatePack registers a new, unlocked pack. It fails with
// ErrAlreadyExists when the collection is taken.
func (d *DB) CreatePack(ctx context.Context, p types.PackDescriptor) error {
	if strings.TrimSpace(p.Collection) == "" {
		return fmt.Errorf("pack collection is required")
	}
	docType := p.Type
	if docType == "" {
		docType = DefaultDocumentType
	}
	res, err := d.db.ExecContext(ctx, d.rebind(
		`INSERT INTO packs (collection, label, document_type, system, locked) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection) DO NOTHING`),
		p.Collection, p.Label, docType, p.System, boolInt(p.Locked),
	)
	if err != nil {
		return fmt.Errorf("creating pack %s: %w", p.Collection, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pack %s: %w", p.Collection, ErrAlreadyExists)
	}
	return nil
}

// Packs lists every pack ordered by collection.
func (d *DB) Packs(ctx context.Context) ([]types.PackDescriptor, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT collection, label, document_type, system, locked FROM packs ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("listing packs: %w", err)
	}
	defer rows.Close()

	var packs []types.PackDescriptor
	for rows.Next() {
		var (
			p      types.PackDescriptor
			locked int
		)
		if err := rows.Scan(&p.Collection, &p.Label, &p.Type, &p.System, &locked); err != nil {
			return nil, fmt.Errorf("scanning pack: %w", err)
		}
		p.Locked = locked != 0
		packs = append(packs, p)
	}
	return packs, rows.Err()
}

// Pack opens the named pack. It fails with ErrPackNotFound when the
// collection does not exist.
func (d *DB) Pack(ctx context.Context, collection string) (*Pack, error) {
	meta, err := d.descriptor(ctx, collection)
	if err != nil {
		return nil, err
	}
	return newPack(d, meta)
}

// SetLocked sets a pack's lock flag.
func (d *DB) SetLocked(ctx context.Context, collection string, locked bool) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`UPDATE packs SET locked = ? WHERE collection = ?`),
		boolInt(locked), collection)
	if err != nil {
		return fmt.Errorf("updating lock on %s: %w", collection, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", collection, ErrPackNotFound)
	}
	return nil
}

func (d *DB) descriptor(ctx context.Context, collection string) (types.PackDescriptor, error) {
	var (
		p      types.PackDescriptor
		locked int
	)
	err := d.db.QueryRowContext(ctx, d.rebind(
		`SELECT collection, label, document_type, system, locked FROM packs WHERE collection = ?`),
		collection,
	).Scan(&p.Collection, &p.Label, &p.Type, &p.System, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PackDescriptor{}, fmt.Errorf("%s: %w", collection, ErrPackNotFound)
	}
	if err != nil {
		return types.PackDescriptor{}, fmt.Errorf("loading pack %s: %w", collection, err)
	}
	p.Locked = locked != 0
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
