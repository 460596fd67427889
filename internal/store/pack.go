// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pdiddy/pack-sync/internal/patch"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// Pack is one collection of records. Its listing is read once and kept
// until Reload, so records written through the pack do not appear in
// Index until the pack is reloaded. Record bodies are cached by id.
//
// A Pack is not safe for concurrent use.
type Pack struct {
	db      *DB
	meta    types.PackDescriptor
	listing []types.IndexEntry
	loaded  bool
	cache   *lru.Cache[string, types.Record]
}

func newPack(d *DB, meta types.PackDescriptor) (*Pack, error) {
	cache, err := lru.New[string, types.Record](d.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating record cache: %w", err)
	}
	return &Pack{db: d, meta: meta, cache: cache}, nil
}

// Collection returns the pack address.
func (p *Pack) Collection() string { return p.meta.Collection }

// Label returns the display name.
func (p *Pack) Label() string { return p.meta.DisplayName() }

// Descriptor returns the pack metadata as last loaded.
func (p *Pack) Descriptor() types.PackDescriptor { return p.meta }

// DefaultType is the type assumed for records that carry none.
func (p *Pack) DefaultType() string {
	if p.meta.Type == "" {
		return DefaultDocumentType
	}
	return p.meta.Type
}

// Locked reports whether the pack rejects writes.
func (p *Pack) Locked() bool { return p.meta.Locked }

// Unlock clears the lock flag.
func (p *Pack) Unlock(ctx context.Context) error {
	if err := p.db.SetLocked(ctx, p.meta.Collection, false); err != nil {
		return err
	}
	p.meta.Locked = false
	return nil
}

// Lock sets the lock flag.
func (p *Pack) Lock(ctx context.Context) error {
	if err := p.db.SetLocked(ctx, p.meta.Collection, true); err != nil {
		return err
	}
	p.meta.Locked = true
	return nil
}

// Index returns the pack listing, loading it on first use.
func (p *Pack) Index(ctx context.Context) ([]types.IndexEntry, error) {
	if !p.loaded {
		if err := p.loadListing(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]types.IndexEntry, len(p.listing))
	copy(out, p.listing)
	return out, nil
}

// Reload re-reads the pack metadata and listing and drops cached bodies.
func (p *Pack) Reload(ctx context.Context) error {
	meta, err := p.db.descriptor(ctx, p.meta.Collection)
	if err != nil {
		return err
	}
	p.meta = meta
	p.cache.Purge()
	return p.loadListing(ctx)
}

func (p *Pack) loadListing(ctx context.Context) error {
	rows, err := p.db.db.QueryContext(ctx, p.db.rebind(
		`SELECT id, name, type FROM records WHERE collection = ? ORDER BY seq`),
		p.meta.Collection,
	)
	if err != nil {
		return fmt.Errorf("listing %s: %w", p.meta.Collection, err)
	}
	defer rows.Close()

	var listing []types.IndexEntry
	for rows.Next() {
		var e types.IndexEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Type); err != nil {
			return fmt.Errorf("scanning listing row: %w", err)
		}
		listing = append(listing, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing %s: %w", p.meta.Collection, err)
	}
	p.listing = listing
	p.loaded = true
	return nil
}

// Get returns a copy of the record stored under id.
func (p *Pack) Get(ctx context.Context, id string) (types.Record, error) {
	if rec, ok := p.cache.Get(id); ok {
		return rec.Clone(), nil
	}
	rec, err := p.read(ctx, p.db.db, id)
	if err != nil {
		return nil, err
	}
	p.cache.Add(id, rec)
	return rec.Clone(), nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Pack) read(ctx context.Context, q queryer, id string) (types.Record, error) {
	var body string
	err := q.QueryRowContext(ctx, p.db.rebind(
		`SELECT body FROM records WHERE collection = ? AND id = ?`),
		p.meta.Collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s in %s: %w", id, p.meta.Collection, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id, err)
	}
	rec, err := types.DecodeRecord([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return rec, nil
}

// Update deep-merges fields into the record stored under id. A field
// set absent from fields is left untouched. If fields carries an _id it
// must equal id.
func (p *Pack) Update(ctx context.Context, id string, fields types.Record) error {
	if err := p.writable(); err != nil {
		return err
	}
	if fid := fields.ID(); fid != "" && fid != id {
		return fmt.Errorf("update for %s carries _id %s", id, fid)
	}

	tx, err := p.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := p.read(ctx, tx, id)
	if err != nil {
		return err
	}
	patch.Merge(rec, fields)
	rec[types.FieldID] = id

	if err := p.write(ctx, tx, id, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update of %s: %w", id, err)
	}
	p.cache.Remove(id)
	return nil
}

// Replace overwrites the record stored under id with rec. The stored
// record keeps id whatever identifier rec carries.
func (p *Pack) Replace(ctx context.Context, id string, rec types.Record) error {
	if err := p.writable(); err != nil {
		return err
	}
	rec = rec.Clone()
	rec[types.FieldID] = id

	if err := p.write(ctx, p.db.db, id, rec); err != nil {
		return err
	}
	p.cache.Remove(id)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (p *Pack) write(ctx context.Context, x execer, id string, rec types.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", id, err)
	}
	res, err := x.ExecContext(ctx, p.db.rebind(
		`UPDATE records SET name = ?, type = ?, body = ?, updated_at = ? WHERE collection = ? AND id = ?`),
		rec.Name(), rec.Type(), string(body), now(), p.meta.Collection, id,
	)
	if err != nil {
		return fmt.Errorf("writing record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s in %s: %w", id, p.meta.Collection, ErrNotFound)
	}
	return nil
}

// CreatePreservingIdentity constructs a record of the pack's document
// type from rec and inserts it under rec's identifier. Records without a
// type are stamped with the pack default. It fails when rec has no _id
// or the id is already taken.
func (p *Pack) CreatePreservingIdentity(ctx context.Context, rec types.Record) (string, error) {
	if err := p.writable(); err != nil {
		return "", err
	}
	doc, err := p.construct(rec)
	if err != nil {
		return "", err
	}
	id := doc.ID()

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding record %s: %w", id, err)
	}
	res, err := p.db.db.ExecContext(ctx, p.db.rebind(
		`INSERT INTO records (collection, id, name, type, body, updated_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE collection = ?))
		 ON CONFLICT(collection, id) DO NOTHING`),
		p.meta.Collection, id, doc.Name(), doc.Type(), string(body), now(), p.meta.Collection,
	)
	if err != nil {
		return "", fmt.Errorf("inserting record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("record %s in %s: %w", id, p.meta.Collection, ErrAlreadyExists)
	}
	return id, nil
}

func (p *Pack) construct(rec types.Record) (types.Record, error) {
	doc := rec.Clone()
	if doc == nil {
		return nil, fmt.Errorf("constructing record: empty document")
	}
	if doc.ID() == "" {
		return nil, fmt.Errorf("constructing record %q: missing %s", doc.Name(), types.FieldID)
	}
	if doc.Type() == "" {
		doc[types.FieldType] = p.DefaultType()
	}
	return doc, nil
}

func (p *Pack) writable() error {
	if p.meta.Locked {
		return fmt.Errorf("%s: %w", p.meta.Collection, ErrPackLocked)
	}
	return nil
}

// Records returns every record in the pack ordered by name then id.
func (p *Pack) Records(ctx context.Context) ([]types.Record, error) {
	rows, err := p.db.db.QueryContext(ctx, p.db.rebind(
		`SELECT id, body FROM records WHERE collection = ? ORDER BY name, id`),
		p.meta.Collection,
	)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.meta.Collection, err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec, err := types.DecodeRecord([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("decoding record %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
