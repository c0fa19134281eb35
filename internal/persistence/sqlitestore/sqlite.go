// Package sqlitestore keeps item documents in a SQLite database, one JSON row
// per item. Every mutation is a read-modify-write inside a transaction.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"socketcraft.ai/internal/item"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			sort INTEGER NOT NULL DEFAULT 0,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id, sort, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces a document as-is. An empty id is assigned.
func (s *Store) Put(ctx context.Context, it *item.Item) (*item.Item, error) {
	cp := it.Clone()
	if cp.ID == "" {
		cp.ID = item.NewID()
	}
	if err := s.write(ctx, s.db, cp, true); err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *Store) Item(ctx context.Context, uuid string) (*item.Item, error) {
	return s.lookup(ctx, s.db, uuid)
}

func (s *Store) ItemsOwnedBy(ctx context.Context, ownerID string) ([]*item.Item, error) {
	if ownerID == "" {
		return nil, nil
	}
	return s.query(ctx, `SELECT id, owner_id, json FROM items WHERE owner_id=? ORDER BY sort, id`, ownerID)
}

// All returns every stored document ordered by sort then id.
func (s *Store) All(ctx context.Context) ([]*item.Item, error) {
	return s.query(ctx, `SELECT id, owner_id, json FROM items ORDER BY sort, id`)
}

func (s *Store) CreateItem(ctx context.Context, ownerID string, it *item.Item) (*item.Item, error) {
	cp := it.Clone()
	cp.OwnerID = ownerID
	if cp.ID == "" {
		cp.ID = item.NewID()
	}
	if err := s.write(ctx, s.db, cp, false); err != nil {
		return nil, fmt.Errorf("create item %s: %w", cp.ID, err)
	}
	return cp.Clone(), nil
}

func (s *Store) SetQuantity(ctx context.Context, uuid string, n int) error {
	return s.update(ctx, uuid, func(it *item.Item) error {
		it.SetQuantity(n)
		return nil
	})
}

func (s *Store) DeleteItem(ctx context.Context, uuid string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		it, err := s.lookup(ctx, tx, uuid)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM items WHERE id=?`, it.ID)
		return err
	})
}

func (s *Store) Flag(ctx context.Context, uuid, ns, key string) (json.RawMessage, error) {
	it, err := s.lookup(ctx, s.db, uuid)
	if err != nil {
		return nil, err
	}
	raw, ok := it.Flag(ns, key)
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (s *Store) SetFlag(ctx context.Context, uuid, ns, key string, raw json.RawMessage) error {
	return s.update(ctx, uuid, func(it *item.Item) error {
		it.SetFlag(ns, key, raw)
		return nil
	})
}

func (s *Store) Effects(ctx context.Context, uuid string) ([]item.Effect, error) {
	it, err := s.lookup(ctx, s.db, uuid)
	if err != nil {
		return nil, err
	}
	if it.Effects == nil {
		return []item.Effect{}, nil
	}
	return it.Effects, nil
}

func (s *Store) CreateEffects(ctx context.Context, uuid string, effects []item.Effect) ([]item.Effect, error) {
	var created []item.Effect
	err := s.update(ctx, uuid, func(it *item.Item) error {
		var err error
		created, err = it.AddEffects(effects)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateEffects(ctx context.Context, uuid string, effects []item.Effect) error {
	return s.update(ctx, uuid, func(it *item.Item) error {
		return it.ReplaceEffects(effects)
	})
}

func (s *Store) DeleteEffects(ctx context.Context, uuid string, ids []string) error {
	return s.update(ctx, uuid, func(it *item.Item) error {
		it.DropEffects(ids)
		return nil
	})
}

func (s *Store) ApplyActivityUpdate(ctx context.Context, uuid string, u item.ActivityUpdate) error {
	return s.update(ctx, uuid, func(it *item.Item) error {
		u.Apply(it)
		return nil
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// update loads uuid, applies fn and writes the result back in one transaction.
func (s *Store) update(ctx context.Context, uuid string, fn func(*item.Item) error) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		it, err := s.lookup(ctx, tx, uuid)
		if err != nil {
			return err
		}
		if err := fn(it); err != nil {
			return err
		}
		return s.write(ctx, tx, it, true)
	})
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) lookup(ctx context.Context, q queryer, uuid string) (*item.Item, error) {
	ownerID, id, ok := item.ParseUUID(uuid)
	if !ok {
		return nil, fmt.Errorf("%q: %w", uuid, item.ErrNotFound)
	}
	var owner, raw string
	err := q.QueryRowContext(ctx, `SELECT owner_id, json FROM items WHERE id=?`, id).Scan(&owner, &raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != ownerID) {
		return nil, fmt.Errorf("%q: %w", uuid, item.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decode(id, owner, raw)
}

func (s *Store) write(ctx context.Context, q queryer, it *item.Item, replace bool) error {
	b, err := json.Marshal(it)
	if err != nil {
		return err
	}
	verb := "INSERT"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	_, err = q.ExecContext(ctx, verb+` INTO items(id, owner_id, sort, json, updated_at) VALUES(?,?,?,?,?)`,
		it.ID, it.OwnerID, it.Sort, string(b), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*item.Item, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*item.Item
	for rows.Next() {
		var id, owner, raw string
		if err := rows.Scan(&id, &owner, &raw); err != nil {
			return nil, err
		}
		it, err := decode(id, owner, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func decode(id, owner, raw string) (*item.Item, error) {
	var it item.Item
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		return nil, fmt.Errorf("item %s: %w", id, err)
	}
	it.ID = id
	it.OwnerID = owner
	return &it, nil
}
