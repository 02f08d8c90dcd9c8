// Package sqlite is the persistent cache.Store backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/bookdigest/internal/cache"
)

type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the cache database at path with WAL enabled.
func OpenSQLite(ctx context.Context, path string) (cache.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// One writer keeps last-write-wins ordering simple.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, now: time.Now}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS stage_cache (
	doc_id     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	group_id   TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (doc_id, kind, group_id)
);
CREATE INDEX IF NOT EXISTS idx_stage_cache_doc ON stage_cache(doc_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	key, err := key.Normalize()
	if err != nil {
		return cache.Entry{}, false, err
	}
	var payload, updated string
	err = s.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM stage_cache WHERE doc_id = ? AND kind = ? AND group_id = ?`,
		key.DocID, string(key.Kind), key.GroupID,
	).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("get %s: %w", key, err)
	}

	var e cache.Entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return cache.Entry{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		e.UpdatedAt = ts
	}
	return e, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key cache.Key, e cache.Entry) error {
	key, err := key.Normalize()
	if err != nil {
		return err
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = s.now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO stage_cache (doc_id, kind, group_id, payload, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(doc_id, kind, group_id) DO UPDATE SET
	payload = excluded.payload,
	updated_at = excluded.updated_at`,
		key.DocID, string(key.Kind), key.GroupID, string(payload), e.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) Invalidate(ctx context.Context, docID string, kind cache.Kind) (int, error) {
	if _, err := cache.ParseKind(string(kind)); err != nil {
		return 0, err
	}
	var (
		res sql.Result
		err error
	)
	if kind == cache.KindAll {
		res, err = s.db.ExecContext(ctx, `DELETE FROM stage_cache WHERE doc_id = ?`, docID)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM stage_cache WHERE doc_id = ? AND kind = ?`, docID, string(kind))
	}
	if err != nil {
		return 0, fmt.Errorf("invalidate %s/%s: %w", docID, kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *sqliteStore) InvalidateGroup(ctx context.Context, docID string, kind cache.Kind, groupID string) (bool, error) {
	key, err := cache.Key{DocID: docID, Kind: kind, GroupID: groupID}.Normalize()
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM stage_cache WHERE doc_id = ? AND kind = ? AND group_id = ?`,
		key.DocID, string(key.Kind), key.GroupID,
	)
	if err != nil {
		return false, fmt.Errorf("invalidate %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
