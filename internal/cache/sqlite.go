package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/docforge/pdfmd/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversions (
	fingerprint TEXT PRIMARY KEY,
	payload     BLOB NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions (created_at);
`

// SQLiteBackend persists entries in a local SQLite file, surviving process
// restarts.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the cache database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, domain.IOError("opening sqlite cache", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, domain.IOError("initializing sqlite cache schema", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Get(ctx context.Context, fp domain.Fingerprint) (*domain.CacheEntry, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM conversions WHERE fingerprint = ?`, fp.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *SQLiteBackend) Set(ctx context.Context, fp domain.Fingerprint, entry domain.CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversions (fingerprint, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET payload = excluded.payload`,
		fp.String(), payload, entry.CreatedAt.Unix())
	return err
}

func (s *SQLiteBackend) Delete(ctx context.Context, fp domain.Fingerprint) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversions WHERE fingerprint = ?`, fp.String())
	return err
}

func (s *SQLiteBackend) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversions`)
	return err
}

func (s *SQLiteBackend) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversions`).Scan(&n)
	return n, err
}

func (s *SQLiteBackend) Prune(ctx context.Context, maxEntries int, maxAge time.Duration) (int, error) {
	removed := 0

	if maxAge > 0 {
		cutoff := time.Now().UTC().Add(-maxAge).Unix()
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM conversions WHERE created_at < ?`, cutoff)
		if err != nil {
			return removed, err
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += int(n)
		}
	}

	if maxEntries > 0 {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM conversions WHERE fingerprint IN (
				SELECT fingerprint FROM conversions
				ORDER BY created_at DESC LIMIT -1 OFFSET ?
			)`, maxEntries)
		if err != nil {
			return removed, err
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += int(n)
		}
	}
	return removed, nil
}

func (s *SQLiteBackend) Close() error { return s.db.Close() }
