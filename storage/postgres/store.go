// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package postgres writes records directly into the application's PostgreSQL
// database, one SQL transaction per batch.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/lib/pq"
	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/storage"
)

const (
	insertSQL = `INSERT INTO songs (id, title, author, lyrics, language, translation, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

	bumpCounterSQL = `UPDATE edit_count SET count = count + $1`

	// SchemaSQL creates the tables the store writes to when they don't exist.
	SchemaSQL = `CREATE TABLE IF NOT EXISTS songs (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    author      TEXT NOT NULL DEFAULT '',
    lyrics      TEXT NOT NULL,
    language    TEXT NOT NULL,
    translation TEXT NOT NULL DEFAULT 'no',
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS edit_count (
    count BIGINT NOT NULL DEFAULT 0
);
INSERT INTO edit_count (count) SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM edit_count);`
)

// Store is a storage.Destination writing to PostgreSQL.
type Store struct {
	db     *sql.DB
	dsn    string
	logger *slog.Logger
}

var (
	_ storage.Destination = (*Store)(nil)
	_ storage.Describer   = (*Store)(nil)
)

// Open opens a connection pool for dsn. It does not contact the server; use Ping.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db, dsn, logger), nil
}

// New wraps an existing *sql.DB.
func New(db *sql.DB, dsn string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		dsn:    dsn,
		logger: logger.With("component", "postgres"),
	}
}

// Describe names the database for the confirmation prompt, without credentials.
func (s *Store) Describe() string {
	return "PostgreSQL " + redactDSN(s.dsn)
}

// EnsureSchema creates the songs and edit_count tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return nil
}

// Commit inserts records in one transaction. Existing ids are ignored.
func (s *Store) Commit(ctx context.Context, records []*core.Record) (result storage.CommitResult, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("%w: begin: %w", storage.ErrTransactionFailed, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("rollback failed", "error", rbErr)
			}
			result = storage.CommitResult{}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return result, fmt.Errorf("%w: prepare: %w", storage.ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.ID, r.Title, r.Author, r.Body, r.Label, string(r.Translation), r.CreatedAt, r.UpdatedAt)
		if IsUniqueViolation(err) {
			return result, fmt.Errorf("%w: %w: insert %q: %w", storage.ErrTransactionFailed, storage.ErrDuplicateKey, r.Title, err)
		}
		if err != nil {
			return result, fmt.Errorf("%w: insert %q: %w", storage.ErrTransactionFailed, r.Title, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
		}
		if n == 0 {
			result.Ignored++
			result.IgnoredIDs = append(result.IgnoredIDs, r.ID)
		} else {
			result.Inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("%w: commit: %w", storage.ErrTransactionFailed, err)
	}
	return result, nil
}

// Finalize adds committed to the edit counter.
func (s *Store) Finalize(ctx context.Context, committed int) error {
	if committed <= 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, bumpCounterSQL, committed); err != nil {
		return fmt.Errorf("%w: update edit count: %w", storage.ErrFinalizeFailed, err)
	}
	s.logger.Info("edit count updated", "delta", committed)
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of rows in songs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&n)
	return n, err
}

// EditCount returns the current edit counter.
func (s *Store) EditCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count FROM edit_count LIMIT 1`).Scan(&n)
	return n, err
}

// Records returns every row in songs ordered by language then title.
func (s *Store) Records(ctx context.Context) ([]*core.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, author, lyrics, language, translation, created_at, updated_at
		 FROM songs ORDER BY language, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*core.Record
	for rows.Next() {
		var (
			r           core.Record
			translation string
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Author, &r.Body, &r.Label, &translation, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Translation = core.TranslationFlag(translation)
		r.Checksum = core.ContentChecksum(r.Body)
		records = append(records, &r)
	}
	return records, rows.Err()
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// redactDSN strips the password from URL-form DSNs.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "database"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}
