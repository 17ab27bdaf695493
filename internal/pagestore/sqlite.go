/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pagestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"smartwish/internal/domain"
	applog "smartwish/internal/log"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// language=SQL
// dialect=SQLite
const upsertEditSQL = `INSERT INTO page_edits(key, history_len, history_index, has_changes, payload, ts)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	history_len = excluded.history_len,
	history_index = excluded.history_index,
	has_changes = excluded.has_changes,
	payload = excluded.payload,
	ts = excluded.ts`

// language=SQL
// dialect=SQLite
const selectEditSQL = `SELECT history_len, history_index, has_changes, payload, ts FROM page_edits WHERE key = ?`

// language=SQL
// dialect=SQLite
const deleteEditSQL = `DELETE FROM page_edits WHERE key = ?`

// language=SQL
// dialect=SQLite
const sweepEditsSQL = `DELETE FROM page_edits WHERE ts < ?`

type sqliteStore struct {
	db *sql.DB
}

// openSQLite opens (creating if needed) the edit cache database at path,
// enables WAL mode, and ensures the schema exists.
func openSQLite(path string) (*sqliteStore, error) {
	l := applog.WithOperation(applog.WithComponent("pagestore"), "sqlite_open").With(
		slog.String("path", path),
	)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage; keep the pool minimal.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS page_edits (
		key           TEXT PRIMARY KEY,
		history_len   INTEGER NOT NULL,
		history_index INTEGER NOT NULL,
		has_changes   INTEGER NOT NULL,
		payload       BLOB,
		ts            TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	l.Info("edit cache ready")
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Put(ctx context.Context, rec *domain.PageEditRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	hasChanges := 0
	if rec.HasChanges {
		hasChanges = 1
	}
	_, err := s.db.ExecContext(ctx, upsertEditSQL,
		string(rec.Key), rec.HistoryLen, rec.HistoryIndex, hasChanges, rec.Payload,
		rec.Timestamp.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *sqliteStore) Get(ctx context.Context, key domain.Key) (*domain.PageEditRecord, error) {
	var (
		rec        = domain.PageEditRecord{Key: key}
		hasChanges int
		tsStr      string
	)
	err := s.db.QueryRowContext(ctx, selectEditSQL, string(key)).
		Scan(&rec.HistoryLen, &rec.HistoryIndex, &hasChanges, &rec.Payload, &tsStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.HasChanges = hasChanges != 0
	if ts, perr := time.Parse(time.RFC3339Nano, tsStr); perr == nil {
		rec.Timestamp = ts
	}
	return &rec, nil
}

func (s *sqliteStore) Delete(ctx context.Context, key domain.Key) error {
	_, err := s.db.ExecContext(ctx, deleteEditSQL, string(key))
	return err
}

func (s *sqliteStore) SweepExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, sweepEditsSQL, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }
