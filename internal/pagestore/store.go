/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package pagestore is the durable page store of the edit core: it persists
// the latest edited payload per (template, page) key across editor restarts.
// Loss of this data only degrades UX (the shopper re-does an edit); the
// authoritative save target is the remote backend. The Soft wrapper therefore
// degrades every backend failure to absent/no-op instead of surfacing it.
package pagestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"smartwish/internal/domain"
	applog "smartwish/internal/log"
)

// ErrNotFound reports an absent record.
var ErrNotFound = errors.New("pagestore: record not found")

// Store persists PageEditRecords keyed by composite page key.
// Put overwrites any existing record for the same key (last write wins).
type Store interface {
	Put(ctx context.Context, rec *domain.PageEditRecord) error
	Get(ctx context.Context, key domain.Key) (*domain.PageEditRecord, error)
	Delete(ctx context.Context, key domain.Key) error
	// SweepExpired removes records older than maxAge and reports how many.
	SweepExpired(ctx context.Context, maxAge time.Duration) (int, error)
	Close() error
}

// Open constructs a store for the given driver: "sqlite", "filesystem" or
// "memory". path is the database file or base directory; ignored for memory.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "sqlite":
		if path == "" {
			path = "smartwish-edits.sqlite"
		}
		return openSQLite(path)
	case "filesystem":
		if path == "" {
			path = "./edit-cache"
		}
		return openFilesystem(path)
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("pagestore: unknown driver %q", driver)
	}
}

// Soft wraps a store so that no failure ever reaches the caller; errors are
// logged and reads degrade to absent. A nil inner store behaves as an always
// absent store, which covers execution contexts where durable storage could
// not be opened at all.
type Soft struct {
	inner Store
	log   *slog.Logger
}

// NewSoft wraps s. s may be nil.
func NewSoft(s Store) *Soft {
	return &Soft{inner: s, log: applog.WithComponent("pagestore")}
}

// Put upserts best-effort.
func (s *Soft) Put(ctx context.Context, rec *domain.PageEditRecord) {
	if s.inner == nil {
		return
	}
	if err := s.inner.Put(ctx, rec); err != nil {
		s.log.Warn("durable put failed", slog.String("key", string(rec.Key)), slog.Any("err", err))
	}
}

// Get returns the record for key, or ok=false when absent or unreachable.
func (s *Soft) Get(ctx context.Context, key domain.Key) (*domain.PageEditRecord, bool) {
	if s.inner == nil {
		return nil, false
	}
	rec, err := s.inner.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("durable get failed", slog.String("key", string(key)), slog.Any("err", err))
		}
		return nil, false
	}
	return rec, true
}

// Delete removes the record best-effort; idempotent.
func (s *Soft) Delete(ctx context.Context, key domain.Key) {
	if s.inner == nil {
		return
	}
	if err := s.inner.Delete(ctx, key); err != nil {
		s.log.Warn("durable delete failed", slog.String("key", string(key)), slog.Any("err", err))
	}
}

// Sweep removes expired records best-effort and reports how many were removed.
func (s *Soft) Sweep(ctx context.Context, maxAge time.Duration) int {
	if s.inner == nil {
		return 0
	}
	n, err := s.inner.SweepExpired(ctx, maxAge)
	if err != nil {
		s.log.Warn("sweep failed", slog.Any("err", err))
	}
	if n > 0 {
		s.log.Info("swept expired page edits", slog.Int64("removed", int64(n)))
	}
	return n
}

// Close releases the underlying store.
func (s *Soft) Close() {
	if s.inner == nil {
		return
	}
	if err := s.inner.Close(); err != nil {
		s.log.Warn("store close failed", slog.Any("err", err))
	}
}
