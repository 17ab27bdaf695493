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
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"smartwish/internal/domain"
)

func testRecord(key domain.Key, ts time.Time) *domain.PageEditRecord {
	return &domain.PageEditRecord{
		Key:          key,
		HistoryLen:   3,
		HistoryIndex: 2,
		HasChanges:   true,
		Payload:      []byte("payload-bytes"),
		Timestamp:    ts,
	}
}

// eachBackend runs the given test against every store backend.
func eachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	backends := []struct {
		name string
		open func(t *testing.T) Store
	}{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"filesystem", func(t *testing.T) Store {
			s, err := Open("filesystem", t.TempDir())
			if err != nil {
				t.Fatalf("open filesystem store: %v", err)
			}
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := Open("sqlite", filepath.Join(t.TempDir(), "edits.sqlite"))
			if err != nil {
				t.Fatalf("open sqlite store: %v", err)
			}
			return s
		}},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func TestPutGetDelete(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := domain.NewKey("bday-001", 1)

		if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Fatalf("get before put: want ErrNotFound, got %v", err)
		}

		rec := testRecord(key, time.Now())
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.HistoryLen != 3 || got.HistoryIndex != 2 || !got.HasChanges {
			t.Fatalf("record fields lost: %+v", got)
		}
		if !bytes.Equal(got.Payload, rec.Payload) {
			t.Fatalf("payload mismatch")
		}

		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Fatalf("get after delete: want ErrNotFound, got %v", err)
		}
		// Idempotent delete.
		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("second delete: %v", err)
		}
	})
}

func TestPutOverwritesLastWriteWins(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := domain.NewKey("tpl", 0)
		first := testRecord(key, time.Now())
		if err := s.Put(ctx, first); err != nil {
			t.Fatalf("put: %v", err)
		}
		second := testRecord(key, time.Now())
		second.Payload = []byte("newer")
		second.HistoryLen = 5
		second.HistoryIndex = 4
		if err := s.Put(ctx, second); err != nil {
			t.Fatalf("overwrite put: %v", err)
		}
		got, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got.Payload) != "newer" || got.HistoryLen != 5 {
			t.Fatalf("overwrite not visible: %+v", got)
		}
	})
}

func TestPutRejectsInvalidRecord(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		rec := testRecord(domain.NewKey("tpl", 0), time.Now())
		rec.HistoryIndex = rec.HistoryLen // violates index < len
		if err := s.Put(context.Background(), rec); err == nil {
			t.Fatalf("invalid record accepted")
		}
	})
}

func TestSweepExpired(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		old := testRecord(domain.NewKey("tpl", 0), time.Now().Add(-48*time.Hour))
		fresh := testRecord(domain.NewKey("tpl", 1), time.Now())
		if err := s.Put(ctx, old); err != nil {
			t.Fatalf("put old: %v", err)
		}
		if err := s.Put(ctx, fresh); err != nil {
			t.Fatalf("put fresh: %v", err)
		}

		n, err := s.SweepExpired(ctx, 24*time.Hour)
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if n != 1 {
			t.Fatalf("swept %d records, want 1", n)
		}
		if _, err := s.Get(ctx, old.Key); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expired record survived sweep")
		}
		if _, err := s.Get(ctx, fresh.Key); err != nil {
			t.Fatalf("fresh record swept: %v", err)
		}
	})
}

func TestSoftWrapsFailuresAsAbsent(t *testing.T) {
	soft := NewSoft(nil) // no durable storage available at all
	ctx := context.Background()
	key := domain.NewKey("tpl", 0)

	soft.Put(ctx, testRecord(key, time.Now())) // must not panic
	if _, ok := soft.Get(ctx, key); ok {
		t.Fatalf("nil-backed soft store returned a record")
	}
	soft.Delete(ctx, key)
	if n := soft.Sweep(ctx, time.Hour); n != 0 {
		t.Fatalf("sweep on nil store returned %d", n)
	}
	soft.Close()
}

func TestSoftRoundTrip(t *testing.T) {
	soft := NewSoft(NewMemory())
	ctx := context.Background()
	key := domain.NewKey("tpl", 2)
	soft.Put(ctx, testRecord(key, time.Now()))
	rec, ok := soft.Get(ctx, key)
	if !ok || rec.Key != key {
		t.Fatalf("soft get after put: ok=%v rec=%+v", ok, rec)
	}
	soft.Delete(ctx, key)
	if _, ok := soft.Get(ctx, key); ok {
		t.Fatalf("record survived soft delete")
	}
}
