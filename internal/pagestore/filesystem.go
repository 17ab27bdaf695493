/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package pagestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartwish/internal/domain"
)

// fsStore writes one JSON file per key under a base directory. Keys are
// hashed for the filename since template ids may contain path characters.
type fsStore struct {
	basePath string
}

type fsRecord struct {
	Key          domain.Key `json:"key"`
	HistoryLen   int        `json:"historyLen"`
	HistoryIndex int        `json:"historyIndex"`
	HasChanges   bool       `json:"hasChanges"`
	Payload      []byte     `json:"payload,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

func openFilesystem(basePath string) (*fsStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &fsStore{basePath: basePath}, nil
}

func (s *fsStore) path(key domain.Key) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.basePath, hex.EncodeToString(sum[:16])+".json")
}

func (s *fsStore) Put(_ context.Context, rec *domain.PageEditRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(fsRecord{
		Key:          rec.Key,
		HistoryLen:   rec.HistoryLen,
		HistoryIndex: rec.HistoryIndex,
		HasChanges:   rec.HasChanges,
		Payload:      rec.Payload,
		Timestamp:    rec.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	// Write-then-rename keeps a reader from seeing a torn record.
	final := s.path(rec.Key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

func (s *fsStore) Get(_ context.Context, key domain.Key) (*domain.PageEditRecord, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var fr fsRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &domain.PageEditRecord{
		Key:          fr.Key,
		HistoryLen:   fr.HistoryLen,
		HistoryIndex: fr.HistoryIndex,
		HasChanges:   fr.HasChanges,
		Payload:      fr.Payload,
		Timestamp:    fr.Timestamp,
	}, nil
}

func (s *fsStore) Delete(_ context.Context, key domain.Key) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *fsStore) SweepExpired(_ context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		p := filepath.Join(s.basePath, e.Name())
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var fr fsRecord
		if err := json.Unmarshal(data, &fr); err != nil {
			// Unreadable records count as expired.
			if os.Remove(p) == nil {
				n++
			}
			continue
		}
		if fr.Timestamp.Before(cutoff) {
			if os.Remove(p) == nil {
				n++
			}
		}
	}
	return n, nil
}

func (s *fsStore) Close() error { return nil }
