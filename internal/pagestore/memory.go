/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package pagestore

import (
	"context"
	"sync"
	"time"

	"smartwish/internal/domain"
)

// memStore keeps records in process memory. Used in tests and in kiosk
// configurations without a writable data directory.
type memStore struct {
	mu   sync.RWMutex
	recs map[domain.Key]domain.PageEditRecord
}

// NewMemory creates an in-memory store.
func NewMemory() Store {
	return &memStore{recs: make(map[domain.Key]domain.PageEditRecord)}
}

func (s *memStore) Put(_ context.Context, rec *domain.PageEditRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.Payload = append([]byte(nil), rec.Payload...)
	s.recs[rec.Key] = cp
	return nil
}

func (s *memStore) Get(_ context.Context, key domain.Key) (*domain.PageEditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := rec
	cp.Payload = append([]byte(nil), rec.Payload...)
	return &cp, nil
}

func (s *memStore) Delete(_ context.Context, key domain.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, key)
	return nil
}

func (s *memStore) SweepExpired(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, rec := range s.recs {
		if rec.Timestamp.Before(cutoff) {
			delete(s.recs, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) Close() error { return nil }
