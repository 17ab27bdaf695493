/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package session

import (
	"testing"
	"time"

	"smartwish/internal/domain"
)

func TestHandoffTakeConsumesEntry(t *testing.T) {
	h := NewHandoffSlot()
	key := domain.NewKey("tpl", 1)
	now := time.Now()
	h.Publish(key, "data:image/png;base64,AAAA", now)

	got, ok := h.Take(key, now.Add(2*time.Second), 10*time.Second)
	if !ok || got != "data:image/png;base64,AAAA" {
		t.Fatalf("take = %q, %v", got, ok)
	}
	if _, ok := h.Take(key, now, time.Minute); ok {
		t.Fatal("second take should find nothing")
	}
}

func TestHandoffStaleEntryDropped(t *testing.T) {
	h := NewHandoffSlot()
	key := domain.NewKey("tpl", 1)
	now := time.Now()
	h.Publish(key, "payload", now)

	// Exactly at the freshness bound counts as stale.
	if _, ok := h.Take(key, now.Add(10*time.Second), 10*time.Second); ok {
		t.Fatal("entry at the freshness bound should be stale")
	}
	// Stale takes still consume the entry.
	if _, ok := h.Take(key, now, time.Hour); ok {
		t.Fatal("stale entry should have been removed")
	}
}

func TestHandoffKeysAreIndependent(t *testing.T) {
	h := NewHandoffSlot()
	now := time.Now()
	h.Publish(domain.NewKey("tpl", 0), "front", now)
	h.Publish(domain.NewKey("tpl", 1), "inside", now)

	if got, ok := h.Take(domain.NewKey("tpl", 1), now, time.Minute); !ok || got != "inside" {
		t.Fatalf("take page 1 = %q, %v", got, ok)
	}
	if got, ok := h.Take(domain.NewKey("tpl", 0), now, time.Minute); !ok || got != "front" {
		t.Fatalf("take page 0 = %q, %v", got, ok)
	}
}

func TestHandoffDiscard(t *testing.T) {
	h := NewHandoffSlot()
	key := domain.NewKey("tpl", 0)
	h.Publish(key, "payload", time.Now())
	h.Discard(key)
	if _, ok := h.Take(key, time.Now(), time.Hour); ok {
		t.Fatal("discarded entry still present")
	}
}
