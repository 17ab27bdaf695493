/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestClientEventDeliversPayload(t *testing.T) {
	var mu sync.Mutex
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, KioskID: "k-9", EventsURL: srv.URL, Timeout: 2 * time.Second})
	defer c.Close()

	c.Event("session_restored", map[string]any{"tier": "durable"})
	c.Flush(context.Background())
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("events received = %d", len(got))
	}
	ev := got[0]
	if ev["name"] != "session_restored" || ev["tier"] != "durable" || ev["kiosk"] != "k-9" {
		t.Fatalf("event = %v", ev)
	}
	if ev["version"] == "" || ev["os"] == "" {
		t.Fatalf("event missing build attrs: %v", ev)
	}
}

func TestClientDisabledDropsEvents(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	// Opt-in false: nothing sent even with a URL.
	c := New(Config{OptIn: false, EventsURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	c.Event("ignored", nil)
	c.Flush(context.Background())

	// Opt-in true but no URL: Enabled must be false.
	c2 := New(Config{OptIn: true, Timeout: time.Second})
	defer c2.Close()
	if c2.Enabled() {
		t.Fatal("client with no URL reports enabled")
	}
	c2.Event("ignored", nil)

	// Empty event names are dropped.
	c3 := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c3.Close()
	c3.Event("", nil)
	c3.Flush(context.Background())

	time.Sleep(100 * time.Millisecond)
	if hits != 0 {
		t.Fatalf("server hit %d times", hits)
	}
}

func TestUploadCrash(t *testing.T) {
	var mu sync.Mutex
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 1024)
		n, _ := r.Body.Read(b)
		mu.Lock()
		body = string(b[:n])
		mu.Unlock()
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	c.UploadCrash([]byte("panic: boom"))
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if body != "panic: boom" {
		t.Fatalf("crash body = %q", body)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SW_TELEMETRY_OPT_IN", "")
	t.Setenv("SW_TELEMETRY_URL", "")
	cfg := FromEnv()
	if cfg.OptIn {
		t.Fatal("telemetry must be opt-in")
	}
	if cfg.Timeout != 1500*time.Millisecond {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}

	t.Setenv("SW_TELEMETRY_OPT_IN", "yes")
	t.Setenv("SW_TELEMETRY_URL", "http://example.com/t")
	t.Setenv("SW_TELEMETRY_TIMEOUT_MS", "300")
	t.Setenv("SW_KIOSK_ID", "mall-3")
	cfg = FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://example.com/t" || cfg.KioskID != "mall-3" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Timeout != 300*time.Millisecond {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
}
