/*
 * Copyright (c) 2025 by the SmartWish authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// memKeyring stubs the OS keychain for tests.
type memKeyring struct {
	items map[string]string
}

func (m *memKeyring) Get(service, key string) (string, error) {
	v, ok := m.items[service+"/"+key]
	if !ok {
		return "", fmt.Errorf("not found")
	}
	return v, nil
}
func (m *memKeyring) Set(service, key, value string) error {
	if m.items == nil {
		m.items = map[string]string{}
	}
	m.items[service+"/"+key] = value
	return nil
}
func (m *memKeyring) Delete(service, key string) error {
	delete(m.items, service+"/"+key)
	return nil
}

func withTestKeyring(t *testing.T) *memKeyring {
	t.Helper()
	mk := &memKeyring{}
	prev := tokenStore
	tokenStore = mk
	t.Cleanup(func() { tokenStore = prev })
	return mk
}

func withTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AppData", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestDefaultsAreSane(t *testing.T) {
	cfg := Defaults()
	if cfg.Session.DebounceMs != 500 {
		t.Fatalf("debounce = %d", cfg.Session.DebounceMs)
	}
	if cfg.Session.HandoffFreshnessS != 10 {
		t.Fatalf("freshness = %d", cfg.Session.HandoffFreshnessS)
	}
	if cfg.Session.RetentionH != 24 {
		t.Fatalf("retention = %d", cfg.Session.RetentionH)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	withTestHome(t)
	mk := withTestKeyring(t)

	cfg := Defaults()
	cfg.General.KioskID = "mall-store-7"
	cfg.Backend.BaseURL = "https://sync.example.com"
	cfg.Session.DebounceMs = 750
	if err := Save(cfg, Secrets{BackendToken: "tok-123", RetouchAPIKey: "rk-456"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, sec, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.General.KioskID != "mall-store-7" {
		t.Fatalf("kiosk id = %q", loaded.General.KioskID)
	}
	if loaded.Backend.BaseURL != "https://sync.example.com" {
		t.Fatalf("backend url = %q", loaded.Backend.BaseURL)
	}
	if loaded.Session.DebounceMs != 750 {
		t.Fatalf("debounce = %d", loaded.Session.DebounceMs)
	}
	if sec.BackendToken != "tok-123" || sec.RetouchAPIKey != "rk-456" {
		t.Fatalf("secrets = %+v", sec)
	}
	if len(mk.items) != 2 {
		t.Fatalf("keyring items = %v", mk.items)
	}

	// Secrets never reach the YAML file.
	path, _ := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	for _, secret := range []string{"tok-123", "rk-456"} {
		if strings.Contains(string(data), secret) {
			t.Fatalf("secret %q leaked into config file", secret)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	withTestHome(t)
	withTestKeyring(t)
	t.Setenv(EnvBackendURL, "http://10.0.0.5:8080")
	t.Setenv(EnvStorageDriver, "Filesystem")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvTelemetryOptIn, "yes")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://10.0.0.5:8080" {
		t.Fatalf("backend url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Storage.Driver != "filesystem" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatal("telemetry opt-in override ignored")
	}

	if name, ok := EnvOverrideFor("backend.base_url"); !ok || name != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("retouch.base_url"); ok {
		t.Fatal("retouch url should not report an override")
	}
}

func TestLoadMergesPartialFile(t *testing.T) {
	home := withTestHome(t)
	withTestKeyring(t)
	dir := filepath.Join(home, ".config", "smartwish")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	partial := "general:\n  kiosk_id: airport-2\nsession:\n  retention_h: 48\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(partial), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.KioskID != "airport-2" {
		t.Fatalf("kiosk id = %q", cfg.General.KioskID)
	}
	if cfg.Session.RetentionH != 48 {
		t.Fatalf("retention = %d", cfg.Session.RetentionH)
	}
	// Untouched fields keep defaults.
	if cfg.Session.DebounceMs != 500 || cfg.Backend.BaseURL != "http://localhost:8080" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestClearSecrets(t *testing.T) {
	withTestHome(t)
	mk := withTestKeyring(t)
	_ = mk.Set(keyringService, keyringToken, "tok")
	_ = mk.Set(keyringService, keyringRetouchKey, "key")

	if err := ClearSecrets(); err != nil {
		t.Fatalf("ClearSecrets: %v", err)
	}
	if len(mk.items) != 0 {
		t.Fatalf("items remain: %v", mk.items)
	}
}
