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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the kiosk-editable configuration persisted to a YAML file in
// the user scope. Environment variables are treated as read-only overrides
// at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type RetouchConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// APIKey is not stored on disk; it lives in the OS keychain.
}

type SessionConfig struct {
	DebounceMs        int `yaml:"debounce_ms"`
	HandoffFreshnessS int `yaml:"handoff_freshness_s"`
	RetentionH        int `yaml:"retention_h"`
}

type StorageConfig struct {
	Driver        string `yaml:"driver"` // "sqlite" | "filesystem" | "memory"
	Path          string `yaml:"path"`
	CacheMaxBytes int    `yaml:"cache_max_bytes"`
}

type GeneralConfig struct {
	KioskID        string `yaml:"kiosk_id"`
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	TemplateDir    string `yaml:"template_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	Retouch       RetouchConfig `yaml:"retouch"`
	Session       SessionConfig `yaml:"session"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{KioskID: "kiosk", TelemetryOptIn: false, TemplateDir: "templates"},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Retouch:       RetouchConfig{BaseURL: "http://localhost:8090", TimeoutMs: 90000},
		Session:       SessionConfig{DebounceMs: 500, HandoffFreshnessS: 10, RetentionH: 24},
		Storage:       StorageConfig{Driver: "sqlite", Path: "", CacheMaxBytes: 0},
		Logging:       LoggingConfig{Level: "info", Format: "console", File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "SW_BACKEND_URL"
	EnvBackendTimeoutMs = "SW_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "SW_TLS_INSECURE"
	EnvRetouchURL       = "SW_RETOUCH_URL"
	EnvTelemetryOptIn   = "SW_TELEMETRY_OPT_IN"
	EnvKioskID          = "SW_KIOSK_ID"
	EnvTemplateDir      = "SW_TEMPLATE_DIR"
	EnvStorageDriver    = "SW_STORAGE_DRIVER"
	EnvStoragePath      = "SW_STORAGE_PATH"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SW_LOG_LEVEL"
	EnvLogFormat = "SW_LOG_FORMAT"
	EnvLogFile   = "SW_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService    = "SmartWish"
	keyringToken      = "backend_token"
	keyringRetouchKey = "retouch_api_key"
)

// Secrets are the credentials kept in the OS keychain rather than on disk.
type Secrets struct {
	BackendToken  string
	RetouchAPIKey string
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SmartWish")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SmartWish")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "smartwish")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. Credentials come from the OS keyring and are
// returned separately so they never end up serialized.
func Load() (AppConfig, Secrets, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, Secrets{}, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	var sec Secrets
	sec.BackendToken, _ = tokenStore.Get(keyringService, keyringToken)
	sec.RetouchAPIKey, _ = tokenStore.Get(keyringService, keyringRetouchKey)
	return cfg, sec, nil
}

// Save writes the user config YAML and persists non-empty credentials into
// the OS keyring.
func Save(cfg AppConfig, sec Secrets) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if sec.BackendToken != "" {
		if err := tokenStore.Set(keyringService, keyringToken, sec.BackendToken); err != nil {
			return err
		}
	}
	if sec.RetouchAPIKey != "" {
		if err := tokenStore.Set(keyringService, keyringRetouchKey, sec.RetouchAPIKey); err != nil {
			return err
		}
	}
	return nil
}

// ClearSecrets removes stored credentials from the keychain.
func ClearSecrets() error {
	err1 := tokenStore.Delete(keyringService, keyringToken)
	err2 := tokenStore.Delete(keyringService, keyringRetouchKey)
	if err1 != nil {
		return err1
	}
	return err2
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.General.KioskID) != "" {
		dst.General.KioskID = strings.TrimSpace(src.General.KioskID)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.TemplateDir) != "" {
		dst.General.TemplateDir = strings.TrimSpace(src.General.TemplateDir)
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	if src.Retouch.BaseURL != "" {
		dst.Retouch.BaseURL = src.Retouch.BaseURL
	}
	if src.Retouch.TimeoutMs != 0 {
		dst.Retouch.TimeoutMs = src.Retouch.TimeoutMs
	}
	if src.Session.DebounceMs > 0 {
		dst.Session.DebounceMs = src.Session.DebounceMs
	}
	if src.Session.HandoffFreshnessS > 0 {
		dst.Session.HandoffFreshnessS = src.Session.HandoffFreshnessS
	}
	if src.Session.RetentionH > 0 {
		dst.Session.RetentionH = src.Session.RetentionH
	}
	if strings.TrimSpace(src.Storage.Driver) != "" {
		dst.Storage.Driver = strings.ToLower(strings.TrimSpace(src.Storage.Driver))
	}
	if strings.TrimSpace(src.Storage.Path) != "" {
		dst.Storage.Path = strings.TrimSpace(src.Storage.Path)
	}
	if src.Storage.CacheMaxBytes > 0 {
		dst.Storage.CacheMaxBytes = src.Storage.CacheMaxBytes
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvRetouchURL)); v != "" {
		cfg.Retouch.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvKioskID)); v != "" {
		cfg.General.KioskID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTemplateDir)); v != "" {
		cfg.General.TemplateDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var name string
	switch key {
	case "backend.base_url":
		name = EnvBackendURL
	case "backend.timeout_ms":
		name = EnvBackendTimeoutMs
	case "backend.tls_insecure":
		name = EnvBackendTLSInsec
	case "retouch.base_url":
		name = EnvRetouchURL
	case "general.telemetry_opt_in":
		name = EnvTelemetryOptIn
	case "general.kiosk_id":
		name = EnvKioskID
	case "general.template_dir":
		name = EnvTemplateDir
	case "storage.driver":
		name = EnvStorageDriver
	case "storage.path":
		name = EnvStoragePath
	case "logging.level":
		name = EnvLogLevel
	case "logging.format":
		name = EnvLogFormat
	case "logging.file":
		name = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(name) != "" {
		return name, true
	}
	return "", false
}
