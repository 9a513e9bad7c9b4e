/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the YAML configuration of the editor and server. Environment
// variables override file values at load time and are never written back.
// Secrets are kept in the OS keyring, not in the file.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

type EditorConfig struct {
	// AutosaveSeconds is the flush interval; 0 disables periodic saves.
	AutosaveSeconds int     `yaml:"autosave_seconds"`
	DefaultZoom     float64 `yaml:"default_zoom"`
	ShowGrid        bool    `yaml:"show_grid"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres | file | memory
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	DevTokens bool   `yaml:"dev_tokens"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

const currentConfigVersion = 1

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: currentConfigVersion,
		Editor:        EditorConfig{AutosaveSeconds: 30, DefaultZoom: 1},
		Storage:       StorageConfig{Driver: "sqlite", Path: defaultDataPath()},
		Server:        ServerConfig{Addr: ":8080"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile      = "PCV_CONFIG"
	EnvAutosaveSeconds = "PCV_AUTOSAVE_SECONDS"
	EnvStorageDriver   = "PCV_STORAGE_DRIVER"
	EnvStoragePath     = "PCV_STORAGE_PATH"
	EnvPostgresDSN     = "PCV_PG_DSN"
	EnvServerAddr      = "PCV_SERVER_ADDR"
	EnvLogLevel        = "PCV_LOG_LEVEL"
	EnvLogFormat       = "PCV_LOG_FORMAT"
	EnvLogSource       = "PCV_LOG_SOURCE"
	EnvLogFile         = "PCV_LOG_FILE"
)

var ErrInvalidConfig = errors.New("invalid config")

// ConfigPath returns the config file path: $PCV_CONFIG, or config.yaml in the
// per-user config directory.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "proposalcanvas", "config.yaml"), nil
}

func defaultDataPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "proposalcanvas.db"
	}
	return filepath.Join(base, "proposalcanvas", "proposalcanvas.db")
}

// Load reads the config file at path (ConfigPath when empty), applies defaults
// and merges environment overrides. A missing file is not an error.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Keys absent from the file keep their defaults.
		fileCfg := cfg
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, cfg.Validate()
}

// Save writes cfg as YAML to path (ConfigPath when empty).
func Save(path string, cfg AppConfig) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks values that would otherwise fail far from the config file.
func (c AppConfig) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "sqlite", "file":
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for driver %s", c.Storage.Driver))
		}
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for driver postgres"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Editor.AutosaveSeconds < 0 {
		errs = append(errs, errors.New("editor.autosave_seconds must not be negative"))
	}
	if z := c.Editor.DefaultZoom; z < 0.25 || z > 3 {
		errs = append(errs, fmt.Errorf("editor.default_zoom %g is outside 0.25..3", z))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AutosaveInterval returns the periodic flush interval; 0 disables it.
func (e EditorConfig) AutosaveInterval() time.Duration {
	return time.Duration(e.AutosaveSeconds) * time.Second
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// src starts from the defaults, so plain values are copied as-is.
	dst.Editor.AutosaveSeconds = src.Editor.AutosaveSeconds
	dst.Editor.ShowGrid = src.Editor.ShowGrid
	if src.Editor.DefaultZoom != 0 {
		dst.Editor.DefaultZoom = src.Editor.DefaultZoom
	}
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); v != "" {
		dst.Storage.Driver = v
	}
	if v := strings.TrimSpace(src.Storage.Path); v != "" {
		dst.Storage.Path = v
	}
	if v := strings.TrimSpace(src.Storage.DSN); v != "" {
		dst.Storage.DSN = v
	}
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	dst.Server.DevTokens = src.Server.DevTokens
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	env := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }
	if v := env(EnvAutosaveSeconds); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Editor.AutosaveSeconds = n
		}
	}
	if v := env(EnvStorageDriver); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := env(EnvStoragePath); v != "" {
		cfg.Storage.Path = v
	}
	if v := env(EnvPostgresDSN); v != "" {
		cfg.Storage.DSN = v
	}
	if v := env(EnvServerAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by the
// environment.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"editor.autosave_seconds": EnvAutosaveSeconds,
		"storage.driver":          EnvStorageDriver,
		"storage.path":            EnvStoragePath,
		"storage.dsn":             EnvPostgresDSN,
		"server.addr":             EnvServerAddr,
		"logging.level":           EnvLogLevel,
		"logging.format":          EnvLogFormat,
		"logging.source":          EnvLogSource,
		"logging.file":            EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Keyring entries.
const (
	keyringService      = "proposalcanvas"
	KeyPostgresPassword = "postgres_password"
	KeyAuthSecret       = "auth_secret"
)

// SecretStore holds credentials outside the config file.
type SecretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keyring stores secrets in the OS keychain via go-keyring.
type Keyring struct{}

func (Keyring) Get(key string) (string, error) {
	v, err := keyring.Get(keyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (Keyring) Set(key, value string) error { return keyring.Set(keyringService, key, value) }

func (Keyring) Delete(key string) error {
	err := keyring.Delete(keyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// PostgresDSN returns the configured DSN with the keyring password filled in
// when the URL has a user but no password.
func (c AppConfig) PostgresDSN(secrets SecretStore) (string, error) {
	dsn := c.Storage.DSN
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return dsn, nil
	}
	if _, has := u.User.Password(); has || secrets == nil {
		return dsn, nil
	}
	pw, err := secrets.Get(KeyPostgresPassword)
	if err != nil {
		return "", fmt.Errorf("read postgres password from keyring: %w", err)
	}
	if pw == "" {
		return dsn, nil
	}
	u.User = url.UserPassword(u.User.Username(), pw)
	return u.String(), nil
}
