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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.AutosaveSeconds != 30 || cfg.Storage.Driver != "sqlite" || cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestLoadMergesFile(t *testing.T) {
	p := writeConfig(t, `
editor:
  autosave_seconds: 0
  default_zoom: 1.5
  show_grid: true
storage:
  driver: FILE
  path: /tmp/proposals
logging:
  level: DEBUG
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.AutosaveInterval() != 0 || cfg.Editor.DefaultZoom != 1.5 || !cfg.Editor.ShowGrid {
		t.Fatalf("editor not merged: %#v", cfg.Editor)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != "/tmp/proposals" {
		t.Fatalf("storage not merged: %#v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("logging not merged: %#v", cfg.Logging)
	}
}

func TestEnvOverrides(t *testing.T) {
	p := writeConfig(t, "storage:\n  driver: sqlite\n  path: a.db\n")
	t.Setenv(EnvStorageDriver, "postgres")
	t.Setenv(EnvPostgresDSN, "postgres://pc@localhost/pc")
	t.Setenv(EnvAutosaveSeconds, "5")
	t.Setenv(EnvLogSource, "yes")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != "postgres://pc@localhost/pc" {
		t.Fatalf("storage env not applied: %#v", cfg.Storage)
	}
	if cfg.Editor.AutosaveInterval() != 5*time.Second || !cfg.Logging.Source {
		t.Fatalf("env not applied: %#v", cfg)
	}
	if name, ok := EnvOverrideFor("storage.dsn"); !ok || name != EnvPostgresDSN {
		t.Fatalf("EnvOverrideFor(storage.dsn) = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("server.addr"); ok {
		t.Fatalf("server.addr is not overridden")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown driver": "storage:\n  driver: mongo\n",
		"missing dsn":    "storage:\n  driver: postgres\n",
		"bad zoom":       "editor:\n  default_zoom: 9\n",
		"negative save":  "editor:\n  autosave_seconds: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "editor: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Defaults()
	cfg.Storage = StorageConfig{Driver: "memory"}
	cfg.Editor.ShowGrid = true
	if err := Save(p, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Storage.Driver != "memory" || !got.Editor.ShowGrid {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestPostgresDSNUsesKeyring(t *testing.T) {
	keyring.MockInit()
	var secrets Keyring
	cfg := Defaults()
	cfg.Storage = StorageConfig{Driver: "postgres", DSN: "postgres://pc@db:5432/proposals?sslmode=disable"}

	dsn, err := cfg.PostgresDSN(secrets)
	if err != nil || dsn != cfg.Storage.DSN {
		t.Fatalf("without a stored password the DSN is unchanged: %q, %v", dsn, err)
	}

	if err := secrets.Set(KeyPostgresPassword, "s3cret"); err != nil {
		t.Fatal(err)
	}
	dsn, err = cfg.PostgresDSN(secrets)
	if err != nil {
		t.Fatal(err)
	}
	if dsn != "postgres://pc:s3cret@db:5432/proposals?sslmode=disable" {
		t.Fatalf("password not filled in: %q", dsn)
	}

	cfg.Storage.DSN = "postgres://pc:inline@db/proposals"
	if dsn, _ := cfg.PostgresDSN(secrets); dsn != cfg.Storage.DSN {
		t.Fatalf("an inline password wins: %q", dsn)
	}

	if err := secrets.Delete(KeyPostgresPassword); err != nil {
		t.Fatal(err)
	}
	if v, err := secrets.Get(KeyPostgresPassword); err != nil || v != "" {
		t.Fatalf("deleted secret still readable: %q, %v", v, err)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  addr: 127.0.0.1:9000\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Editor.AutosaveSeconds != 30 || cfg.Editor.DefaultZoom != 1 {
		t.Fatalf("defaults lost: %#v", cfg)
	}
}
