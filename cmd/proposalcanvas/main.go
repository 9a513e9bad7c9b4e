/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command proposalcanvas serves, renders and edits proposal pages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"proposalcanvas/internal/config"
	"proposalcanvas/internal/crash"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/storage"
	"proposalcanvas/internal/version"
)

func main() {
	defer crash.Handler{Dir: crashDir()}.Recover()
	err := rootCmd().ExecuteContext(context.Background())
	_ = applog.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func crashDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "proposalcanvas", "crash")
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	driver     string
	storePath  string

	cfg     config.AppConfig
	secrets config.SecretStore
}

func rootCmd() *cobra.Command {
	a := &app{secrets: config.Keyring{}}
	cmd := &cobra.Command{
		Use:           "proposalcanvas",
		Short:         "Headless editor core for proposal pages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default: per-user config.yaml, or $PCV_CONFIG)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.driver, "driver", "", "storage driver (sqlite, postgres, file, memory)")
	pf.StringVar(&a.storePath, "store", "", "sqlite database file or file store directory")

	cmd.AddCommand(
		a.serveCmd(),
		a.renderCmd(),
		a.thumbnailCmd(),
		a.sectionsCmd(),
		a.editCmd(),
		versionCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if cmd.Flags().Changed("driver") {
		cfg.Storage.Driver = a.driver
	}
	if cmd.Flags().Changed("store") {
		cfg.Storage.Path = a.storePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	applog.WithComponent("cli").Debug("start",
		slog.String("cmd", cmd.CommandPath()),
		slog.String("driver", cfg.Storage.Driver))
	return nil
}

func (a *app) openStore(ctx context.Context) (storage.SectionStore, error) {
	opts := storage.Options{Driver: a.cfg.Storage.Driver, Path: a.cfg.Storage.Path}
	if opts.Driver == storage.DriverPostgres {
		dsn, err := a.cfg.PostgresDSN(a.secrets)
		if err != nil {
			return nil, err
		}
		opts.DSN = dsn
	}
	return storage.Open(ctx, opts)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No config is needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "proposalcanvas", version.String())
		},
	}
}
