/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"proposalcanvas/internal/autosave"
	"proposalcanvas/internal/backend"
	"proposalcanvas/internal/config"
	applog "proposalcanvas/internal/log"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the section API, client previews and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := applog.WithComponent("serve")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					l.Warn("close store", slog.Any("err", err))
				}
			}()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			saver := autosave.New(store, autosave.WithMetrics(autosave.NewMetrics(reg)))

			secret, err := a.secrets.Get(config.KeyAuthSecret)
			if err != nil {
				l.Warn("keyring unavailable, mutating routes are unauthenticated", slog.Any("err", err))
				secret = ""
			}
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			srv := backend.NewServer(backend.Config{
				Addr:       a.cfg.Server.Addr,
				AuthSecret: secret,
				DevTokens:  a.cfg.Server.DevTokens,
			}, store, saver, reg)
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
