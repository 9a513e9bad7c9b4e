/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"proposalcanvas/internal/autosave"
	"proposalcanvas/internal/canvas"
	"proposalcanvas/internal/crash"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/storage"
)

// statusEmitter prints save and load notifications of the session.
type statusEmitter struct{ out io.Writer }

func (e statusEmitter) Emit(_ context.Context, event string, data any) {
	switch ev := data.(type) {
	case canvas.SaveEvent:
		if ev.Err != "" {
			fmt.Fprintf(e.out, "[%s] %s: %s\n", ev.Status, ev.SectionID, ev.Err)
			return
		}
		fmt.Fprintf(e.out, "[%s] %s\n", ev.Status, ev.SectionID)
	case canvas.SectionEvent:
		if event == canvas.EventSectionFailed {
			fmt.Fprintf(e.out, "[load failed] %s: %s (use reload)\n", ev.SectionID, ev.Err)
		}
	}
}

func (a *app) editCmd() *cobra.Command {
	var script string
	var yes bool
	cmd := &cobra.Command{
		Use:   "edit <proposal-id> [section-id]",
		Short: "Edit sections of a proposal from line commands",
		Long: `Opens a section on a headless canvas and applies commands read from stdin
or from --script. Unsaved changes are flushed on the auto-save interval, when
switching sections and on exit.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := io.Reader(cmd.InOrStdin())
			if script != "" {
				f, err := os.Open(script)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			c := canvas.New(canvas.Config{
				Store:   store,
				Saver:   autosave.New(store),
				Emitter: statusEmitter{out: out},
				Confirmer: canvas.ConfirmFunc(func(prompt string) bool {
					if !yes {
						fmt.Fprintf(out, "%s declined (run with --yes to confirm)\n", prompt)
					}
					return yes
				}),
				Zoom:     a.cfg.Editor.DefaultZoom,
				ShowGrid: a.cfg.Editor.ShowGrid,
			})
			defer c.Close()
			defer crash.Handler{Dir: crashDir(), Section: c}.Recover()

			sectionID := ""
			if len(args) > 1 {
				sectionID = args[1]
			}
			if err := openProposal(ctx, c, store, args[0], sectionID); err != nil {
				return err
			}

			sched := autosave.NewScheduler(a.cfg.Editor.AutosaveInterval(), c.Flush)
			if err := sched.Start(); err != nil {
				return err
			}
			runErr := (&session{c: c, out: out}).Run(ctx, in)

			stopCtx, cancel := context.WithTimeout(context.Background(), autosave.DefaultTimeout)
			defer cancel()
			sched.Stop(stopCtx)
			if err := c.Flush(stopCtx); err != nil && !errors.Is(err, canvas.ErrNoSection) {
				applog.WithComponent("cli").Error("final save failed", slog.Any("err", err))
				return errors.Join(runErr, fmt.Errorf("unsaved changes: %w", err))
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "read commands from a file instead of stdin")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletions without asking")
	return cmd
}

// openProposal loads the section list into c and opens sectionID, or the
// first section when it is empty.
func openProposal(ctx context.Context, c *canvas.Controller, store storage.SectionStore, proposalID, sectionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	list, err := store.List(ctx, proposalID)
	if err != nil {
		return fmt.Errorf("list sections of %s: %w", proposalID, err)
	}
	c.SetSections(list)
	if sectionID == "" {
		if len(list) == 0 {
			return fmt.Errorf("proposal %s has no sections", proposalID)
		}
		sectionID = c.Sections()[0].ID
	}
	if err := c.Open(ctx, sectionID); err != nil {
		// The canvas shows the failure; the session can retry with reload.
		applog.WithComponent("cli").Warn("open failed", slog.Any("err", err))
	}
	return nil
}
