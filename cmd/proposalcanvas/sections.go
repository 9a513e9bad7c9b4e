/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"proposalcanvas/internal/autosave"
	"proposalcanvas/internal/domain"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/storage"
)

func (a *app) sectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "List and manage the sections of a proposal",
	}
	cmd.AddCommand(
		a.sectionsListCmd(),
		a.sectionsCreateCmd(),
		a.sectionsDeleteCmd(),
		a.sectionsReorderCmd(),
		a.sectionsImportCmd(),
		a.sectionsExportCmd(),
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, fn func(storage.SectionStore) error) error {
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	err = fn(store)
	if cerr := store.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) sectionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <proposal-id>",
		Short: "List sections in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s storage.SectionStore) error {
				list, err := s.List(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "#\tID\tTITLE\tELEMENTS\tUPDATED")
				for _, sec := range list {
					updated := "-"
					if !sec.UpdatedAt.IsZero() {
						updated = sec.UpdatedAt.Local().Format(time.DateTime)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", sec.OrderIndex, sec.ID, sec.Title, len(sec.Elements), updated)
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) sectionsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <proposal-id> <title>",
		Short: "Append an empty section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s storage.SectionStore) error {
				sec, err := s.Create(cmd.Context(), domain.Section{ProposalID: args[0], Title: args[1]})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sec.ID)
				return nil
			})
		},
	}
}

func (a *app) sectionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <section-id>",
		Short: "Delete a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s storage.SectionStore) error {
				return s.Delete(cmd.Context(), args[0])
			})
		},
	}
}

func (a *app) sectionsReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <proposal-id> <section-id>...",
		Short: "Set the order of all sections of a proposal",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s storage.SectionStore) error {
				return s.Reorder(cmd.Context(), args[0], args[1:])
			})
		},
	}
}

func (a *app) sectionsImportCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "import <section-id> <elements.json>",
		Short: "Replace the elements of a section with a JSON array",
		Long: `Reads a JSON array of elements and saves it as the section's element list.
Elements of an unknown kind are skipped with a warning; malformed content is kept
with what can be read from it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			els, derr := domain.DecodeElements(data)
			if derr != nil {
				if len(els) == 0 && !json.Valid(data) {
					return derr
				}
				applog.WithComponent("cli").Warn("some elements were skipped", slog.Any("err", derr))
			}
			snap := autosave.Snapshot{Elements: els}
			if cmd.Flags().Changed("title") {
				snap.Title = &title
			}
			return a.withStore(cmd, func(s storage.SectionStore) error {
				if err := autosave.New(s).Save(cmd.Context(), args[0], snap); err != nil {
					if errors.Is(err, storage.ErrNotFound) {
						return fmt.Errorf("section %s does not exist: %w", args[0], err)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %d elements\n", len(els))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "also rename the section")
	return cmd
}

func (a *app) sectionsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <section-id>",
		Short: "Print a section as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s storage.SectionStore) error {
				sec, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sec)
			})
		},
	}
}
