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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
	"proposalcanvas/internal/render"
)

// loadForDisplay loads a section and repairs duplicate ids and sub-minimum
// sizes the same way the canvas does on open.
func (a *app) loadForDisplay(ctx context.Context, id string) (domain.Section, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return domain.Section{}, err
	}
	defer store.Close()
	sec, err := store.Load(ctx, id)
	if err != nil {
		return domain.Section{}, fmt.Errorf("load section %s: %w", id, err)
	}
	b := geometry.NewBoard(geometry.UUIDGenerator{})
	b.Load(sec.Elements)
	sec.Elements = b.Elements()
	return sec, nil
}

// output opens path for writing, or returns stdout for "" and "-".
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func (a *app) renderCmd() *cobra.Command {
	var out string
	var fragment bool
	cmd := &cobra.Command{
		Use:   "render <section-id>",
		Short: "Write the read-only HTML page of a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sec, err := a.loadForDisplay(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w, done, err := output(cmd, out)
			if err != nil {
				return err
			}
			if fragment {
				err = render.Section(w, sec.Elements, render.ReadOnly, render.Options{})
			} else {
				err = render.Document(w, sec.Title, sec.Elements)
			}
			if cerr := done(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&fragment, "fragment", false, "write only the canvas markup, without the page around it")
	return cmd
}

func (a *app) thumbnailCmd() *cobra.Command {
	var out string
	var width int
	var labels bool
	cmd := &cobra.Command{
		Use:   "thumbnail <section-id>",
		Short: "Write a PNG miniature of a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0] + ".png"
			}
			sec, err := a.loadForDisplay(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w, done, err := output(cmd, out)
			if err != nil {
				return err
			}
			err = render.Thumbnail(w, sec.Elements, render.ThumbnailOptions{Width: width, Labels: labels})
			if cerr := done(); err == nil {
				err = cerr
			}
			if err == nil && out != "-" {
				fmt.Fprintln(cmd.ErrOrStderr(), "wrote", out)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default <section-id>.png, - for stdout)")
	cmd.Flags().IntVar(&width, "width", 200, "image width in pixels")
	cmd.Flags().BoolVar(&labels, "labels", true, "draw element kind labels")
	return cmd
}
