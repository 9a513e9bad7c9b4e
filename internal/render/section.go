/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
	applog "proposalcanvas/internal/log"
)

// Mode selects between the authoring canvas and the client viewer.
type Mode int

const (
	// Editable wraps elements in selection and resize affordances.
	Editable Mode = iota
	// ReadOnly emits the same boxes without any affordance.
	ReadOnly
)

func (m Mode) String() string {
	if m == ReadOnly {
		return "readonly"
	}
	return "editable"
}

// Options tune editable output. ReadOnly ignores them apart from Zoom.
type Options struct {
	SelectedID string
	// Zoom is a display transform; stored geometry is never scaled. 0 means 1.
	Zoom     float64
	ShowGrid bool
}

// Section writes the canvas for els in paint order. A panic while rendering one
// element is contained to that element, which is replaced by a placeholder box.
func Section(w io.Writer, els []domain.Element, mode Mode, opt Options) error {
	zoom := opt.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	var buf strings.Builder
	cls := "pc-canvas pc-" + mode.String()
	if mode == Editable && opt.ShowGrid {
		cls += " pc-grid"
	}
	fmt.Fprintf(&buf, `<div class="%s" style="position: relative; transform: scale(%s); transform-origin: 0 0">`, cls, num(zoom))
	for _, el := range geometry.PaintOrder(els) {
		buf.WriteString(elementBox(el, mode, opt))
	}
	buf.WriteString(`</div>`)
	if _, err := io.WriteString(w, buf.String()); err != nil {
		return fmt.Errorf("write section: %w", err)
	}
	return nil
}

// BoxStyle is the absolute geometry of an element box, shared by both modes.
func BoxStyle(el domain.Element) string {
	return fmt.Sprintf("position: absolute; left: %spx; top: %spx; width: %spx; height: %spx; z-index: %d",
		num(el.Position.X), num(el.Position.Y), num(domain.FloorSize(el.Width)), num(domain.FloorSize(el.Height)), el.ZIndex)
}

func elementBox(el domain.Element, mode Mode, opt Options) (out string) {
	defer func() {
		if r := recover(); r != nil {
			applog.WithOperation(applog.WithComponent("render"), "element").Error("element render panic",
				slog.String("element", el.ID), slog.String("type", string(el.Type)), slog.Any("panic", r))
			var b strings.Builder
			fmt.Fprintf(&b, `<div class="pc-element pc-broken" style="%s">`, BoxStyle(el))
			writePlaceholder(&b, PlaceholderEmpty)
			b.WriteString(`</div>`)
			out = b.String()
		}
	}()

	inner := Content(el)
	style := BoxStyle(el)
	if mode == ReadOnly {
		return `<div class="pc-element pc-` + string(el.Type) + `" style="` + style + `">` + inner + `</div>`
	}

	var b strings.Builder
	cls := "pc-element pc-" + string(el.Type)
	selected := el.ID == opt.SelectedID && el.ID != ""
	if selected {
		cls += " pc-selected"
	}
	if el.Locked {
		cls += " pc-locked"
	}
	fmt.Fprintf(&b, `<div class="%s" style="%s" data-element-id="%s" data-element-type="%s" data-locked="%t">`,
		cls, style, html.EscapeString(el.ID), el.Type, el.Locked)
	b.WriteString(inner)
	if selected && !el.Locked {
		for _, h := range geometry.Handles {
			fmt.Fprintf(&b, `<div class="pc-handle pc-handle-%s" data-handle="%s"></div>`, h, h)
		}
	}
	b.WriteString(`</div>`)
	return b.String()
}

// Document wraps the read-only canvas into a standalone HTML page for the
// client viewer.
func Document(w io.Writer, title string, els []domain.Element) error {
	height := 0.0
	for _, el := range els {
		if bottom := el.Position.Y + el.Height; bottom > height {
			height = bottom
		}
	}
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(w, format, args...)
	}
	wf("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	wf("<title>%s</title>\n<style>%s</style>\n</head>\n<body>\n", html.EscapeString(title), stylesheet)
	wf(`<main class="pc-page" style="position: relative; min-height: %spx">`, num(height))
	if werr != nil {
		return fmt.Errorf("write document: %w", werr)
	}
	if err := Section(w, els, ReadOnly, Options{}); err != nil {
		return err
	}
	wf("</main>\n</body>\n</html>\n")
	if werr != nil {
		return fmt.Errorf("write document: %w", werr)
	}
	return nil
}

// stylesheet carries the content-interpretation classes, so both the author
// canvas and the viewer style tables, placeholders and media identically.
const stylesheet = `
.pc-element{box-sizing:border-box;overflow:hidden}
.pc-element>*{width:100%;height:100%}
.pc-placeholder{display:flex;align-items:center;justify-content:center;color:#6b7280;border:1px dashed #d1d5db}
.pc-heading{margin:0}
.pc-image{margin:0}.pc-image img{width:100%;height:100%;object-fit:contain}
.pc-table{width:100%;border-collapse:collapse}.pc-table th{text-align:left;background:rgba(249,115,22,.1)}
.pc-table th,.pc-table td{padding:.5rem}.pc-bordered th,.pc-bordered td{border:1px solid #e5e7eb}
.pc-striped .pc-stripe{background:rgba(243,244,246,.6)}
.pc-video,.pc-embed iframe{width:100%;height:100%;border:0}
.pc-selected{outline:2px solid #f97316}.pc-locked{opacity:.6;pointer-events:none}
.pc-grid{background-image:linear-gradient(#f3f4f6 1px,transparent 1px),linear-gradient(90deg,#f3f4f6 1px,transparent 1px);background-size:20px 20px}
`

// Stylesheet returns the CSS used by rendered sections.
func Stylesheet() string { return stylesheet }
