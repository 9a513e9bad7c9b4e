/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
)

// Font size bounds offered by the text editor.
const (
	MinFontSize = 8.0
	MaxFontSize = 96.0
)

type TextEditor struct {
	base
	draft *domain.TextContent
}

func NewTextEditor(el domain.Element) *TextEditor {
	return &TextEditor{base: newBase(el), draft: content[*domain.TextContent](el)}
}

// SetText stores rich markup as produced by the rich-text widget. It is kept
// verbatim and sanitized when rendered.
func (e *TextEditor) SetText(markup string) { e.draft.Text = markup }

func (e *TextEditor) SetFontSize(px float64) { e.draft.FontSize = clamp(px, MinFontSize, MaxFontSize) }

func (e *TextEditor) SetAlign(a domain.TextAlign) error {
	if !a.Valid() {
		return fmt.Errorf("%w: text align %q", ErrInvalidValue, a)
	}
	e.draft.TextAlign = a
	return nil
}

func (e *TextEditor) SetColor(c string) { e.draft.Color = c }

func (e *TextEditor) Draft() domain.TextContent { return *e.draft }
func (e *TextEditor) Preview() string           { return e.preview(e.draft) }
func (e *TextEditor) Confirm() geometry.Update  { return e.update(e.draft) }

type HeadingEditor struct {
	base
	draft *domain.HeadingContent
}

func NewHeadingEditor(el domain.Element) *HeadingEditor {
	return &HeadingEditor{base: newBase(el), draft: content[*domain.HeadingContent](el)}
}

func (e *HeadingEditor) SetText(s string) { e.draft.Text = s }

// SetLevel accepts 1, 2 or 3.
func (e *HeadingEditor) SetLevel(level int) error {
	if level < 1 || level > 3 {
		return fmt.Errorf("%w: heading level %d", ErrInvalidValue, level)
	}
	e.draft.Level = level
	return nil
}

func (e *HeadingEditor) Draft() domain.HeadingContent { return *e.draft }
func (e *HeadingEditor) Preview() string              { return e.preview(e.draft) }
func (e *HeadingEditor) Confirm() geometry.Update     { return e.update(e.draft) }
