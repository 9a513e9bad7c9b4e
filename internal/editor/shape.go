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

const MaxBorderWidth = 20.0

// ShapeEditor edits shape styling. Its preview depends on the draft only.
type ShapeEditor struct {
	base
	draft *domain.ShapeContent
}

func NewShapeEditor(el domain.Element) *ShapeEditor {
	return &ShapeEditor{base: newBase(el), draft: content[*domain.ShapeContent](el)}
}

func (e *ShapeEditor) SetShapeType(t domain.ShapeType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: shape type %q", ErrInvalidValue, t)
	}
	e.draft.ShapeType = t
	return nil
}

func (e *ShapeEditor) SetColor(c string)      { e.draft.Color = c }
func (e *ShapeEditor) SetBackground(c string) { e.draft.BackgroundColor = c }

func (e *ShapeEditor) SetBorderWidth(px float64) {
	e.draft.BorderWidth = clamp(px, 0, MaxBorderWidth)
}

func (e *ShapeEditor) SetBorderStyle(s domain.BorderStyle) error {
	if !s.Valid() {
		return fmt.Errorf("%w: border style %q", ErrInvalidValue, s)
	}
	e.draft.BorderStyle = s
	return nil
}

func (e *ShapeEditor) SetOpacity(pct int) { e.draft.Opacity = domain.ClampOpacity(pct) }

func (e *ShapeEditor) Draft() domain.ShapeContent { return *e.draft }
func (e *ShapeEditor) Preview() string            { return e.preview(e.draft) }
func (e *ShapeEditor) Confirm() geometry.Update   { return e.update(e.draft) }
