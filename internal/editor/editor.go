/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor implements the per-kind content editors. An editor works on a
// private draft of one element. Confirm hands back an update for the board;
// dropping the editor is a cancel and writes nothing.
package editor

import (
	"errors"
	"fmt"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
	"proposalcanvas/internal/render"
)

var (
	ErrMinimumGrid  = errors.New("table must keep at least one row and one column")
	ErrLastPoint    = errors.New("chart must keep at least one data point")
	ErrOutOfRange   = errors.New("index out of range")
	ErrInvalidValue = errors.New("invalid value")
	ErrNotImage     = errors.New("data is not a supported image")
	ErrNoEditor     = errors.New("no editor for element type")
	ErrKeyInUse     = errors.New("chart key already used by another field")
)

// Editor is the common surface of all type editors.
type Editor interface {
	ElementID() string
	Kind() domain.ElementType
	// Preview renders the draft exactly as the canvas will show it once confirmed.
	Preview() string
	Confirm() geometry.Update
}

// Factory builds the editor for one element kind.
type Factory func(el domain.Element) Editor

var factories = map[domain.ElementType]Factory{
	domain.TypeText:    func(el domain.Element) Editor { return NewTextEditor(el) },
	domain.TypeHeading: func(el domain.Element) Editor { return NewHeadingEditor(el) },
	domain.TypeImage:   func(el domain.Element) Editor { return NewImageEditor(el) },
	domain.TypeTable:   func(el domain.Element) Editor { return NewTableEditor(el) },
	domain.TypeChart:   func(el domain.Element) Editor { return NewChartEditor(el) },
	domain.TypeVideo:   func(el domain.Element) Editor { return NewVideoEditor(el) },
	domain.TypeEmbed:   func(el domain.Element) Editor { return NewEmbedEditor(el) },
	domain.TypeShape:   func(el domain.Element) Editor { return NewShapeEditor(el) },
}

// Open returns the editor registered for the element's kind.
func Open(el domain.Element) (Editor, error) {
	f, ok := factories[el.Type]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoEditor, el.Type)
	}
	return f(el), nil
}

// base carries the element snapshot every editor starts from.
type base struct {
	el   domain.Element
	size *domain.Size
}

func newBase(el domain.Element) base { return base{el: el.Clone()} }

func (b *base) ElementID() string        { return b.el.ID }
func (b *base) Kind() domain.ElementType { return b.el.Type }

func (b *base) preview(draft domain.Content) string {
	p := b.el
	p.Content = draft
	if b.size != nil {
		p.Width, p.Height = b.size.Width, b.size.Height
	}
	return render.Content(p)
}

func (b *base) update(draft domain.Content) geometry.Update {
	u := geometry.Update{ElementID: b.el.ID, Content: domain.CloneContent(draft)}
	if b.size != nil {
		sz := *b.size
		u.Size = &sz
	}
	return u
}

// content returns the element content as T, or the kind defaults when the
// element carries something else.
func content[T domain.Content](el domain.Element) T {
	if c, ok := el.Content.(T); ok {
		return domain.CloneContent(c).(T)
	}
	d, _ := domain.DefaultContent(el.Type)
	c, _ := d.(T)
	return c
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if v < lo || v != v {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
