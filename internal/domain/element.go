/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the data model of a proposal page: sections, the
// positioned elements placed on them, and the per-kind content each element carries.
//
// Content is a closed sum type. Every site that reads or writes content switches
// over the concrete content structs, so a new element kind shows up as a compile
// or test failure at each of those sites.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ElementType is the closed set of element kinds.
type ElementType string

const (
	TypeText    ElementType = "text"
	TypeHeading ElementType = "heading"
	TypeImage   ElementType = "image"
	TypeTable   ElementType = "table"
	TypeChart   ElementType = "chart"
	TypeVideo   ElementType = "video"
	TypeEmbed   ElementType = "embed"
	TypeShape   ElementType = "shape"
)

// AllTypes lists every element kind in toolbar order.
var AllTypes = []ElementType{
	TypeText, TypeHeading, TypeImage, TypeTable, TypeChart, TypeVideo, TypeEmbed, TypeShape,
}

// Valid reports whether t is one of the known element kinds.
func (t ElementType) Valid() bool {
	for _, k := range AllTypes {
		if k == t {
			return true
		}
	}
	return false
}

// MinSize is the smallest width or height an element can have, in logical pixels.
const MinSize = 1.0

var (
	ErrInvalidSize  = errors.New("element size must be positive")
	ErrKindMismatch = errors.New("content kind does not match element type")
	ErrUnknownType  = errors.New("unknown element type")
)

// Position is the top-left offset of an element in unscaled canvas coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in logical pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one placeable, typed unit on a page.
type Element struct {
	ID       string
	Type     ElementType
	Content  Content
	Position Position
	Width    float64
	Height   float64
	Locked   bool
	ZIndex   int
}

// Contains reports whether the logical point (x, y) lies inside the element box.
func (e Element) Contains(x, y float64) bool {
	return x >= e.Position.X && y >= e.Position.Y &&
		x <= e.Position.X+e.Width && y <= e.Position.Y+e.Height
}

// Clone returns a deep copy of the element, content included.
func (e Element) Clone() Element {
	c := e
	if e.Content != nil {
		c.Content = e.Content.clone()
	}
	return c
}

// Validate checks the element invariants: known type, positive size, and content
// whose kind matches the type.
func (e Element) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("element %s: %w %q", e.ID, ErrUnknownType, e.Type)
	}
	if e.Width <= 0 || e.Height <= 0 {
		return fmt.Errorf("element %s: %w (%gx%g)", e.ID, ErrInvalidSize, e.Width, e.Height)
	}
	if e.Content == nil || e.Content.Kind() != e.Type {
		return fmt.Errorf("element %s: %w", e.ID, ErrKindMismatch)
	}
	return nil
}

// Section is one page of a proposal.
type Section struct {
	ID         string    `json:"id"`
	ProposalID string    `json:"proposal_id"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index"`
	Elements   []Element `json:"elements"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// CloneElements deep-copies an element list.
func CloneElements(in []Element) []Element {
	if in == nil {
		return nil
	}
	out := make([]Element, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// NewElement builds an element of kind t with the creation defaults for that kind.
func NewElement(id string, t ElementType, pos Position, zIndex int) (Element, error) {
	c, err := DefaultContent(t)
	if err != nil {
		return Element{}, err
	}
	sz := DefaultSize(t)
	return Element{
		ID:       id,
		Type:     t,
		Content:  c,
		Position: pos,
		Width:    sz.Width,
		Height:   sz.Height,
		ZIndex:   zIndex,
	}, nil
}

// DefaultSize returns the box a freshly created element of kind t occupies.
func DefaultSize(t ElementType) Size {
	switch t {
	case TypeText:
		return Size{Width: 400, Height: 120}
	case TypeHeading:
		return Size{Width: 400, Height: 60}
	case TypeImage:
		return Size{Width: 320, Height: 240}
	case TypeTable:
		return Size{Width: 480, Height: 180}
	case TypeChart:
		return Size{Width: 480, Height: 300}
	case TypeVideo:
		return Size{Width: 560, Height: 315}
	case TypeEmbed:
		return Size{Width: 480, Height: 320}
	case TypeShape:
		return Size{Width: 300, Height: 40}
	default:
		return Size{Width: 200, Height: 100}
	}
}

// FloorSize clamps a requested dimension to MinSize.
func FloorSize(v float64) float64 {
	if v < MinSize || !Finite(v) {
		return MinSize
	}
	return v
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
