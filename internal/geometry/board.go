/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry owns the element list of one section: placement, size, lock
// state and paint order. All operations are synchronous and in-memory.
package geometry

import (
	"errors"
	"fmt"
	"sort"

	"proposalcanvas/internal/domain"
)

var (
	ErrNotFound     = errors.New("element not found")
	ErrKindMismatch = domain.ErrKindMismatch
	ErrNonFinite    = errors.New("coordinate is not a finite number")
)

// DuplicateOffset is how far a duplicate is shifted from its source on both axes.
const DuplicateOffset = 20.0

const (
	cascadeOrigin = 50.0
	cascadeStep   = 24.0
	cascadeWrap   = 400
)

const maxIDAttempts = 100

// Update is a confirmed editor result. Size and Position are optional geometry
// changes carried along with the content.
type Update struct {
	ElementID string
	Content   domain.Content
	Size      *domain.Size
	Position  *domain.Position
}

// Board holds the ordered element list of a section. The list order is the
// creation order and breaks zIndex ties.
type Board struct {
	elements []domain.Element
	ids      IDGenerator
}

// NewBoard returns an empty board. A nil generator uses UUIDGenerator.
func NewBoard(ids IDGenerator) *Board {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Board{elements: []domain.Element{}, ids: ids}
}

// Load replaces the board contents with a copy of els, repairing legacy data:
// sizes are floored, missing or duplicate ids are replaced, unknown kinds are
// dropped and missing content gets the kind's defaults.
func (b *Board) Load(els []domain.Element) {
	b.elements = make([]domain.Element, 0, len(els))
	seen := make(map[string]struct{}, len(els))
	for _, e := range els {
		if !e.Type.Valid() {
			continue
		}
		e = e.Clone()
		if _, dup := seen[e.ID]; dup || e.ID == "" {
			e.ID = b.newIDWith(seen)
		}
		seen[e.ID] = struct{}{}
		e.Width = domain.FloorSize(e.Width)
		e.Height = domain.FloorSize(e.Height)
		if e.Content == nil || e.Content.Kind() != e.Type {
			e.Content, _ = domain.DefaultContent(e.Type)
		}
		b.elements = append(b.elements, e)
	}
}

// Elements returns a deep copy of the list in storage order.
func (b *Board) Elements() []domain.Element {
	return domain.CloneElements(b.elements)
}

func (b *Board) Len() int { return len(b.elements) }

// Get returns a copy of the element with the given id.
func (b *Board) Get(id string) (domain.Element, bool) {
	i := b.index(id)
	if i < 0 {
		return domain.Element{}, false
	}
	return b.elements[i].Clone(), true
}

// Add creates an element of kind t with default content and geometry and
// appends it on top of the paint order.
func (b *Board) Add(t domain.ElementType) (domain.Element, error) {
	n := len(b.elements)
	pos := domain.Position{X: cascadeOrigin, Y: cascadeOrigin + float64(int(cascadeStep)*n%cascadeWrap)}
	el, err := domain.NewElement(b.newID(), t, pos, n)
	if err != nil {
		return domain.Element{}, err
	}
	b.elements = append(b.elements, el)
	return el.Clone(), nil
}

// Move shifts an element by dx, dy. It reports false without error when the
// element is locked.
func (b *Board) Move(id string, dx, dy float64) (bool, error) {
	e, err := b.find(id)
	if err != nil {
		return false, err
	}
	if !domain.Finite(dx) || !domain.Finite(dy) || !domain.Finite(e.Position.X+dx) || !domain.Finite(e.Position.Y+dy) {
		return false, fmt.Errorf("move %s by %g,%g: %w", id, dx, dy, ErrNonFinite)
	}
	if e.Locked {
		return false, nil
	}
	e.Position.X += dx
	e.Position.Y += dy
	return true, nil
}

// Resize sets the box size, floored to domain.MinSize, and optionally a new
// origin. It reports false without error when the element is locked.
func (b *Board) Resize(id string, width, height float64, origin *domain.Position) (bool, error) {
	e, err := b.find(id)
	if err != nil {
		return false, err
	}
	if err := checkBox(id, &domain.Size{Width: width, Height: height}, origin); err != nil {
		return false, err
	}
	if e.Locked {
		return false, nil
	}
	e.Width = domain.FloorSize(width)
	e.Height = domain.FloorSize(height)
	if origin != nil {
		e.Position = *origin
	}
	return true, nil
}

// Duplicate appends a copy of the element with a fresh id, offset by
// DuplicateOffset and painted above everything else.
func (b *Board) Duplicate(id string) (domain.Element, error) {
	src, err := b.find(id)
	if err != nil {
		return domain.Element{}, err
	}
	cp := src.Clone()
	cp.ID = b.newID()
	cp.Position.X += DuplicateOffset
	cp.Position.Y += DuplicateOffset
	cp.ZIndex = len(b.elements)
	b.elements = append(b.elements, cp)
	return cp.Clone(), nil
}

// Delete removes the element and reports whether it existed.
func (b *Board) Delete(id string) bool {
	i := b.index(id)
	if i < 0 {
		return false
	}
	b.elements = append(b.elements[:i], b.elements[i+1:]...)
	return true
}

// SetLocked changes the lock flag only.
func (b *Board) SetLocked(id string, locked bool) error {
	e, err := b.find(id)
	if err != nil {
		return err
	}
	e.Locked = locked
	return nil
}

// UpdateContent replaces the element content. The content kind must match the
// element type.
func (b *Board) UpdateContent(id string, c domain.Content) error {
	e, err := b.find(id)
	if err != nil {
		return err
	}
	if c == nil || c.Kind() != e.Type {
		return fmt.Errorf("element %s: %w", id, ErrKindMismatch)
	}
	e.Content = domain.CloneContent(c)
	return nil
}

// Apply merges an editor update into the element it targets. Content is applied
// regardless of the lock; geometry parts honour it like Resize does.
func (b *Board) Apply(u Update) error {
	e, err := b.find(u.ElementID)
	if err != nil {
		return err
	}
	if u.Content != nil && u.Content.Kind() != e.Type {
		return fmt.Errorf("element %s: %w", u.ElementID, ErrKindMismatch)
	}
	if err := checkBox(u.ElementID, u.Size, u.Position); err != nil {
		return err
	}
	if u.Content != nil {
		e.Content = domain.CloneContent(u.Content)
	}
	if e.Locked {
		return nil
	}
	if u.Size != nil {
		e.Width = domain.FloorSize(u.Size.Width)
		e.Height = domain.FloorSize(u.Size.Height)
	}
	if u.Position != nil {
		e.Position = *u.Position
	}
	return nil
}

func checkBox(id string, size *domain.Size, pos *domain.Position) error {
	if size != nil && (!domain.Finite(size.Width) || !domain.Finite(size.Height)) {
		return fmt.Errorf("element %s size %gx%g: %w", id, size.Width, size.Height, ErrNonFinite)
	}
	if pos != nil && (!domain.Finite(pos.X) || !domain.Finite(pos.Y)) {
		return fmt.Errorf("element %s position %g,%g: %w", id, pos.X, pos.Y, ErrNonFinite)
	}
	return nil
}

// PaintOrder returns copies of the elements sorted by ascending zIndex, ties
// broken by list position.
func (b *Board) PaintOrder() []domain.Element {
	return PaintOrder(b.elements)
}

// HitTest returns the topmost element under the logical point x, y.
func (b *Board) HitTest(x, y float64) (domain.Element, bool) {
	order := b.PaintOrder()
	for i := len(order) - 1; i >= 0; i-- {
		if order[i].Contains(x, y) {
			return order[i], true
		}
	}
	return domain.Element{}, false
}

// PaintOrder sorts a copy of els for painting.
func PaintOrder(els []domain.Element) []domain.Element {
	out := domain.CloneElements(els)
	if out == nil {
		out = []domain.Element{}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

func (b *Board) index(id string) int {
	for i := range b.elements {
		if b.elements[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) find(id string) (*domain.Element, error) {
	i := b.index(id)
	if i < 0 {
		return nil, fmt.Errorf("element %s: %w", id, ErrNotFound)
	}
	return &b.elements[i], nil
}

func (b *Board) newID() string {
	seen := make(map[string]struct{}, len(b.elements))
	for _, e := range b.elements {
		seen[e.ID] = struct{}{}
	}
	return b.newIDWith(seen)
}

func (b *Board) newIDWith(seen map[string]struct{}) string {
	var id string
	for i := 0; i < maxIDAttempts; i++ {
		id = b.ids.NewID()
		if _, ok := seen[id]; !ok && id != "" {
			return id
		}
	}
	// generator keeps colliding; fall back to a suffix that cannot exist yet
	for n := len(seen) + 1; ; n++ {
		cand := fmt.Sprintf("%s-%d", id, n)
		if _, ok := seen[cand]; !ok {
			return cand
		}
	}
}
