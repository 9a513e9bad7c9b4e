/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas is the interactive surface of the page editor. A Controller
// owns the element list of the open section and moves through
// Idle → Selected → (Dragging | Resizing | Editing) → Selected in response to
// gestures. Geometry changes are local and synchronous; persistence goes
// through an autosave.Saver.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"proposalcanvas/internal/autosave"
	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/editor"
	"proposalcanvas/internal/geometry"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/storage"
)

type State int

const (
	Idle State = iota
	Selected
	Dragging
	Resizing
	Editing
	LoadFailed
)

func (s State) String() string {
	switch s {
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case Editing:
		return "editing"
	case LoadFailed:
		return "load-failed"
	default:
		return "idle"
	}
}

var (
	ErrLocked     = errors.New("element is locked")
	ErrModalOpen  = errors.New("an editor is open")
	ErrNoGesture  = errors.New("no gesture in progress")
	ErrGesture    = errors.New("gesture in progress")
	ErrNotEditing = errors.New("no editor is open")
	ErrNoSection  = errors.New("no section is open")
	ErrNoSections = errors.New("no sections left")
	ErrBadHandle  = errors.New("unknown resize handle")
)

// Zoom limits. Zoom is a display transform only.
const (
	MinZoom  = 0.25
	MaxZoom  = 3.0
	ZoomStep = 0.25
)

// Focus tells KeyDown where keyboard focus is.
type Focus int

const (
	FocusCanvas Focus = iota
	FocusTextInput
)

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Config wires a Controller. Store is required; the rest has defaults.
type Config struct {
	Store     storage.SectionStore
	Saver     *autosave.Saver
	Confirmer Confirmer
	Emitter   EventEmitter
	IDs       geometry.IDGenerator
	Zoom      float64
	ShowGrid  bool
}

type gesture struct {
	id     string
	handle geometry.Handle
	start  domain.Element
	dx, dy float64 // logical px
}

// Controller is safe for use from several goroutines, but gestures are meant
// to arrive one at a time from a single UI loop.
type Controller struct {
	store     storage.SectionStore
	saver     *autosave.Saver
	confirmer Confirmer
	emitter   EventEmitter
	log       *slog.Logger

	mu       sync.Mutex
	board    *geometry.Board
	state    State
	selected string
	gesture  *gesture
	editor   editor.Editor

	zoom float64
	grid bool

	sections []domain.Section // metadata only, ordered by order_index
	activeID string
	title    string
	loadErr  error

	rev          uint64 // bumped by every mutation of the open section
	savedRev     uint64
	titleChanged bool

	unsubscribe func()
}

func New(cfg Config) *Controller {
	ids := cfg.IDs
	if ids == nil {
		ids = geometry.UUIDGenerator{}
	}
	c := &Controller{
		store:     cfg.Store,
		saver:     cfg.Saver,
		confirmer: cfg.Confirmer,
		emitter:   cfg.Emitter,
		log:       applog.WithComponent("canvas"),
		board:     geometry.NewBoard(ids),
		zoom:      1,
		grid:      cfg.ShowGrid,
	}
	if cfg.Zoom > 0 {
		c.zoom = snapZoom(cfg.Zoom)
	}
	if c.emitter == nil {
		c.emitter = noopEmitter{}
	}
	if c.saver == nil {
		c.saver = autosave.New(cfg.Store)
	}
	c.unsubscribe = c.saver.Subscribe(func(st autosave.State) {
		ev := SaveEvent{SectionID: st.SectionID, Status: st.Status.String()}
		if st.Err != nil {
			ev.Err = st.Err.Error()
		}
		c.emitter.Emit(context.Background(), EventSaveStatus, ev)
	})
	return c
}

// Close detaches the controller from its saver.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Elements returns a copy of the open section's element list.
func (c *Controller) Elements() []domain.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Elements()
}

func (c *Controller) Element(id string) (domain.Element, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Get(id)
}

// Editor returns the open editor, or nil.
func (c *Controller) Editor() editor.Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor
}

// --- state helpers (c.mu held) ---

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.emitter.Emit(context.Background(), EventState, StateEvent{State: s, Selected: c.selected})
}

func (c *Controller) selectLocked(id string) {
	if c.selected != id {
		c.selected = id
		c.emitter.Emit(context.Background(), EventSelection, id)
	}
	if id == "" {
		c.setState(Idle)
	} else {
		c.setState(Selected)
	}
}

func (c *Controller) touch() {
	c.rev++
	c.emitter.Emit(context.Background(), EventElements, ElementsEvent{
		SectionID: c.activeID, Count: c.board.Len(), Dirty: c.rev != c.savedRev || c.titleChanged,
	})
}

// ready rejects interaction while an editor or a gesture is active, or when
// no section is loaded.
func (c *Controller) ready() error {
	switch c.state {
	case Editing:
		return ErrModalOpen
	case Dragging, Resizing:
		return ErrGesture
	case LoadFailed:
		return ErrNoSection
	}
	return nil
}

// --- selection ---

// Click selects the element with the given id; an empty id clears the selection.
func (c *Controller) Click(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	if id == "" {
		c.selectLocked("")
		return nil
	}
	if _, ok := c.board.Get(id); !ok {
		return fmt.Errorf("element %s: %w", id, geometry.ErrNotFound)
	}
	c.selectLocked(id)
	return nil
}

// ClickAt hit-tests a point given in screen pixels of the zoomed canvas.
// Clicking empty canvas clears the selection. It returns the selected id.
func (c *Controller) ClickAt(sx, sy float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return "", err
	}
	el, ok := c.board.HitTest(sx/c.zoom, sy/c.zoom)
	if !ok {
		c.selectLocked("")
		return "", nil
	}
	c.selectLocked(el.ID)
	return el.ID, nil
}

func (c *Controller) ClearSelection() error { return c.Click("") }

// --- gestures ---

func (c *Controller) beginGesture(id string, h geometry.Handle, s State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	el, ok := c.board.Get(id)
	if !ok {
		return fmt.Errorf("element %s: %w", id, geometry.ErrNotFound)
	}
	c.selectLocked(id)
	if el.Locked {
		return ErrLocked
	}
	c.gesture = &gesture{id: id, handle: h, start: el}
	c.setState(s)
	return nil
}

func (c *Controller) BeginDrag(id string) error { return c.beginGesture(id, "", Dragging) }

func (c *Controller) BeginResize(id string, h geometry.Handle) error {
	if !h.Valid() {
		return fmt.Errorf("%w %q", ErrBadHandle, h)
	}
	return c.beginGesture(id, h, Resizing)
}

// DragBy and ResizeBy take pointer deltas in screen pixels.
func (c *Controller) DragBy(dx, dy float64) error   { return c.pointerMove(Dragging, dx, dy) }
func (c *Controller) ResizeBy(dx, dy float64) error { return c.pointerMove(Resizing, dx, dy) }

func (c *Controller) pointerMove(want State, dx, dy float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != want || c.gesture == nil {
		return ErrNoGesture
	}
	if !domain.Finite(dx) || !domain.Finite(dy) {
		return fmt.Errorf("pointer delta %g,%g: %w", dx, dy, geometry.ErrNonFinite)
	}
	c.gesture.dx += dx / c.zoom
	c.gesture.dy += dy / c.zoom
	return nil
}

// EndDrag commits the accumulated move. Releasing always commits.
func (c *Controller) EndDrag() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, err := c.endGesture(Dragging)
	if err != nil {
		return err
	}
	if g.dx == 0 && g.dy == 0 {
		return nil
	}
	moved, err := c.board.Move(g.id, g.dx, g.dy)
	if err != nil {
		return err
	}
	if moved {
		c.touch()
	}
	return nil
}

// EndResize commits the accumulated resize; north and west grips also move the
// origin so the opposite edge stays fixed.
func (c *Controller) EndResize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, err := c.endGesture(Resizing)
	if err != nil {
		return err
	}
	if g.dx == 0 && g.dy == 0 {
		return nil
	}
	size, pos := geometry.ResizeBox(g.start.Position, g.start.Width, g.start.Height, g.handle, g.dx, g.dy)
	resized, err := c.board.Resize(g.id, size.Width, size.Height, &pos)
	if err != nil {
		return err
	}
	if resized {
		c.touch()
	}
	return nil
}

func (c *Controller) endGesture(want State) (gesture, error) {
	if c.state != want || c.gesture == nil {
		return gesture{}, ErrNoGesture
	}
	g := *c.gesture
	c.gesture = nil
	c.setState(Selected)
	return g, nil
}

// displayElements applies an in-progress gesture to a copy of the list so the
// canvas can follow the pointer before the release commits it.
func (c *Controller) displayElements() []domain.Element {
	els := c.board.Elements()
	g := c.gesture
	if g == nil {
		return els
	}
	for i := range els {
		if els[i].ID != g.id {
			continue
		}
		switch c.state {
		case Dragging:
			els[i].Position.X = g.start.Position.X + g.dx
			els[i].Position.Y = g.start.Position.Y + g.dy
		case Resizing:
			size, pos := geometry.ResizeBox(g.start.Position, g.start.Width, g.start.Height, g.handle, g.dx, g.dy)
			els[i].Width, els[i].Height, els[i].Position = size.Width, size.Height, pos
		}
	}
	return els
}

// --- keyboard and context menu ---

// KeyDown handles Delete and Backspace for the selected element. Keys typed
// into a text input are ignored. It reports whether an element was removed.
func (c *Controller) KeyDown(key string, focus Focus) (bool, error) {
	if focus == FocusTextInput || (key != "Delete" && key != "Backspace") {
		return false, nil
	}
	c.mu.Lock()
	id := c.selected
	st := c.state
	c.mu.Unlock()
	if id == "" || st != Selected {
		return false, nil
	}
	return c.confirmDelete(id)
}

// ContextDelete is the context-menu path to the same confirmation.
func (c *Controller) ContextDelete(id string) (bool, error) {
	if err := c.Click(id); err != nil {
		return false, err
	}
	return c.confirmDelete(id)
}

func (c *Controller) confirmDelete(id string) (bool, error) {
	// The prompt runs without the lock held; the UI may block on it.
	if c.confirmer == nil || !c.confirmer.Confirm("Delete this element?") {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return false, err
	}
	if !c.board.Delete(id) {
		return false, fmt.Errorf("element %s: %w", id, geometry.ErrNotFound)
	}
	c.selectLocked("")
	c.touch()
	return true, nil
}

// Duplicate copies an element and selects the copy.
func (c *Controller) Duplicate(id string) (domain.Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return domain.Element{}, err
	}
	el, err := c.board.Duplicate(id)
	if err != nil {
		return domain.Element{}, err
	}
	c.selectLocked(el.ID)
	c.touch()
	return el, nil
}

// ToggleLock flips the lock flag and returns the new value.
func (c *Controller) ToggleLock(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return false, err
	}
	el, ok := c.board.Get(id)
	if !ok {
		return false, fmt.Errorf("element %s: %w", id, geometry.ErrNotFound)
	}
	if err := c.board.SetLocked(id, !el.Locked); err != nil {
		return false, err
	}
	c.touch()
	return !el.Locked, nil
}

// --- editing ---

// AddElement creates an element with default content, selects it and opens
// its editor.
func (c *Controller) AddElement(t domain.ElementType) (editor.Editor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return nil, err
	}
	if c.activeID == "" {
		return nil, ErrNoSection
	}
	el, err := c.board.Add(t)
	if err != nil {
		return nil, err
	}
	c.touch()
	c.selectLocked(el.ID)
	return c.openEditorLocked(el)
}

// Edit opens the editor of an element, as a double-click does.
func (c *Controller) Edit(id string) (editor.Editor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return nil, err
	}
	el, ok := c.board.Get(id)
	if !ok {
		return nil, fmt.Errorf("element %s: %w", id, geometry.ErrNotFound)
	}
	c.selectLocked(id)
	return c.openEditorLocked(el)
}

func (c *Controller) openEditorLocked(el domain.Element) (editor.Editor, error) {
	ed, err := editor.Open(el)
	if err != nil {
		return nil, err
	}
	c.editor = ed
	c.setState(Editing)
	return ed, nil
}

// ConfirmEdit applies the editor's update and closes it.
func (c *Controller) ConfirmEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing || c.editor == nil {
		return ErrNotEditing
	}
	u := c.editor.Confirm()
	if err := c.board.Apply(u); err != nil {
		// The editor stays open so the user can fix or cancel.
		return err
	}
	c.editor = nil
	c.touch()
	c.setState(Selected)
	return nil
}

// CancelEdit closes the editor without touching the element.
func (c *Controller) CancelEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing {
		return ErrNotEditing
	}
	c.editor = nil
	c.setState(Selected)
	return nil
}

// --- view ---

// snapZoom maps NaN to MinZoom.
func snapZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinZoom
	}
	z = math.Round(z/ZoomStep) * ZoomStep
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

func (c *Controller) Zoom() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

func (c *Controller) ShowGrid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid
}

// SetZoom snaps z to the zoom steps and clamps it. Element data is not touched.
func (c *Controller) SetZoom(z float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = snapZoom(z)
	c.emitter.Emit(context.Background(), EventView, ViewEvent{Zoom: c.zoom, ShowGrid: c.grid})
	return c.zoom
}

func (c *Controller) ZoomIn() float64  { return c.SetZoom(c.Zoom() + ZoomStep) }
func (c *Controller) ZoomOut() float64 { return c.SetZoom(c.Zoom() - ZoomStep) }

func (c *Controller) ToggleGrid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid = !c.grid
	c.emitter.Emit(context.Background(), EventView, ViewEvent{Zoom: c.zoom, ShowGrid: c.grid})
	return c.grid
}
