/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposalcanvas/internal/autosave"
	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/editor"
	"proposalcanvas/internal/geometry"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/storage"
)

func shape(t *testing.T, id string, x, y, w, h float64, z int) domain.Element {
	t.Helper()
	el, err := domain.NewElement(id, domain.TypeShape, domain.Position{X: x, Y: y}, z)
	require.NoError(t, err)
	el.Width, el.Height = w, h
	return el
}

type fixture struct {
	store   *storage.MemoryStore
	emitter *MockEmitter
	answer  bool
	prompts []string
	c       *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{emitter: &MockEmitter{}}
	f.store = storage.NewMemoryStore(
		domain.Section{ID: "s1", ProposalID: "p", Title: "Intro", OrderIndex: 0, Elements: []domain.Element{
			shape(t, "a", 100, 100, 200, 100, 0),
			shape(t, "b", 150, 120, 100, 100, 1),
		}},
		domain.Section{ID: "s2", ProposalID: "p", Title: "Pricing", OrderIndex: 1},
		domain.Section{ID: "s3", ProposalID: "p", Title: "Team", OrderIndex: 2},
	)
	f.c = New(Config{
		Store:   f.store,
		Emitter: f.emitter,
		IDs:     &geometry.SequenceGenerator{Prefix: "new-"},
		Confirmer: ConfirmFunc(func(p string) bool {
			f.prompts = append(f.prompts, p)
			return f.answer
		}),
	})
	t.Cleanup(f.c.Close)
	list, err := f.store.List(context.Background(), "p")
	require.NoError(t, err)
	f.c.SetSections(list)
	require.NoError(t, f.c.Open(context.Background(), "s1"))
	return f
}

func TestSelectionIsSingle(t *testing.T) {
	f := newFixture(t)
	c := f.c
	require.NoError(t, c.Click("a"))
	assert.Equal(t, Selected, c.State())
	require.NoError(t, c.Click("b"))
	assert.Equal(t, "b", c.Selected())
	require.NoError(t, c.ClearSelection())
	assert.Equal(t, Idle, c.State())
	assert.ErrorIs(t, c.Click("nope"), geometry.ErrNotFound)
	assert.Equal(t, []any{"a", "b", ""}, f.emitter.Named(EventSelection))
}

func TestClickAtHonoursZoomAndPaintOrder(t *testing.T) {
	c := newFixture(t).c
	c.SetZoom(2)
	// logical (160, 130) lies in both boxes; b paints on top.
	id, err := c.ClickAt(320, 260)
	require.NoError(t, err)
	assert.Equal(t, "b", id)
	// logical (110, 110) only hits a.
	id, _ = c.ClickAt(220, 220)
	assert.Equal(t, "a", id)
	id, _ = c.ClickAt(10, 10)
	assert.Equal(t, "", id)
	assert.Equal(t, Idle, c.State())
}

func TestDragCommitsLogicalDelta(t *testing.T) {
	c := newFixture(t).c
	c.SetZoom(2)
	require.NoError(t, c.BeginDrag("a"))
	assert.Equal(t, Dragging, c.State())
	require.NoError(t, c.DragBy(20, 10))
	require.NoError(t, c.DragBy(20, 10))

	// uncommitted until release
	el, _ := c.Element("a")
	assert.Equal(t, domain.Position{X: 100, Y: 100}, el.Position)
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "left: 120px")

	require.NoError(t, c.EndDrag())
	el, _ = c.Element("a")
	assert.Equal(t, domain.Position{X: 120, Y: 110}, el.Position)
	assert.Equal(t, Selected, c.State())
	assert.True(t, c.Dirty())
	assert.ErrorIs(t, c.EndDrag(), ErrNoGesture)
}

func TestResizeFromNorthWestKeepsOppositeEdge(t *testing.T) {
	c := newFixture(t).c
	require.NoError(t, c.BeginResize("a", geometry.HandleNW))
	require.NoError(t, c.ResizeBy(-20, -10))
	require.NoError(t, c.EndResize())
	el, _ := c.Element("a")
	assert.Equal(t, 220.0, el.Width)
	assert.Equal(t, 110.0, el.Height)
	assert.Equal(t, domain.Position{X: 80, Y: 90}, el.Position)
	assert.Equal(t, 300.0, el.Position.X+el.Width)

	require.NoError(t, c.BeginResize("a", geometry.HandleSE))
	require.NoError(t, c.ResizeBy(-1000, -1000))
	require.NoError(t, c.EndResize())
	el, _ = c.Element("a")
	assert.Equal(t, domain.MinSize, el.Width)
	assert.Equal(t, domain.MinSize, el.Height)

	assert.ErrorIs(t, c.BeginResize("a", "middle"), ErrBadHandle)
}

func TestLockedElementRefusesGestures(t *testing.T) {
	c := newFixture(t).c
	locked, err := c.ToggleLock("a")
	require.NoError(t, err)
	require.True(t, locked)
	assert.ErrorIs(t, c.BeginDrag("a"), ErrLocked)
	assert.ErrorIs(t, c.BeginResize("a", geometry.HandleE), ErrLocked)
	assert.Equal(t, Selected, c.State())
	el, _ := c.Element("a")
	assert.Equal(t, domain.Position{X: 100, Y: 100}, el.Position)

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "pc-locked")
	assert.NotContains(t, buf.String(), "pc-handle")
}

func TestKeyboardDeleteNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	c := f.c
	require.NoError(t, c.Click("a"))

	deleted, err := c.KeyDown("Delete", FocusTextInput)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, f.prompts, "typing in a text field never prompts")

	f.answer = false
	deleted, err = c.KeyDown("Backspace", FocusCanvas)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, f.prompts, 1)
	assert.Equal(t, "a", c.Selected())
	assert.Equal(t, Selected, c.State())
	assert.Len(t, c.Elements(), 2)
	assert.False(t, c.Dirty())

	f.answer = true
	deleted, err = c.KeyDown("Delete", FocusCanvas)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, Idle, c.State())
	assert.Len(t, c.Elements(), 1)

	deleted, _ = c.KeyDown("Delete", FocusCanvas)
	assert.False(t, deleted, "nothing selected")
}

func TestContextDeleteAndDuplicate(t *testing.T) {
	f := newFixture(t)
	c := f.c
	cp, err := c.Duplicate("b")
	require.NoError(t, err)
	assert.Equal(t, "new-1", cp.ID)
	assert.Equal(t, domain.Position{X: 170, Y: 140}, cp.Position)
	assert.Equal(t, cp.ID, c.Selected())

	f.answer = true
	deleted, err := c.ContextDelete("b")
	require.NoError(t, err)
	assert.True(t, deleted)
	_, ok := c.Element("b")
	assert.False(t, ok)
}

func TestAddElementOpensEditorAndBlocksGestures(t *testing.T) {
	c := newFixture(t).c
	ed, err := c.AddElement(domain.TypeHeading)
	require.NoError(t, err)
	assert.Equal(t, Editing, c.State())
	assert.Equal(t, ed.ElementID(), c.Selected())
	assert.Len(t, c.Elements(), 3)

	assert.ErrorIs(t, c.BeginDrag("a"), ErrModalOpen)
	assert.ErrorIs(t, c.Click("a"), ErrModalOpen)
	_, err = c.Edit("a")
	assert.ErrorIs(t, err, ErrModalOpen)

	he := ed.(*editor.HeadingEditor)
	he.SetText("Scope of Work")
	require.NoError(t, c.ConfirmEdit())
	assert.Equal(t, Selected, c.State())
	el, _ := c.Element(ed.ElementID())
	assert.Equal(t, "Scope of Work", el.Content.(*domain.HeadingContent).Text)
}

func TestCancelEditHasNoSideEffects(t *testing.T) {
	c := newFixture(t).c
	before, _ := c.Element("a")
	ed, err := c.Edit("a")
	require.NoError(t, err)
	se := ed.(*editor.ShapeEditor)
	se.SetColor("#ff0000")
	se.SetOpacity(10)
	require.NoError(t, c.CancelEdit())
	after, _ := c.Element("a")
	assert.Equal(t, before, after)
	assert.Equal(t, Selected, c.State())
	assert.False(t, c.Dirty())
	assert.ErrorIs(t, c.CancelEdit(), ErrNotEditing)
	assert.ErrorIs(t, c.ConfirmEdit(), ErrNotEditing)
}

func TestZoomAndGridAreViewOnly(t *testing.T) {
	c := newFixture(t).c
	before := c.Elements()
	assert.Equal(t, MaxZoom, c.SetZoom(5))
	assert.Equal(t, MinZoom, c.SetZoom(0.1))
	assert.Equal(t, 1.25, c.SetZoom(1.3))
	assert.Equal(t, 1.5, c.ZoomIn())
	assert.Equal(t, 1.25, c.ZoomOut())
	assert.True(t, c.ToggleGrid())
	assert.Equal(t, before, c.Elements())
	assert.False(t, c.Dirty())

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "pc-grid")
	assert.Contains(t, buf.String(), "scale(1.25)")
}

func TestFailedSaveKeepsEditsAndRetrySucceeds(t *testing.T) {
	f := newFixture(t)
	c := f.c
	ctx := context.Background()
	require.NoError(t, c.BeginDrag("a"))
	require.NoError(t, c.DragBy(30, 0))
	require.NoError(t, c.EndDrag())

	boom := errors.New("bridge unavailable")
	f.store.FailSaves(boom)
	require.ErrorIs(t, c.Save(ctx), boom)
	el, _ := c.Element("a")
	assert.Equal(t, 130.0, el.Position.X, "in-memory edit survives the failure")
	assert.True(t, c.Dirty())
	assert.Equal(t, autosave.Failed, c.SaveStatus().Status)

	require.NoError(t, c.Save(ctx))
	assert.False(t, c.Dirty())
	assert.Equal(t, autosave.Succeeded, c.SaveStatus().Status)
	stored, err := f.store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 130.0, stored.Elements[0].Position.X)

	var statuses []string
	for _, d := range f.emitter.Named(EventSaveStatus) {
		statuses = append(statuses, d.(SaveEvent).Status)
	}
	assert.Equal(t, []string{"saving", "failed", "saving", "saved"}, statuses)
}

func TestTitleTravelsWithSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.SetTitle("Introduction"))
	assert.True(t, f.c.Dirty())
	require.NoError(t, f.c.Flush(ctx))
	assert.False(t, f.c.Dirty())
	sec, _ := f.store.Load(ctx, "s1")
	assert.Equal(t, "Introduction", sec.Title)
	assert.Len(t, sec.Elements, 2)

	saves := f.store.Saves()
	require.NoError(t, f.c.Flush(ctx))
	assert.Equal(t, saves, f.store.Saves(), "clean flush does not save")
}

func TestLoadFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	c := f.c
	ctx := context.Background()
	f.store.FailLoads(errors.New("timeout"))
	require.Error(t, c.SwitchTo(ctx, "s2"))
	assert.Equal(t, LoadFailed, c.State())
	assert.Equal(t, "s2", c.ActiveSection())

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "pc-load-failed")
	assert.Contains(t, buf.String(), `data-action="reload"`)
	assert.ErrorIs(t, c.Click("a"), ErrNoSection)
	assert.ErrorIs(t, c.Save(ctx), ErrNoSection)

	f.store.FailLoads(nil)
	require.NoError(t, c.Reload(ctx))
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, "Pricing", c.Title())
	assert.Nil(t, c.LoadError())
}

func TestEmptySectionRendersEmptyCanvas(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Open(context.Background(), "s2"))
	var buf bytes.Buffer
	require.NoError(t, f.c.Render(&buf))
	assert.Contains(t, buf.String(), "pc-canvas")
	assert.NotContains(t, buf.String(), "pc-element")
}

func TestSwitchFlushesBestEffort(t *testing.T) {
	f := newFixture(t)
	c := f.c
	ctx := context.Background()

	_, err := c.Duplicate("a")
	require.NoError(t, err)
	f.store.FailSaves(errors.New("offline"))
	require.NoError(t, c.SwitchTo(ctx, "s2"), "a failed flush must not block navigation")
	assert.Equal(t, "s2", c.ActiveSection())
	sec, _ := f.store.Load(ctx, "s1")
	assert.Len(t, sec.Elements, 2)

	require.NoError(t, c.SwitchTo(ctx, "s1"))
	_, err = c.Duplicate("a")
	require.NoError(t, err)
	require.NoError(t, c.SwitchTo(ctx, "s3"))
	sec, _ = f.store.Load(ctx, "s1")
	assert.Len(t, sec.Elements, 3)
}

func TestDeletingOpenSectionMovesToNeighbour(t *testing.T) {
	f := newFixture(t)
	c := f.c
	ctx := context.Background()

	f.answer = false
	deleted, err := c.DeleteSection(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, "s1", c.ActiveSection())

	f.answer = true
	deleted, err = c.DeleteSection(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, "s2", c.ActiveSection())
	list, _ := f.store.List(ctx, "p")
	assert.Equal(t, 0, list[0].OrderIndex)

	// deleting a section that is not open leaves the canvas alone
	open, err := c.SectionDeleted(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, "s2", open)

	open, err = c.SectionDeleted(ctx, "s2")
	assert.ErrorIs(t, err, ErrNoSections)
	assert.Equal(t, "", open)
	assert.Equal(t, "", c.ActiveSection())
	assert.Empty(t, c.Elements())
	assert.Len(t, f.emitter.Named(EventSectionsEmpty), 1)
	_, err = c.AddElement(domain.TypeText)
	assert.ErrorIs(t, err, ErrNoSection)
}

func TestDeletingLastSectionInListOpensPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.Open(ctx, "s3"))
	next, err := f.c.SectionDeleted(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, "s2", next)
}

func TestPreviewMatchesCanvasGeometry(t *testing.T) {
	c := newFixture(t).c
	require.NoError(t, c.Click("a"))
	var edit, view bytes.Buffer
	require.NoError(t, c.Render(&edit))
	require.NoError(t, c.Preview(&view))
	assert.Contains(t, edit.String(), "pc-handle")
	assert.NotContains(t, view.String(), "pc-handle")
	assert.NotContains(t, view.String(), "data-element-id")
	assert.Equal(t, strings.Count(edit.String(), `class="pc-element`), strings.Count(view.String(), `class="pc-element`))
}

func TestNonFiniteInputsAreRejected(t *testing.T) {
	f := newFixture(t)
	c := f.c
	assert.Equal(t, MinZoom, c.SetZoom(math.NaN()))
	assert.Equal(t, MaxZoom, c.SetZoom(math.Inf(1)))
	c.SetZoom(1)

	require.NoError(t, c.BeginDrag("a"))
	assert.ErrorIs(t, c.DragBy(math.NaN(), 0), geometry.ErrNonFinite)
	assert.ErrorIs(t, c.DragBy(0, math.Inf(-1)), geometry.ErrNonFinite)
	require.NoError(t, c.DragBy(10, 0))
	require.NoError(t, c.EndDrag())
	el, _ := c.Element("a")
	assert.Equal(t, domain.Position{X: 110, Y: 100}, el.Position)

	require.NoError(t, c.Save(context.Background()))
	sec, err := f.store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 110.0, sec.Elements[0].Position.X)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogRecordsCarrySectionIDs(t *testing.T) {
	var buf syncBuffer
	applog.Init(applog.Options{Format: "json", Level: "debug", Output: &buf})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "error", Output: io.Discard}) })

	f := newFixture(t)
	f.store.FailSaves(errors.New("disk full"))
	require.Error(t, f.c.Save(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"msg":"save failed"`)
	assert.Contains(t, out, `"proposal":"p"`)
	assert.Contains(t, out, `"section":"s1"`)
}
