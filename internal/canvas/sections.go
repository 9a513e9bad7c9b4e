/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"sort"

	"proposalcanvas/internal/autosave"
	"proposalcanvas/internal/domain"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/render"
)

// SetSections replaces the navigator's section list. The host application owns
// order_index; the list is only sorted by it.
func (c *Controller) SetSections(list []domain.Section) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections = make([]domain.Section, len(list))
	for i, s := range list {
		s.Elements = nil
		c.sections[i] = s
	}
	sort.SliceStable(c.sections, func(i, j int) bool { return c.sections[i].OrderIndex < c.sections[j].OrderIndex })
	c.emitter.Emit(context.Background(), EventSectionsChange, len(c.sections))
}

func (c *Controller) Sections() []domain.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Section(nil), c.sections...)
}

// ActiveSection returns the id of the open section, or "".
func (c *Controller) ActiveSection() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// LoadError returns the error that put the controller in LoadFailed.
func (c *Controller) LoadError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// SetTitle renames the open section; the title is sent with the next save.
func (c *Controller) SetTitle(t string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == "" || c.state == LoadFailed {
		return ErrNoSection
	}
	if t == c.title {
		return nil
	}
	c.title = t
	c.titleChanged = true
	c.touch()
	return nil
}

// Dirty reports unsaved changes in the open section.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirtyLocked()
}

func (c *Controller) dirtyLocked() bool { return c.rev != c.savedRev || c.titleChanged }

// SaveStatus returns the saver's status for the open section.
func (c *Controller) SaveStatus() autosave.State {
	return c.saver.State(c.ActiveSection())
}

// Open loads a section into the canvas. On failure the controller enters
// LoadFailed and Reload retries.
func (c *Controller) Open(ctx context.Context, id string) error {
	ctx = c.sectionContext(ctx, id)
	sec, err := c.store.Load(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gesture = nil
	c.editor = nil
	c.selected = ""
	c.activeID = id
	c.titleChanged = false
	c.rev, c.savedRev = 0, 0
	if err != nil {
		c.board.Load(nil)
		c.title = ""
		c.loadErr = err
		c.log.WarnContext(ctx, "section load failed", slog.Any("err", err))
		c.setState(LoadFailed)
		c.emitter.Emit(ctx, EventSectionFailed, SectionEvent{SectionID: id, Err: err.Error()})
		return fmt.Errorf("open section %s: %w", id, err)
	}
	c.loadErr = nil
	c.board.Load(sec.Elements)
	c.title = sec.Title
	c.state = Idle
	c.emitter.Emit(ctx, EventState, StateEvent{State: Idle})
	c.emitter.Emit(ctx, EventSectionOpened, SectionEvent{SectionID: id, Title: sec.Title})
	return nil
}

// sectionContext tags ctx with id and its proposal for log records.
func (c *Controller) sectionContext(ctx context.Context, id string) context.Context {
	c.mu.Lock()
	var proposal string
	for _, s := range c.sections {
		if s.ID == id {
			proposal = s.ProposalID
			break
		}
	}
	c.mu.Unlock()
	return applog.ContextWithSection(ctx, proposal, id)
}

// Reload retries loading the active section.
func (c *Controller) Reload(ctx context.Context) error {
	id := c.ActiveSection()
	if id == "" {
		return ErrNoSection
	}
	return c.Open(ctx, id)
}

// SwitchTo flushes unsaved changes of the outgoing section, best effort, and
// opens the incoming one. A failed flush is logged and does not block.
func (c *Controller) SwitchTo(ctx context.Context, id string) error {
	if cur := c.ActiveSection(); cur != "" && cur != id {
		if err := c.Flush(ctx); err != nil {
			c.log.WarnContext(c.sectionContext(ctx, cur), "flush before switch failed", slog.Any("err", err))
		}
	}
	return c.Open(ctx, id)
}

// SectionDeleted tells the controller that a section is gone. When it was the
// open one, the neighbour that took its place (or the one before it) is
// opened; with nothing left ErrNoSections is returned and the canvas is empty.
// It returns the section now open.
func (c *Controller) SectionDeleted(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	idx := -1
	for i, s := range c.sections {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		c.sections = append(c.sections[:idx], c.sections[idx+1:]...)
	}
	active := c.activeID
	if id != active {
		c.mu.Unlock()
		return active, nil
	}
	if len(c.sections) == 0 {
		c.activeID = ""
		c.title = ""
		c.selected = ""
		c.editor = nil
		c.gesture = nil
		c.loadErr = nil
		c.rev, c.savedRev, c.titleChanged = 0, 0, false
		c.board.Load(nil)
		c.setState(Idle)
		c.emitter.Emit(ctx, EventSectionsEmpty, nil)
		c.mu.Unlock()
		return "", ErrNoSections
	}
	if idx < 0 || idx >= len(c.sections) {
		idx = len(c.sections) - 1
	}
	next := c.sections[idx].ID
	// The deleted section must not be saved.
	c.rev, c.savedRev, c.titleChanged = 0, 0, false
	c.mu.Unlock()
	return next, c.Open(ctx, next)
}

// DeleteSection asks for confirmation, deletes the section in the store and
// moves the canvas off it. It reports whether the section was deleted.
func (c *Controller) DeleteSection(ctx context.Context, id string) (bool, error) {
	if c.confirmer == nil || !c.confirmer.Confirm("Delete this page?") {
		return false, nil
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete section %s: %w", id, err)
	}
	_, err := c.SectionDeleted(ctx, id)
	return true, err
}

// Save sends the complete element list of the open section, with the title
// when it changed. The in-memory list is never rolled back on failure.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.activeID == "" || c.state == LoadFailed {
		c.mu.Unlock()
		return ErrNoSection
	}
	id := c.activeID
	rev := c.rev
	snap := autosave.Snapshot{Elements: c.board.Elements()}
	var title string
	if c.titleChanged {
		title = c.title
		snap.Title = &title
	}
	c.mu.Unlock()

	err := c.saver.Save(c.sectionContext(ctx, id), id, snap)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return err
	}
	// Only what was sent counts as saved; later edits stay dirty.
	if c.activeID == id && rev >= c.savedRev {
		c.savedRev = rev
		if snap.Title != nil && c.title == title {
			c.titleChanged = false
		}
		c.emitter.Emit(ctx, EventElements, ElementsEvent{SectionID: id, Count: c.board.Len(), Dirty: c.dirtyLocked()})
	}
	return nil
}

// RecoverySnapshot returns the open section as held in memory, with unsaved
// edits, for crash recovery.
func (c *Controller) RecoverySnapshot() (domain.Section, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == "" || c.state == LoadFailed {
		return domain.Section{}, false, false
	}
	sec := domain.Section{ID: c.activeID, Title: c.title, Elements: c.board.Elements()}
	for _, s := range c.sections {
		if s.ID == c.activeID {
			sec.ProposalID = s.ProposalID
			sec.OrderIndex = s.OrderIndex
		}
	}
	return sec, c.dirtyLocked(), true
}

// Flush saves only when there are unsaved changes. It is the auto-save tick.
func (c *Controller) Flush(ctx context.Context) error {
	if !c.Dirty() {
		return nil
	}
	return c.Save(ctx)
}

// Render writes the editable canvas. A failed load renders a retry box
// instead of an empty page.
func (c *Controller) Render(w io.Writer) error {
	c.mu.Lock()
	if c.state == LoadFailed {
		msg := c.loadErr.Error()
		id := c.activeID
		c.mu.Unlock()
		_, err := fmt.Fprintf(w, `<div class="pc-load-failed" data-section-id="%s"><p>This page could not be loaded.</p><p class="pc-error">%s</p><button data-action="reload">Retry</button></div>`,
			html.EscapeString(id), html.EscapeString(msg))
		return err
	}
	els := c.displayElements()
	opt := render.Options{SelectedID: c.selected, Zoom: c.zoom, ShowGrid: c.grid}
	c.mu.Unlock()
	return render.Section(w, els, render.Editable, opt)
}

// Preview writes the read-only rendering a client sees.
func (c *Controller) Preview(w io.Writer) error {
	c.mu.Lock()
	els := c.board.Elements()
	c.mu.Unlock()
	return render.Section(w, els, render.ReadOnly, render.Options{})
}
