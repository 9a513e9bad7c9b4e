/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package autosave serialises section saves. At most one save per section is
// in flight; requests that arrive meanwhile collapse into a single pending
// snapshot which runs as soon as the current save finishes.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"proposalcanvas/internal/domain"
	applog "proposalcanvas/internal/log"
	"proposalcanvas/internal/storage"
)

// DefaultTimeout bounds a single store call.
const DefaultTimeout = 30 * time.Second

type Status int

const (
	Idle Status = iota
	InFlight
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case InFlight:
		return "saving"
	case Succeeded:
		return "saved"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// State is the save status of one section.
type State struct {
	SectionID string
	Status    Status
	Err       error
	At        time.Time
}

type Listener func(State)

// Snapshot is what gets persisted: the element list and an optional title.
type Snapshot struct {
	Elements []domain.Element
	Title    *string
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Elements: domain.CloneElements(s.Elements)}
	if out.Elements == nil {
		out.Elements = []domain.Element{}
	}
	if s.Title != nil {
		t := *s.Title
		out.Title = &t
	}
	return out
}

type slot struct {
	running bool
	pending *Snapshot
	waiters []chan error
	state   State
}

// Saver persists snapshots through a SectionStore.
type Saver struct {
	store   storage.SectionStore
	metrics *Metrics
	timeout time.Duration

	mu        sync.Mutex
	sections  map[string]*slot
	listeners map[int]Listener
	nextID    int
	wg        sync.WaitGroup
}

type Option func(*Saver)

func WithMetrics(m *Metrics) Option { return func(s *Saver) { s.metrics = m } }

func WithTimeout(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(store storage.SectionStore, opts ...Option) *Saver {
	s := &Saver{
		store:     store,
		timeout:   DefaultTimeout,
		sections:  map[string]*slot{},
		listeners: map[int]Listener{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// Save persists snap for sectionID and waits for the outcome. If a save of the
// same section is already running, snap replaces any pending snapshot and the
// call returns the result of the save that eventually carries it. Cancelling
// ctx stops the wait, not the save; the save keeps ctx's values for logging.
func (s *Saver) Save(ctx context.Context, sectionID string, snap Snapshot) error {
	done := make(chan error, 1)
	snap = snap.clone()
	runCtx := applog.ContextWithSection(context.WithoutCancel(ctx), "", sectionID)

	s.mu.Lock()
	sl := s.slotLocked(sectionID)
	if sl.running {
		if sl.pending != nil {
			s.metrics.Coalesced.Inc()
		}
		sl.pending = &snap
		sl.waiters = append(sl.waiters, done)
		s.mu.Unlock()
	} else {
		sl.running = true
		s.wg.Add(1)
		s.mu.Unlock()
		go s.drain(runCtx, sectionID, snap, []chan error{done})
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Saver) slotLocked(id string) *slot {
	sl, ok := s.sections[id]
	if !ok {
		sl = &slot{state: State{SectionID: id, Status: Idle}}
		s.sections[id] = sl
	}
	return sl
}

// drain runs snap and then whatever became pending meanwhile, until the slot
// is empty.
func (s *Saver) drain(base context.Context, id string, snap Snapshot, waiters []chan error) {
	defer s.wg.Done()
	l := applog.WithOperation(applog.WithComponent("autosave"), "save")
	for {
		s.transition(id, State{SectionID: id, Status: InFlight, At: time.Now()})

		start := time.Now()
		ctx, cancel := context.WithTimeout(base, s.timeout)
		err := s.store.Save(ctx, id, snap.Elements, snap.Title)
		cancel()
		s.metrics.observe(time.Since(start).Seconds(), err)

		st := State{SectionID: id, Status: Succeeded, At: time.Now()}
		if err != nil {
			st.Status, st.Err = Failed, err
			l.WarnContext(base, "save failed", slog.Any("err", err))
		} else {
			l.DebugContext(base, "saved", slog.Int("elements", len(snap.Elements)), slog.Duration("took", time.Since(start)))
		}

		s.mu.Lock()
		sl := s.sections[id]
		sl.state = st
		next, nextWaiters := sl.pending, sl.waiters
		sl.pending, sl.waiters = nil, nil
		if next == nil {
			sl.running = false
		}
		ls := s.listenersLocked()
		s.mu.Unlock()
		for _, fn := range ls {
			fn(st)
		}
		for _, w := range waiters {
			w <- err
		}

		if next == nil {
			return
		}
		snap, waiters = *next, nextWaiters
	}
}

func (s *Saver) transition(id string, st State) {
	s.mu.Lock()
	s.slotLocked(id).state = st
	ls := s.listenersLocked()
	s.mu.Unlock()
	for _, fn := range ls {
		fn(st)
	}
}

func (s *Saver) listenersLocked() []Listener {
	ls := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		ls = append(ls, fn)
	}
	return ls
}

// State returns the last known status of a section.
func (s *Saver) State(sectionID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.sections[sectionID]; ok {
		return sl.state
	}
	return State{SectionID: sectionID, Status: Idle}
}

// Busy reports whether a save of sectionID is running.
func (s *Saver) Busy(sectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.sections[sectionID]
	return ok && sl.running
}

// Subscribe registers fn for every status change and returns a function that
// removes it. Listeners run on the saving goroutine.
func (s *Saver) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Wait blocks until no save is running or ctx is done.
func (s *Saver) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
