/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"sync"
	"time"

	"proposalcanvas/internal/domain"
)

// MemoryStore keeps sections in a map. Failures can be injected for tests.
type MemoryStore struct {
	mu       sync.Mutex
	sections map[string]domain.Section

	saveErrs []error
	loadErr  error
	saves    int
	onSave   func(id string)
}

func NewMemoryStore(seed ...domain.Section) *MemoryStore {
	m := &MemoryStore{sections: map[string]domain.Section{}}
	for _, s := range seed {
		s.Elements = domain.CloneElements(s.Elements)
		if s.Elements == nil {
			s.Elements = []domain.Element{}
		}
		m.sections[s.ID] = s
	}
	return m
}

// FailSaves makes the next len(errs) calls to Save return those errors in order.
func (m *MemoryStore) FailSaves(errs ...error) {
	m.mu.Lock()
	m.saveErrs = append(m.saveErrs, errs...)
	m.mu.Unlock()
}

// FailLoads makes every Load return err until it is called again with nil.
func (m *MemoryStore) FailLoads(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

// OnSave registers a hook called at the start of every Save, outside the lock.
func (m *MemoryStore) OnSave(fn func(id string)) {
	m.mu.Lock()
	m.onSave = fn
	m.mu.Unlock()
}

// Saves reports how many Save calls reached the store.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Load(ctx context.Context, id string) (domain.Section, error) {
	if err := ctx.Err(); err != nil {
		return domain.Section{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.Section{}, m.loadErr
	}
	s, ok := m.sections[id]
	if !ok {
		return domain.Section{}, ErrNotFound
	}
	s.Elements = domain.CloneElements(s.Elements)
	return s, nil
}

func (m *MemoryStore) Save(ctx context.Context, id string, elements []domain.Element, title *string) error {
	m.mu.Lock()
	hook := m.onSave
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if len(m.saveErrs) > 0 {
		err := m.saveErrs[0]
		m.saveErrs = m.saveErrs[1:]
		if err != nil {
			return err
		}
	}
	s, ok := m.sections[id]
	if !ok {
		return ErrNotFound
	}
	s.Elements = domain.CloneElements(elements)
	if s.Elements == nil {
		s.Elements = []domain.Element{}
	}
	if title != nil {
		s.Title = *title
	}
	s.UpdatedAt = time.Now().UTC()
	m.sections[id] = s
	return nil
}

func (m *MemoryStore) List(ctx context.Context, proposalID string) ([]domain.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(proposalID), nil
}

func (m *MemoryStore) listLocked(proposalID string) []domain.Section {
	out := []domain.Section{}
	for _, s := range m.sections {
		if s.ProposalID == proposalID {
			s.Elements = domain.CloneElements(s.Elements)
			out = append(out, s)
		}
	}
	sortSections(out)
	return out
}

func (m *MemoryStore) Create(ctx context.Context, s domain.Section) (domain.Section, error) {
	if err := ctx.Err(); err != nil {
		return domain.Section{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := prepareCreate(s, len(m.listLocked(s.ProposalID)))
	if err != nil {
		return domain.Section{}, err
	}
	m.sections[s.ID] = s
	s.Elements = domain.CloneElements(s.Elements)
	return s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sections[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.sections, id)
	for i, r := range m.listLocked(s.ProposalID) {
		cur := m.sections[r.ID]
		cur.OrderIndex = i
		m.sections[r.ID] = cur
	}
	return nil
}

func (m *MemoryStore) Reorder(ctx context.Context, proposalID string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.listLocked(proposalID)
	current := make([]string, len(list))
	for i, s := range list {
		current[i] = s.ID
	}
	if err := checkOrder(current, ids); err != nil {
		return err
	}
	for i, id := range ids {
		cur := m.sections[id]
		cur.OrderIndex = i
		m.sections[id] = cur
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
