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
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"proposalcanvas/internal/domain"
)

var (
	ErrNotFound     = errors.New("section not found")
	ErrInvalidOrder = errors.New("reorder ids do not match the proposal sections")
	ErrMissingID    = errors.New("proposal id is required")
)

// SectionStore is the persistence bridge used by the canvas and the server.
//
// Save replaces the element list of an existing section and, when title is
// non-nil, its title. List returns the sections of a proposal ordered by
// order_index. Delete closes the gap it leaves so order_index stays dense.
type SectionStore interface {
	Load(ctx context.Context, id string) (domain.Section, error)
	Save(ctx context.Context, id string, elements []domain.Element, title *string) error
	List(ctx context.Context, proposalID string) ([]domain.Section, error)
	Create(ctx context.Context, s domain.Section) (domain.Section, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, proposalID string, ids []string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	Path   string // sqlite database file or file store directory
	DSN    string // postgres connection string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (SectionStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverSQLite, "":
		return OpenSQLite(ctx, opts.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DSN)
	case DriverFile:
		return OpenFileStore(opts.Path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// prepareCreate fills the fields a backend assigns on Create.
func prepareCreate(s domain.Section, next int) (domain.Section, error) {
	if strings.TrimSpace(s.ProposalID) == "" {
		return domain.Section{}, ErrMissingID
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.OrderIndex = next
	if s.Elements == nil {
		s.Elements = []domain.Element{}
	}
	s.Elements = domain.CloneElements(s.Elements)
	s.UpdatedAt = time.Now().UTC()
	return s, nil
}

// checkOrder verifies that ids is a permutation of current.
func checkOrder(current, ids []string) error {
	if len(current) != len(ids) {
		return fmt.Errorf("%w: have %d sections, got %d ids", ErrInvalidOrder, len(current), len(ids))
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = false
	}
	for _, id := range ids {
		used, ok := seen[id]
		if !ok || used {
			return fmt.Errorf("%w: %q", ErrInvalidOrder, id)
		}
		seen[id] = true
	}
	return nil
}

func sortSections(list []domain.Section) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].OrderIndex < list[j].OrderIndex })
}

func encodeElements(els []domain.Element) (string, error) {
	b, err := domain.EncodeElements(els)
	if err != nil {
		return "", fmt.Errorf("encode elements: %w", err)
	}
	return string(b), nil
}
