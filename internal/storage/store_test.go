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
	"os"
	"path/filepath"
	"testing"
	"time"

	"proposalcanvas/internal/domain"
)

type storeFactory func(t *testing.T) SectionStore

func backends(t *testing.T) map[string]storeFactory {
	t.Helper()
	return map[string]storeFactory{
		"memory": func(t *testing.T) SectionStore { return NewMemoryStore() },
		"sqlite": func(t *testing.T) SectionStore {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sections.sqlite"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"file": func(t *testing.T) SectionStore {
			s, err := OpenFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("OpenFileStore: %v", err)
			}
			return s
		},
		"postgres": func(t *testing.T) SectionStore { return openPGForTest(t) },
	}
}

func textElement(t *testing.T, id string, x float64, z int) domain.Element {
	t.Helper()
	el, err := domain.NewElement(id, domain.TypeText, domain.Position{X: x, Y: 10}, z)
	if err != nil {
		t.Fatalf("NewElement: %v", err)
	}
	el.Content = &domain.TextContent{Text: "hello " + id, FontSize: 16, Align: domain.AlignLeft, Color: "#000000"}
	return el
}

func ids(list []domain.Section) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSectionStoreContract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			st := open(t)
			proposal := "proposal-" + name + "-" + time.Now().Format("150405.000000")

			var created []domain.Section
			for _, title := range []string{"Intro", "Pricing", "Team"} {
				s, err := st.Create(ctx, domain.Section{ProposalID: proposal, Title: title})
				if err != nil {
					t.Fatalf("Create %s: %v", title, err)
				}
				if s.ID == "" {
					t.Fatalf("Create did not assign an id")
				}
				created = append(created, s)
			}
			for i, s := range created {
				if s.OrderIndex != i {
					t.Fatalf("section %s order_index=%d want %d", s.Title, s.OrderIndex, i)
				}
			}

			// Save replaces elements and keeps the title when none is given.
			els := []domain.Element{textElement(t, "a", 10, 0), textElement(t, "b", 40, 1)}
			if err := st.Save(ctx, created[1].ID, els, nil); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := st.Load(ctx, created[1].ID)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Title != "Pricing" || len(got.Elements) != 2 {
				t.Fatalf("unexpected section after save: title=%q elements=%d", got.Title, len(got.Elements))
			}
			if got.Elements[1].Position.X != 40 || got.Elements[1].ZIndex != 1 {
				t.Fatalf("element geometry not preserved: %+v", got.Elements[1])
			}
			tc, ok := got.Elements[0].Content.(*domain.TextContent)
			if !ok || tc.Text != "hello a" {
				t.Fatalf("content not preserved: %#v", got.Elements[0].Content)
			}

			title := "Pricing & Terms"
			if err := st.Save(ctx, created[1].ID, []domain.Element{}, &title); err != nil {
				t.Fatalf("Save with title: %v", err)
			}
			got, _ = st.Load(ctx, created[1].ID)
			if got.Title != title || len(got.Elements) != 0 {
				t.Fatalf("title=%q elements=%d", got.Title, len(got.Elements))
			}

			// Reorder then delete: order_index stays dense.
			want := []string{created[2].ID, created[0].ID, created[1].ID}
			if err := st.Reorder(ctx, proposal, want); err != nil {
				t.Fatalf("Reorder: %v", err)
			}
			list, err := st.List(ctx, proposal)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !equalIDs(ids(list), want) {
				t.Fatalf("order after reorder: %v want %v", ids(list), want)
			}
			if err := st.Delete(ctx, created[2].ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			list, _ = st.List(ctx, proposal)
			if !equalIDs(ids(list), want[1:]) {
				t.Fatalf("order after delete: %v", ids(list))
			}
			for i, s := range list {
				if s.OrderIndex != i {
					t.Fatalf("order_index not dense: %s=%d", s.ID, s.OrderIndex)
				}
			}

			if _, err := st.Load(ctx, created[2].ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load deleted: want ErrNotFound, got %v", err)
			}
			if err := st.Save(ctx, "missing", nil, nil); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Save missing: want ErrNotFound, got %v", err)
			}
			if err := st.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Delete missing: want ErrNotFound, got %v", err)
			}
			if err := st.Reorder(ctx, proposal, []string{created[0].ID}); !errors.Is(err, ErrInvalidOrder) {
				t.Fatalf("Reorder partial: want ErrInvalidOrder, got %v", err)
			}
			if err := st.Reorder(ctx, proposal, []string{created[0].ID, created[0].ID}); !errors.Is(err, ErrInvalidOrder) {
				t.Fatalf("Reorder duplicate: want ErrInvalidOrder, got %v", err)
			}
			if _, err := st.Create(ctx, domain.Section{Title: "orphan"}); !errors.Is(err, ErrMissingID) {
				t.Fatalf("Create without proposal: want ErrMissingID, got %v", err)
			}
		})
	}
}

func TestListEmptyProposal(t *testing.T) {
	st := NewMemoryStore()
	list, err := st.List(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("want empty non-nil list, got %#v", list)
	}
}

func TestMemoryStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(domain.Section{ID: "s1", ProposalID: "p"})
	boom := errors.New("network down")
	st.FailSaves(boom)

	if err := st.Save(ctx, "s1", []domain.Element{textElement(t, "a", 0, 0)}, nil); !errors.Is(err, boom) {
		t.Fatalf("want injected error, got %v", err)
	}
	got, _ := st.Load(ctx, "s1")
	if len(got.Elements) != 0 {
		t.Fatalf("failed save must not persist, got %d elements", len(got.Elements))
	}
	if err := st.Save(ctx, "s1", []domain.Element{textElement(t, "a", 0, 0)}, nil); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if st.Saves() != 2 {
		t.Fatalf("Saves=%d want 2", st.Saves())
	}

	st.FailLoads(boom)
	if _, err := st.Load(ctx, "s1"); !errors.Is(err, boom) {
		t.Fatalf("want load error, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(domain.Section{ID: "s1", ProposalID: "p", Elements: []domain.Element{textElement(t, "a", 0, 0)}})
	got, _ := st.Load(ctx, "s1")
	got.Elements[0].Position.X = 999
	again, _ := st.Load(ctx, "s1")
	if again.Elements[0].Position.X == 999 {
		t.Fatalf("Load leaked internal state")
	}
}

func TestOpenDriver(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, Options{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := st.(*MemoryStore); !ok {
		t.Fatalf("unexpected store %T", st)
	}
	st, err = Open(ctx, Options{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "x", "db.sqlite")})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	_ = st.Close()
	if _, err := Open(ctx, Options{Driver: "mongo"}); err == nil {
		t.Fatalf("unknown driver should fail")
	}
}

func TestSQLiteMigratesOldSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.sqlite")
	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `INSERT INTO sections (id, proposal_id, title, order_index, elements, updated_at) VALUES ('s1','p','t',0,'not json','2024-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `UPDATE version SET schema=1 WHERE id=1`); err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	_ = st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	v, err := st.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema=%d err=%v want %d", v, err, schemaVersion)
	}
	sec, err := st.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sec.Elements) != 0 {
		t.Fatalf("invalid elements should be reset, got %d", len(sec.Elements))
	}
}

func TestSQLiteDropsUnknownElementKinds(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = st.Close() }()
	raw := `[{"id":"a","type":"text","content":"hi","position":{"x":1,"y":2},"width":100,"height":40},{"id":"b","type":"hologram"}]`
	if _, err := st.DB().ExecContext(ctx, `INSERT INTO sections (id, proposal_id, title, order_index, elements, updated_at) VALUES ('s1','p','t',0,?,'2024-01-01T00:00:00Z')`, raw); err != nil {
		t.Fatalf("seed: %v", err)
	}
	sec, err := st.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sec.Elements) != 1 || sec.Elements[0].ID != "a" {
		t.Fatalf("want only the text element, got %+v", sec.Elements)
	}
}

func TestFileStoreWritesBackupsAndRecovers(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	st, err := OpenFileStore(root)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	s, err := st.Create(ctx, domain.Section{ProposalID: "acme", Title: "Intro"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Save(ctx, s.ID, []domain.Element{textElement(t, "a", 5, 0)}, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(st.DocumentPath("acme"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if err := ValidateDocument(data); err != nil {
		t.Fatalf("document does not validate: %v", err)
	}
	if len(st.backups("acme")) == 0 {
		t.Fatalf("expected a backup of the previous document")
	}

	// Corrupt the document; the latest backup holds the state before the save.
	if err := os.WriteFile(st.DocumentPath("acme"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := st.Load(ctx, s.ID)
	if err != nil {
		t.Fatalf("Load after corruption: %v", err)
	}
	if got.Title != "Intro" {
		t.Fatalf("recovered title=%q", got.Title)
	}
}

func TestFileStoreRejectsSchemaViolations(t *testing.T) {
	if err := ValidateDocument([]byte(`{"version":1,"proposal_id":"p","sections":[{"id":"s","order_index":-1,"elements":[]}]}`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("negative order_index: want ErrInvalidDocument, got %v", err)
	}
	if err := ValidateDocument([]byte(`{"version":1,"proposal_id":"p","sections":[{"id":"s","order_index":0,"elements":[{"id":"a"}]}]}`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("element without type: want ErrInvalidDocument, got %v", err)
	}
	if err := ValidateDocument([]byte(`{"version":1,"proposal_id":"p","sections":[]}`)); err != nil {
		t.Fatalf("empty proposal should validate: %v", err)
	}
}

func TestFileStoreRejectsPathLikeIDs(t *testing.T) {
	st, err := OpenFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	if _, err := st.Create(context.Background(), domain.Section{ProposalID: "../escape"}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("want ErrInvalidID, got %v", err)
	}
}

func TestFileStorePrunesBackups(t *testing.T) {
	ctx := context.Background()
	st, err := OpenFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	s, err := st.Create(ctx, domain.Section{ProposalID: "p"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < MaxBackups+5; i++ {
		if err := st.Save(ctx, s.ID, nil, nil); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	if n := len(st.backups("p")); n > MaxBackups {
		t.Fatalf("backups=%d want <= %d", n, MaxBackups)
	}
}
