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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"proposalcanvas/internal/domain"
	applog "proposalcanvas/internal/log"
)

const (
	DocumentSuffix = ".proposal.json"
	BackupsDirName = "backups"
	// MaxBackups is the number of backups kept per proposal document.
	MaxBackups = 20

	documentVersion = 1
)

var (
	ErrInvalidDocument = errors.New("proposal document does not match schema")
	ErrInvalidID       = errors.New("invalid proposal id")
)

//go:embed schema/proposal.schema.json
var documentSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func proposalSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(documentSchema))
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks a proposal document against the embedded schema.
func ValidateDocument(data []byte) error {
	schema, err := proposalSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	return nil
}

type proposalDoc struct {
	Version    int              `json:"version"`
	ProposalID string           `json:"proposal_id"`
	Sections   []domain.Section `json:"sections"`
}

// FileStore keeps one JSON document per proposal under a root directory.
// Writes go to a temp file that is renamed over the document after the
// previous version has been copied to a timestamped backup. A document that
// cannot be read, parsed or validated is recovered from its latest backup.
type FileStore struct {
	mu   sync.Mutex
	root string
}

func OpenFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(filepath.Join(root, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	if _, err := proposalSchema(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (f *FileStore) Root() string { return f.root }

// DocumentPath returns where the document of proposalID lives.
func (f *FileStore) DocumentPath(proposalID string) string {
	return filepath.Join(f.root, proposalID+DocumentSuffix)
}

func checkProposalID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") || filepath.Base(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (f *FileStore) Load(ctx context.Context, id string) (domain.Section, error) {
	if err := ctx.Err(); err != nil {
		return domain.Section{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, i, err := f.find(id)
	if err != nil {
		return domain.Section{}, err
	}
	return doc.Sections[i], nil
}

func (f *FileStore) Save(ctx context.Context, id string, elements []domain.Element, title *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, i, err := f.find(id)
	if err != nil {
		return err
	}
	sec := &doc.Sections[i]
	sec.Elements = domain.CloneElements(elements)
	if sec.Elements == nil {
		sec.Elements = []domain.Element{}
	}
	if title != nil {
		sec.Title = *title
	}
	sec.UpdatedAt = time.Now().UTC()
	return f.write(doc)
}

func (f *FileStore) List(ctx context.Context, proposalID string) ([]domain.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkProposalID(proposalID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(proposalID)
	if err != nil {
		return nil, err
	}
	out := append([]domain.Section{}, doc.Sections...)
	sortSections(out)
	return out, nil
}

func (f *FileStore) Create(ctx context.Context, s domain.Section) (domain.Section, error) {
	if err := ctx.Err(); err != nil {
		return domain.Section{}, err
	}
	if err := checkProposalID(s.ProposalID); err != nil {
		return domain.Section{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(s.ProposalID)
	if err != nil {
		return domain.Section{}, err
	}
	s, err = prepareCreate(s, len(doc.Sections))
	if err != nil {
		return domain.Section{}, err
	}
	doc.Sections = append(doc.Sections, s)
	if err := f.write(doc); err != nil {
		return domain.Section{}, err
	}
	return s, nil
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, i, err := f.find(id)
	if err != nil {
		return err
	}
	doc.Sections = append(doc.Sections[:i], doc.Sections[i+1:]...)
	sortSections(doc.Sections)
	for j := range doc.Sections {
		doc.Sections[j].OrderIndex = j
	}
	return f.write(doc)
}

func (f *FileStore) Reorder(ctx context.Context, proposalID string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkProposalID(proposalID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(proposalID)
	if err != nil {
		return err
	}
	sortSections(doc.Sections)
	current := make([]string, len(doc.Sections))
	pos := make(map[string]int, len(doc.Sections))
	for i, s := range doc.Sections {
		current[i] = s.ID
		pos[s.ID] = i
	}
	if err := checkOrder(current, ids); err != nil {
		return err
	}
	reordered := make([]domain.Section, len(ids))
	for i, id := range ids {
		reordered[i] = doc.Sections[pos[id]]
		reordered[i].OrderIndex = i
	}
	doc.Sections = reordered
	return f.write(doc)
}

func (f *FileStore) Close() error { return nil }

// find locates the document holding section id.
func (f *FileStore) find(id string) (*proposalDoc, int, error) {
	ents, err := os.ReadDir(f.root)
	if err != nil {
		return nil, 0, fmt.Errorf("read store root: %w", err)
	}
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, DocumentSuffix) {
			continue
		}
		doc, err := f.read(strings.TrimSuffix(name, DocumentSuffix))
		if err != nil {
			applog.WithOperation(applog.WithComponent("storage.file"), "find").Warn("skipping unreadable document",
				slog.String("file", name), slog.Any("err", err))
			continue
		}
		for i := range doc.Sections {
			if doc.Sections[i].ID == id {
				return doc, i, nil
			}
		}
	}
	return nil, 0, ErrNotFound
}

// read loads a proposal document. A missing document is an empty proposal.
func (f *FileStore) read(proposalID string) (*proposalDoc, error) {
	path := f.DocumentPath(proposalID)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &proposalDoc{Version: documentVersion, ProposalID: proposalID, Sections: []domain.Section{}}, nil
	}
	var doc *proposalDoc
	if err == nil {
		doc, err = decodeDocument(b)
	}
	if err != nil {
		l := applog.WithOperation(applog.WithComponent("storage.file"), "recover").With(slog.String("path", path))
		recovered, berr := f.openFromLatestBackup(proposalID)
		if berr != nil {
			l.Error("document unreadable and no usable backup", slog.Any("err", err), slog.Any("backup_err", berr))
			return nil, fmt.Errorf("open document: %w; backup attempt: %v", err, berr)
		}
		l.Warn("document recovered from backup", slog.Any("err", err))
		doc = recovered
	}
	doc.ProposalID = proposalID
	for i := range doc.Sections {
		doc.Sections[i].ProposalID = proposalID
	}
	return doc, nil
}

func decodeDocument(b []byte) (*proposalDoc, error) {
	if err := ValidateDocument(b); err != nil {
		return nil, err
	}
	var doc proposalDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Sections == nil {
		doc.Sections = []domain.Section{}
	}
	return &doc, nil
}

// write replaces the document transactionally after backing up the current one.
func (f *FileStore) write(doc *proposalDoc) error {
	doc.Version = documentVersion
	for i := range doc.Sections {
		if doc.Sections[i].Elements == nil {
			doc.Sections[i].Elements = []domain.Element{}
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')

	target := f.DocumentPath(doc.ProposalID)
	bdir := filepath.Join(f.root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().UTC().Format("20060102-150405.000000000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(target), stamp))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup current document: %w", cerr)
		}
		f.pruneBackups(doc.ProposalID)
	}

	temp := filepath.Join(f.root, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(target), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp document: %w", werr)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace document: %w", rerr)
	}
	return nil
}

func (f *FileStore) backups(proposalID string) []string {
	bdir := filepath.Join(f.root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	prefix := proposalID + DocumentSuffix + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// The timestamp in the name yields lexicographic order.
	sort.Strings(out)
	return out
}

func (f *FileStore) pruneBackups(proposalID string) {
	list := f.backups(proposalID)
	for len(list) > MaxBackups {
		_ = os.Remove(list[0])
		list = list[1:]
	}
}

// openFromLatestBackup returns the newest backup that still validates.
func (f *FileStore) openFromLatestBackup(proposalID string) (*proposalDoc, error) {
	list := f.backups(proposalID)
	if len(list) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(list) - 1; i >= 0; i-- {
		b, err := os.ReadFile(list[i])
		if err != nil {
			lastErr = fmt.Errorf("read backup: %w", err)
			continue
		}
		doc, err := decodeDocument(b)
		if err != nil {
			lastErr = err
			continue
		}
		return doc, nil
	}
	return nil, lastErr
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
