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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"proposalcanvas/internal/domain"
	applog "proposalcanvas/internal/log"
)

// sqlStore implements SectionStore over database/sql. Queries are written with
// '?' placeholders and rewritten for drivers that number them.
type sqlStore struct {
	db        *sql.DB
	component string
	numbered  bool   // $1, $2 ... placeholders
	jsonCast  string // appended to the elements parameter, e.g. "::jsonb"
	jsonRead  string // column expression used to read elements as text
}

func (s *sqlStore) q(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) logger(op string) *slog.Logger {
	return applog.WithOperation(applog.WithComponent(s.component), op)
}

// DB exposes the underlying handle for maintenance tasks and tests.
func (s *sqlStore) DB() *sql.DB { return s.db }

func (s *sqlStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *sqlStore) selectCols() string {
	return "id, proposal_id, title, order_index, " + s.jsonRead + ", updated_at"
}

func (s *sqlStore) scanSection(row rowScanner) (domain.Section, error) {
	var (
		sec     domain.Section
		raw     string
		updated string
	)
	if err := row.Scan(&sec.ID, &sec.ProposalID, &sec.Title, &sec.OrderIndex, &raw, &updated); err != nil {
		return domain.Section{}, err
	}
	els, err := domain.DecodeElements([]byte(raw))
	if err != nil {
		// The readable elements are kept; the rest is reported and dropped.
		s.logger("decode").Warn("section elements partially decoded",
			slog.String("section", sec.ID), slog.Any("err", err))
	}
	sec.Elements = els
	if t, perr := time.Parse(time.RFC3339Nano, updated); perr == nil {
		sec.UpdatedAt = t
	}
	return sec, nil
}

func (s *sqlStore) Load(ctx context.Context, id string) (domain.Section, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+s.selectCols()+` FROM sections WHERE id=?`), id)
	sec, err := s.scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Section{}, ErrNotFound
	}
	if err != nil {
		return domain.Section{}, fmt.Errorf("load section %s: %w", id, err)
	}
	return sec, nil
}

func (s *sqlStore) Save(ctx context.Context, id string, elements []domain.Element, title *string) error {
	raw, err := encodeElements(elements)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var res sql.Result
	if title != nil {
		res, err = s.db.ExecContext(ctx,
			s.q(`UPDATE sections SET elements=?`+s.jsonCast+`, title=?, updated_at=? WHERE id=?`),
			raw, *title, now, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			s.q(`UPDATE sections SET elements=?`+s.jsonCast+`, updated_at=? WHERE id=?`),
			raw, now, id)
	}
	if err != nil {
		s.logger("save").Error("save section failed", slog.String("section", id), slog.Any("err", err))
		return fmt.Errorf("save section %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context, proposalID string) ([]domain.Section, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+s.selectCols()+` FROM sections WHERE proposal_id=? ORDER BY order_index, id`), proposalID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Section{}
	for rows.Next() {
		sec, err := s.scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return out, nil
}

func (s *sqlStore) Create(ctx context.Context, sec domain.Section) (domain.Section, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Section{}, fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM sections WHERE proposal_id=?`), sec.ProposalID).Scan(&count); err != nil {
		return domain.Section{}, fmt.Errorf("count sections: %w", err)
	}
	sec, err = prepareCreate(sec, count)
	if err != nil {
		return domain.Section{}, err
	}
	raw, err := encodeElements(sec.Elements)
	if err != nil {
		return domain.Section{}, err
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO sections (id, proposal_id, title, order_index, elements, updated_at) VALUES (?, ?, ?, ?, ?`+s.jsonCast+`, ?)`),
		sec.ID, sec.ProposalID, sec.Title, sec.OrderIndex, raw, sec.UpdatedAt.Format(time.RFC3339Nano)); err != nil {
		return domain.Section{}, fmt.Errorf("insert section: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Section{}, fmt.Errorf("commit create: %w", err)
	}
	s.logger("create").Info("section created", slog.String("section", sec.ID), slog.String("proposal", sec.ProposalID))
	return sec, nil
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var proposalID string
	err = tx.QueryRowContext(ctx, s.q(`SELECT proposal_id FROM sections WHERE id=?`), id).Scan(&proposalID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find section %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM sections WHERE id=?`), id); err != nil {
		return fmt.Errorf("delete section %s: %w", id, err)
	}
	ids, err := s.orderedIDs(ctx, tx, proposalID)
	if err != nil {
		return err
	}
	if err := s.writeOrder(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *sqlStore) Reorder(ctx context.Context, proposalID string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.orderedIDs(ctx, tx, proposalID)
	if err != nil {
		return err
	}
	if err := checkOrder(current, ids); err != nil {
		return err
	}
	if err := s.writeOrder(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

func (s *sqlStore) orderedIDs(ctx context.Context, tx *sql.Tx, proposalID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, s.q(`SELECT id FROM sections WHERE proposal_id=? ORDER BY order_index, id`), proposalID)
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqlStore) writeOrder(ctx context.Context, tx *sql.Tx, ids []string) error {
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE sections SET order_index=? WHERE id=?`), i, id); err != nil {
			return fmt.Errorf("update order of %s: %w", id, err)
		}
	}
	return nil
}
