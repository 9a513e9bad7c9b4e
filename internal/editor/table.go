/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
)

// TableEditor edits a grid. Every dimension change goes through
// domain.ResizeGrid so cells at surviving indices keep their value.
type TableEditor struct {
	base
	draft *domain.TableContent
}

func NewTableEditor(el domain.Element) *TableEditor {
	d := content[*domain.TableContent](el)
	d.Normalize()
	return &TableEditor{base: newBase(el), draft: d}
}

func (e *TableEditor) Rows() int { return e.draft.Rows }
func (e *TableEditor) Cols() int { return e.draft.Cols }

// SetRows resizes to n rows; values below 1 become 1.
func (e *TableEditor) SetRows(n int) {
	if n < 1 {
		n = 1
	}
	e.draft.Rows = n
	e.draft.Data = domain.ResizeGrid(e.draft.Data, e.draft.Rows, e.draft.Cols)
}

// SetCols resizes to n columns; values below 1 become 1.
func (e *TableEditor) SetCols(n int) {
	if n < 1 {
		n = 1
	}
	e.draft.Cols = n
	e.draft.Data = domain.ResizeGrid(e.draft.Data, e.draft.Rows, e.draft.Cols)
}

func (e *TableEditor) AddRow()    { e.SetRows(e.draft.Rows + 1) }
func (e *TableEditor) AddColumn() { e.SetCols(e.draft.Cols + 1) }

// DeleteRow removes row i. The last remaining row cannot be deleted.
func (e *TableEditor) DeleteRow(i int) error {
	if e.draft.Rows <= 1 {
		return ErrMinimumGrid
	}
	if i < 0 || i >= e.draft.Rows {
		return fmt.Errorf("%w: row %d", ErrOutOfRange, i)
	}
	data := make([][]string, 0, e.draft.Rows-1)
	data = append(data, e.draft.Data[:i]...)
	data = append(data, e.draft.Data[i+1:]...)
	e.draft.Data = data
	e.draft.Rows--
	return nil
}

// DeleteColumn removes column i from every row. The last remaining column cannot
// be deleted.
func (e *TableEditor) DeleteColumn(i int) error {
	if e.draft.Cols <= 1 {
		return ErrMinimumGrid
	}
	if i < 0 || i >= e.draft.Cols {
		return fmt.Errorf("%w: column %d", ErrOutOfRange, i)
	}
	for r, row := range e.draft.Data {
		nr := make([]string, 0, len(row)-1)
		nr = append(nr, row[:i]...)
		nr = append(nr, row[i+1:]...)
		e.draft.Data[r] = nr
	}
	e.draft.Cols--
	return nil
}

func (e *TableEditor) SetCell(r, c int, v string) error {
	if r < 0 || r >= e.draft.Rows || c < 0 || c >= e.draft.Cols {
		return fmt.Errorf("%w: cell %d,%d", ErrOutOfRange, r, c)
	}
	e.draft.Data[r][c] = v
	return nil
}

func (e *TableEditor) SetHeader(on bool)   { e.draft.HasHeader = on }
func (e *TableEditor) SetBordered(on bool) { e.draft.Bordered = on }
func (e *TableEditor) SetStriped(on bool)  { e.draft.Striped = on }

func (e *TableEditor) Draft() domain.TableContent {
	return *domain.CloneContent(e.draft).(*domain.TableContent)
}
func (e *TableEditor) Preview() string          { return e.preview(e.draft) }
func (e *TableEditor) Confirm() geometry.Update { return e.update(e.draft) }
