/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// ResizeGrid returns a rows x cols copy of data. Cells at matching [row][col]
// indices keep their value, new cells are empty strings and cells outside the new
// bounds are dropped. Dimensions below 1 are treated as 1.
func ResizeGrid(data [][]string, rows, cols int) [][]string {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	out := make([][]string, rows)
	for r := 0; r < rows; r++ {
		row := make([]string, cols)
		if r < len(data) {
			copy(row, data[r])
		}
		out[r] = row
	}
	return out
}

// Normalize repairs a table whose dimensions and grid disagree, as found in
// legacy or hand-edited documents. Missing dimensions are taken from the grid.
func (c *TableContent) Normalize() {
	if c.Rows < 1 {
		c.Rows = len(c.Data)
	}
	if c.Cols < 1 {
		for _, row := range c.Data {
			if len(row) > c.Cols {
				c.Cols = len(row)
			}
		}
	}
	if c.Rows < 1 {
		c.Rows = 1
	}
	if c.Cols < 1 {
		c.Cols = 1
	}
	if !gridMatches(c.Data, c.Rows, c.Cols) {
		c.Data = ResizeGrid(c.Data, c.Rows, c.Cols)
	}
}

// Cell returns the value at r, c or "" when out of range.
func (c *TableContent) Cell(r, col int) string {
	if r < 0 || r >= len(c.Data) || col < 0 || col >= len(c.Data[r]) {
		return ""
	}
	return c.Data[r][col]
}

func gridMatches(data [][]string, rows, cols int) bool {
	if len(data) != rows {
		return false
	}
	for _, row := range data {
		if len(row) != cols {
			return false
		}
	}
	return true
}

func cloneGrid(data [][]string) [][]string {
	if data == nil {
		return nil
	}
	out := make([][]string, len(data))
	for i, row := range data {
		out[i] = append([]string(nil), row...)
	}
	return out
}
