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
	"strconv"
	"strings"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
)

// ChartEditor edits the data series of a chart. The draft starts from a small
// monthly sample when the element has no data yet.
type ChartEditor struct {
	base
	draft *domain.ChartContent
}

func NewChartEditor(el domain.Element) *ChartEditor {
	d := content[*domain.ChartContent](el)
	if d.NameKey == "" {
		d.NameKey = "name"
	}
	if d.ValueKey == "" {
		d.ValueKey = "value"
	}
	if !d.ChartType.Valid() {
		d.ChartType = domain.ChartBar
	}
	if len(d.Data) == 0 {
		d.Data = []domain.ChartPoint{
			domain.NewChartPoint(d.NameKey, "Jan", d.ValueKey, 400.0),
			domain.NewChartPoint(d.NameKey, "Feb", d.ValueKey, 300.0),
			domain.NewChartPoint(d.NameKey, "Mar", d.ValueKey, 600.0),
			domain.NewChartPoint(d.NameKey, "Apr", d.ValueKey, 800.0),
		}
	}
	return &ChartEditor{base: newBase(el), draft: d}
}

func (e *ChartEditor) SetChartType(t domain.ChartType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: chart type %q", ErrInvalidValue, t)
	}
	e.draft.ChartType = t
	return nil
}

func (e *ChartEditor) SetTitle(s string) { e.draft.Title = s }

func (e *ChartEditor) Points() int { return len(e.draft.Data) }

// AddPoint appends "Item n" with value 0.
func (e *ChartEditor) AddPoint() {
	n := len(e.draft.Data) + 1
	e.draft.Data = append(e.draft.Data,
		domain.NewChartPoint(e.draft.NameKey, fmt.Sprintf("Item %d", n), e.draft.ValueKey, 0.0))
}

// RemovePoint deletes point i. The last remaining point cannot be removed.
func (e *ChartEditor) RemovePoint(i int) error {
	if len(e.draft.Data) <= 1 {
		return ErrLastPoint
	}
	if i < 0 || i >= len(e.draft.Data) {
		return fmt.Errorf("%w: point %d", ErrOutOfRange, i)
	}
	e.draft.Data = append(e.draft.Data[:i:i], e.draft.Data[i+1:]...)
	return nil
}

// UpdatePoint sets field on point i. The value field is parsed as a number and
// reads as 0 when it does not parse or is not finite; any other field is stored
// as text.
func (e *ChartEditor) UpdatePoint(i int, field, value string) error {
	if i < 0 || i >= len(e.draft.Data) {
		return fmt.Errorf("%w: point %d", ErrOutOfRange, i)
	}
	if field == e.draft.ValueKey {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || !domain.Finite(f) {
			f = 0
		}
		e.draft.Data[i].Set(field, f)
		return nil
	}
	e.draft.Data[i].Set(field, value)
	return nil
}

// SetKeys renames the label and value fields on every point. Other fields on the
// points are left alone; a target key already used by one of them is rejected
// with ErrKeyInUse.
func (e *ChartEditor) SetKeys(nameKey, valueKey string) error {
	nameKey, valueKey = strings.TrimSpace(nameKey), strings.TrimSpace(valueKey)
	if nameKey == "" || valueKey == "" || nameKey == valueKey {
		return fmt.Errorf("%w: chart keys %q/%q", ErrInvalidValue, nameKey, valueKey)
	}
	oldName, oldValue := e.draft.NameKey, e.draft.ValueKey
	for i, p := range e.draft.Data {
		for _, k := range []string{nameKey, valueKey} {
			if k == oldName || k == oldValue {
				continue
			}
			if _, ok := p.Get(k); ok {
				return fmt.Errorf("%w: %q on point %d", ErrKeyInUse, k, i)
			}
		}
	}
	for i := range e.draft.Data {
		p := &e.draft.Data[i]
		// swapping the two keys needs a temporary name
		if nameKey == oldValue && valueKey == oldName {
			tmp := "\x00swap"
			p.Rename(oldName, tmp)
			p.Rename(oldValue, valueKey)
			p.Rename(tmp, nameKey)
			continue
		}
		if nameKey == oldValue {
			p.Rename(oldValue, valueKey)
			p.Rename(oldName, nameKey)
			continue
		}
		p.Rename(oldName, nameKey)
		p.Rename(oldValue, valueKey)
	}
	e.draft.NameKey, e.draft.ValueKey = nameKey, valueKey
	return nil
}

func (e *ChartEditor) Draft() domain.ChartContent {
	return *domain.CloneContent(e.draft).(*domain.ChartContent)
}
func (e *ChartEditor) Preview() string          { return e.preview(e.draft) }
func (e *ChartEditor) Confirm() geometry.Update { return e.update(e.draft) }
