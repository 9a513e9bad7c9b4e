/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// elementJSON is the wire shape of an element. Content stays raw until the type
// is known.
type elementJSON struct {
	ID       string          `json:"id"`
	Type     ElementType     `json:"type"`
	Content  json.RawMessage `json:"content"`
	Position Position        `json:"position"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	Locked   bool            `json:"locked,omitempty"`
	ZIndex   *int            `json:"zIndex,omitempty"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	c := e.Content
	if c == nil {
		var err error
		if c, err = DefaultContent(e.Type); err != nil {
			return nil, err
		}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s content: %w", e.Type, err)
	}
	z := e.ZIndex
	return json.Marshal(elementJSON{
		ID:       e.ID,
		Type:     e.Type,
		Content:  raw,
		Position: e.Position,
		Width:    e.Width,
		Height:   e.Height,
		Locked:   e.Locked,
		ZIndex:   &z,
	})
}

func (e *Element) UnmarshalJSON(b []byte) error {
	el, _, err := decodeElement(b)
	if err != nil {
		return err
	}
	*e = el
	return nil
}

// DecodeElements decodes a JSON array of elements. Elements with an unknown type
// or an unparseable envelope are dropped and reported in the returned error; every
// other element is kept, with malformed content degraded to its readable parts.
// Elements without a zIndex get their list position.
func DecodeElements(b []byte) ([]Element, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return []Element{}, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return []Element{}, fmt.Errorf("decode elements: %w", err)
	}
	out := make([]Element, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		el, hasZ, err := decodeElement(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("element %d: %w", i, err))
			continue
		}
		if !hasZ {
			el.ZIndex = i
		}
		out = append(out, el)
	}
	return out, errors.Join(errs...)
}

// EncodeElements encodes an element list; a nil list encodes as [].
func EncodeElements(els []Element) ([]byte, error) {
	if els == nil {
		els = []Element{}
	}
	return json.Marshal(els)
}

func (s *Section) UnmarshalJSON(b []byte) error {
	type alias Section
	var aux struct {
		alias
		Elements json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*s = Section(aux.alias)
	// Broken elements are dropped; callers that need the details use DecodeElements.
	s.Elements, _ = DecodeElements(aux.Elements)
	return nil
}

func decodeElement(b []byte) (Element, bool, error) {
	var w elementJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return Element{}, false, err
	}
	if !w.Type.Valid() {
		return Element{}, false, fmt.Errorf("%w %q", ErrUnknownType, w.Type)
	}
	el := Element{
		ID:       w.ID,
		Type:     w.Type,
		Content:  DecodeContent(w.Type, w.Content),
		Position: w.Position,
		Width:    w.Width,
		Height:   w.Height,
		Locked:   w.Locked,
	}
	if w.ZIndex != nil {
		el.ZIndex = *w.ZIndex
	}
	return el, w.ZIndex != nil, nil
}

// DecodeContent reads raw content for kind t. It never fails: fields that are
// missing or have the wrong JSON type fall back to the kind's style defaults,
// data-bearing fields fall back to empty. Legacy key names are honoured.
func DecodeContent(t ElementType, raw json.RawMessage) Content {
	f := parseFields(raw)
	switch t {
	case TypeText:
		c := &TextContent{
			Text:      f.str("", "text", "html"),
			FontSize:  f.num(16, "fontSize"),
			TextAlign: TextAlign(f.str("left", "textAlign", "align")),
			Color:     f.str("#000000", "color"),
		}
		if f.plain != "" {
			c.Text = f.plain
		}
		if !c.TextAlign.Valid() {
			c.TextAlign = AlignLeft
		}
		if c.FontSize <= 0 {
			c.FontSize = 16
		}
		return c
	case TypeHeading:
		c := &HeadingContent{Text: f.str("", "text"), Level: int(f.num(2, "level"))}
		if f.plain != "" {
			c.Text = f.plain
		}
		if c.Level < 1 || c.Level > 3 {
			c.Level = 2
		}
		return c
	case TypeImage:
		return &ImageContent{
			Src:     f.str("", "src", "url"),
			Alt:     f.str("", "alt"),
			Caption: f.str("", "caption"),
		}
	case TypeTable:
		c := &TableContent{
			Rows:      int(f.num(0, "rows")),
			Cols:      int(f.num(0, "cols")),
			Data:      f.grid("data"),
			HasHeader: f.boolean(true, "hasHeader", "showHeaders"),
			Bordered:  f.boolean(true, "bordered", "showBorders"),
			Striped:   f.boolean(false, "striped", "stripedRows"),
		}
		c.Normalize()
		return c
	case TypeChart:
		c := &ChartContent{
			ChartType: ChartType(f.str("bar", "chartType", "type")),
			Data:      f.points("data"),
			NameKey:   f.str("name", "nameKey"),
			ValueKey:  f.str("value", "valueKey"),
			Title:     f.str("", "title"),
		}
		if !c.ChartType.Valid() {
			c.ChartType = ChartBar
		}
		return c
	case TypeVideo:
		c := &VideoContent{
			URL:      f.str("", "url"),
			EmbedURL: f.str("", "embedUrl"),
			Title:    f.str("", "title"),
			Autoplay: f.boolean(false, "autoplay"),
			Muted:    f.boolean(false, "muted"),
			Loop:     f.boolean(false, "loop"),
		}
		if c.URL == "" {
			c.URL = c.EmbedURL
		}
		c.Derive()
		return c
	case TypeEmbed:
		c := &EmbedContent{
			Code:      f.str("", "code", "embedCode"),
			EmbedType: EmbedType(f.str("iframe", "embedType")),
		}
		if f.plain != "" {
			c.Code = f.plain
		}
		if c.EmbedType != EmbedIframe && c.EmbedType != EmbedCode {
			c.EmbedType = EmbedIframe
		}
		return c
	case TypeShape:
		c := &ShapeContent{
			ShapeType:       ShapeType(f.str("divider", "shapeType")),
			Color:           f.str("#000000", "color", "borderColor"),
			BackgroundColor: f.str("transparent", "backgroundColor", "fillColor"),
			BorderWidth:     f.num(2, "borderWidth"),
			BorderStyle:     BorderStyle(f.str("solid", "borderStyle")),
			Opacity:         ClampOpacity(int(f.num(100, "opacity"))),
		}
		if !c.ShapeType.Valid() {
			c.ShapeType = ShapeDivider
		}
		if !c.BorderStyle.Valid() {
			c.BorderStyle = BorderSolid
		}
		if c.BorderWidth < 0 {
			c.BorderWidth = 0
		}
		return c
	}
	return nil
}

// fields is a forgiving view over a raw content object.
type fields struct {
	m     map[string]json.RawMessage
	plain string // content stored as a bare string by older documents
}

func parseFields(raw json.RawMessage) fields {
	var f fields
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return f
	}
	if raw[0] == '"' {
		_ = json.Unmarshal(raw, &f.plain)
		return f
	}
	_ = json.Unmarshal(raw, &f.m)
	return f
}

func (f fields) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := f.m[k]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

func (f fields) str(def string, keys ...string) string {
	v, ok := f.lookup(keys...)
	if !ok {
		return def
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return def
}

func (f fields) num(def float64, keys ...string) float64 {
	v, ok := f.lookup(keys...)
	if !ok {
		return def
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if p, err := strconv.ParseFloat(s, 64); err == nil {
			return p
		}
	}
	return def
}

func (f fields) boolean(def bool, keys ...string) bool {
	v, ok := f.lookup(keys...)
	if !ok {
		return def
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	return def
}

func (f fields) grid(key string) [][]string {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(v, &rows); err != nil {
		return nil
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		var cells []json.RawMessage
		if err := json.Unmarshal(r, &cells); err != nil {
			out = append(out, nil)
			continue
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = fields{m: map[string]json.RawMessage{"v": c}}.str("", "v")
		}
		out = append(out, row)
	}
	return out
}

func (f fields) points(key string) []ChartPoint {
	v, ok := f.lookup(key)
	if !ok {
		return []ChartPoint{}
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(v, &raws); err != nil {
		return []ChartPoint{}
	}
	out := make([]ChartPoint, 0, len(raws))
	for _, r := range raws {
		var p ChartPoint
		if err := json.Unmarshal(r, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}
