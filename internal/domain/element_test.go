/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNewElementDefaultsEveryKind(t *testing.T) {
	for i, k := range AllTypes {
		el, err := NewElement("e", k, Position{X: 10, Y: 20}, i)
		if err != nil {
			t.Fatalf("NewElement(%s): %v", k, err)
		}
		if err := el.Validate(); err != nil {
			t.Fatalf("default %s element invalid: %v", k, err)
		}
		if el.ZIndex != i {
			t.Fatalf("%s: zIndex=%d want %d", k, el.ZIndex, i)
		}
		if el.Content.Kind() != k {
			t.Fatalf("%s: content kind %s", k, el.Content.Kind())
		}
	}
	if _, err := NewElement("x", "sticker", Position{}, 0); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestDefaultContentValues(t *testing.T) {
	c, _ := DefaultContent(TypeTable)
	tc := c.(*TableContent)
	if tc.Rows != 3 || tc.Cols != 3 || !tc.HasHeader || !tc.Bordered || tc.Striped {
		t.Fatalf("unexpected table defaults: %+v", tc)
	}
	if len(tc.Data) != 3 || len(tc.Data[2]) != 3 || tc.Data[1][1] != "" {
		t.Fatalf("table grid not 3x3 empty: %v", tc.Data)
	}

	c, _ = DefaultContent(TypeChart)
	cc := c.(*ChartContent)
	if cc.ChartType != ChartBar || len(cc.Data) != 2 || cc.NameKey != "name" || cc.ValueKey != "value" {
		t.Fatalf("unexpected chart defaults: %+v", cc)
	}
	if cc.Data[0].Name("name") != "Q1" || cc.Data[1].Value("value") != 200 {
		t.Fatalf("unexpected chart sample points: %+v", cc.Data)
	}

	c, _ = DefaultContent(TypeShape)
	sc := c.(*ShapeContent)
	if sc.ShapeType != ShapeDivider || sc.BorderWidth != 2 || sc.Opacity != 100 || sc.BackgroundColor != "transparent" {
		t.Fatalf("unexpected shape defaults: %+v", sc)
	}

	c, _ = DefaultContent(TypeHeading)
	if h := c.(*HeadingContent); h.Level != 2 || h.Text != DefaultHeadingPlaceholder {
		t.Fatalf("unexpected heading defaults: %+v", h)
	}
}

func TestCloneIsDeep(t *testing.T) {
	el, _ := NewElement("t1", TypeTable, Position{}, 0)
	cp := el.Clone()
	cp.Content.(*TableContent).Data[0][0] = "changed"
	if el.Content.(*TableContent).Data[0][0] != "" {
		t.Fatalf("clone shares table grid with original")
	}

	ch, _ := NewElement("c1", TypeChart, Position{}, 0)
	cc := ch.Clone()
	cc.Content.(*ChartContent).Data[0].Set("name", "Z")
	if ch.Content.(*ChartContent).Data[0].Name("name") != "Q1" {
		t.Fatalf("clone shares chart points with original")
	}
}

func TestValidate(t *testing.T) {
	el, _ := NewElement("a", TypeText, Position{}, 0)
	el.Width = 0
	if err := el.Validate(); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	el.Width = 10
	el.Content = &HeadingContent{Text: "x", Level: 1}
	if err := el.Validate(); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}

func TestContainsAndFloorSize(t *testing.T) {
	el := Element{Position: Position{X: 10, Y: 10}, Width: 20, Height: 5}
	if !el.Contains(10, 10) || !el.Contains(30, 15) {
		t.Fatalf("edges should be inside")
	}
	if el.Contains(31, 12) || el.Contains(15, 9) {
		t.Fatalf("points outside reported inside")
	}
	if FloorSize(-5) != MinSize || FloorSize(0.2) != MinSize || FloorSize(math.NaN()) != MinSize {
		t.Fatalf("FloorSize did not floor")
	}
	if FloorSize(42) != 42 {
		t.Fatalf("FloorSize changed a valid size")
	}
}

func TestResizeGridPreservesCells(t *testing.T) {
	data := [][]string{{"a", "b"}, {"c", "d"}}
	grown := ResizeGrid(data, 3, 3)
	want := [][]string{{"a", "b", ""}, {"c", "d", ""}, {"", "", ""}}
	for r := range want {
		for c := range want[r] {
			if grown[r][c] != want[r][c] {
				t.Fatalf("grown[%d][%d]=%q want %q", r, c, grown[r][c], want[r][c])
			}
		}
	}
	shrunk := ResizeGrid(grown, 1, 1)
	if len(shrunk) != 1 || len(shrunk[0]) != 1 || shrunk[0][0] != "a" {
		t.Fatalf("unexpected shrink result: %v", shrunk)
	}
	floored := ResizeGrid(nil, 0, -2)
	if len(floored) != 1 || len(floored[0]) != 1 {
		t.Fatalf("dimensions below 1 must floor to 1: %v", floored)
	}
	data[0][0] = "mutated"
	if grown[0][0] != "a" {
		t.Fatalf("ResizeGrid aliases input rows")
	}
}

func TestTableNormalize(t *testing.T) {
	tc := &TableContent{Data: [][]string{{"a"}, {"b", "c", "d"}}}
	tc.Normalize()
	if tc.Rows != 2 || tc.Cols != 3 {
		t.Fatalf("dims from grid: %dx%d", tc.Rows, tc.Cols)
	}
	if len(tc.Data[0]) != 3 || tc.Cell(1, 2) != "d" || tc.Cell(0, 2) != "" {
		t.Fatalf("ragged grid not repaired: %v", tc.Data)
	}
	if tc.Cell(9, 9) != "" {
		t.Fatalf("out of range cell must be empty")
	}
	empty := &TableContent{}
	empty.Normalize()
	if empty.Rows != 1 || empty.Cols != 1 || len(empty.Data) != 1 {
		t.Fatalf("empty table should normalize to 1x1: %+v", empty)
	}
}

func TestChartPointRenameKeepsExtraKeys(t *testing.T) {
	p := NewChartPoint("name", "Q1", "value", 100.0, "color", "#f00")
	p.Rename("name", "label")
	if len(p.Fields) != 3 || p.Fields[0].Key != "label" || p.Name("label") != "Q1" {
		t.Fatalf("rename lost position or value: %+v", p.Fields)
	}
	if v, ok := p.Get("color"); !ok || v != "#f00" {
		t.Fatalf("extra key lost: %+v", p.Fields)
	}
	p.Rename("missing", "x")
	if len(p.Fields) != 3 {
		t.Fatalf("renaming an absent key must not change the point")
	}
	p.Rename("label", "value")
	if len(p.Fields) != 2 || p.Fields[0].Key != "value" || p.Name("value") != "Q1" {
		t.Fatalf("rename onto existing key: %+v", p.Fields)
	}
}

func TestChartPointValueCoercion(t *testing.T) {
	p := NewChartPoint("a", 3, "b", "4.5", "c", "abc", "d", true)
	if p.Value("a") != 3 || p.Value("b") != 4.5 || p.Value("c") != 0 || p.Value("d") != 0 || p.Value("zz") != 0 {
		t.Fatalf("unexpected coercion: a=%v b=%v c=%v d=%v", p.Value("a"), p.Value("b"), p.Value("c"), p.Value("d"))
	}
}

func TestNonFiniteValuesReadAsZero(t *testing.T) {
	p := NewChartPoint("a", "NaN", "b", math.Inf(1), "c", "-Inf")
	if p.Value("a") != 0 || p.Value("b") != 0 || p.Value("c") != 0 {
		t.Fatalf("non-finite values leaked: a=%v b=%v c=%v", p.Value("a"), p.Value("b"), p.Value("c"))
	}
	if FloorSize(math.Inf(1)) != MinSize || FloorSize(math.NaN()) != MinSize {
		t.Fatalf("FloorSize must map non-finite sizes to MinSize")
	}
	if Finite(math.NaN()) || Finite(math.Inf(-1)) || !Finite(0) {
		t.Fatalf("Finite misclassifies")
	}
}

func TestEmbedURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc123", "https://www.youtube.com/embed/abc123?autoplay=0&mute=0&loop=0"},
		{"https://youtu.be/abc123", "https://www.youtube.com/embed/abc123?autoplay=0&mute=0&loop=0"},
		{"youtu.be/abc123?t=5", "https://www.youtube.com/embed/abc123?autoplay=0&mute=0&loop=0"},
		{"https://youtube.com/shorts/xyz", "https://www.youtube.com/embed/xyz?autoplay=0&mute=0&loop=0"},
		{"https://vimeo.com/123456", "https://player.vimeo.com/video/123456?autoplay=0&muted=0&loop=0"},
		{"https://cdn.example.com/clip.mp4", "https://cdn.example.com/clip.mp4"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := EmbedURL(c.in, false, false, false); got != c.want {
			t.Fatalf("EmbedURL(%q)=%q want %q", c.in, got, c.want)
		}
	}
	flags := EmbedURL("https://youtu.be/abc", true, true, false)
	if flags != "https://www.youtube.com/embed/abc?autoplay=1&mute=1&loop=0" {
		t.Fatalf("flags not applied: %s", flags)
	}
}

func TestEmbedURLIdempotent(t *testing.T) {
	for _, in := range []string{"https://www.youtube.com/watch?v=abc", "https://vimeo.com/42", "https://example.com/a.webm"} {
		once := EmbedURL(in, true, false, true)
		twice := EmbedURL(once, true, false, true)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
	if !IsProviderEmbed(EmbedURL("https://vimeo.com/42", false, false, false)) {
		t.Fatalf("vimeo player URL not recognised")
	}
	if IsProviderEmbed("https://example.com/a.mp4") {
		t.Fatalf("direct media reported as provider embed")
	}
}

func TestClampOpacity(t *testing.T) {
	if ClampOpacity(-1) != 0 || ClampOpacity(150) != 100 || ClampOpacity(40) != 40 {
		t.Fatalf("ClampOpacity out of range")
	}
}
