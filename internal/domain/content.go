/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "fmt"

// Content is the kind-specific payload of an element. The set of implementations
// is closed to this package.
type Content interface {
	Kind() ElementType
	clone() Content
}

// CloneContent returns a deep copy of c.
func CloneContent(c Content) Content {
	if c == nil {
		return nil
	}
	return c.clone()
}

type TextAlign string

const (
	AlignLeft    TextAlign = "left"
	AlignCenter  TextAlign = "center"
	AlignRight   TextAlign = "right"
	AlignJustify TextAlign = "justify"
)

func (a TextAlign) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight, AlignJustify:
		return true
	}
	return false
}

// TextContent holds rich markup produced by the embedded rich-text editor. The
// markup is opaque here and must be sanitized by whoever renders it.
type TextContent struct {
	Text      string    `json:"text"`
	FontSize  float64   `json:"fontSize"`
	TextAlign TextAlign `json:"textAlign"`
	Color     string    `json:"color"`
}

func (c *TextContent) Kind() ElementType { return TypeText }
func (c *TextContent) clone() Content {
	cp := *c
	return &cp
}

type HeadingContent struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

func (c *HeadingContent) Kind() ElementType { return TypeHeading }
func (c *HeadingContent) clone() Content {
	cp := *c
	return &cp
}

// ImageContent references an image by URL or data URL. An empty Src means unset.
type ImageContent struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

func (c *ImageContent) Kind() ElementType { return TypeImage }
func (c *ImageContent) clone() Content {
	cp := *c
	return &cp
}

// TableContent is a row-major grid of strings sized Rows x Cols.
type TableContent struct {
	Rows      int        `json:"rows"`
	Cols      int        `json:"cols"`
	Data      [][]string `json:"data"`
	HasHeader bool       `json:"hasHeader"`
	Bordered  bool       `json:"bordered"`
	Striped   bool       `json:"striped"`
}

func (c *TableContent) Kind() ElementType { return TypeTable }
func (c *TableContent) clone() Content {
	cp := *c
	cp.Data = cloneGrid(c.Data)
	return &cp
}

type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
	ChartArea ChartType = "area"
)

func (t ChartType) Valid() bool {
	switch t {
	case ChartBar, ChartLine, ChartPie, ChartArea:
		return true
	}
	return false
}

// ChartContent is a series of data points. NameKey and ValueKey select which
// fields of each point are plotted; other fields are carried along untouched.
type ChartContent struct {
	ChartType ChartType    `json:"chartType"`
	Data      []ChartPoint `json:"data"`
	NameKey   string       `json:"nameKey"`
	ValueKey  string       `json:"valueKey"`
	Title     string       `json:"title"`
}

func (c *ChartContent) Kind() ElementType { return TypeChart }
func (c *ChartContent) clone() Content {
	cp := *c
	if c.Data != nil {
		cp.Data = make([]ChartPoint, len(c.Data))
		for i, p := range c.Data {
			cp.Data[i] = p.Clone()
		}
	}
	return &cp
}

// VideoContent keeps the user supplied URL and the player URL derived from it.
// EmbedURL is recomputed by Derive whenever URL or a playback flag changes.
type VideoContent struct {
	URL      string `json:"url"`
	EmbedURL string `json:"embedUrl"`
	Title    string `json:"title"`
	Autoplay bool   `json:"autoplay"`
	Muted    bool   `json:"muted"`
	Loop     bool   `json:"loop"`
}

func (c *VideoContent) Kind() ElementType { return TypeVideo }
func (c *VideoContent) clone() Content {
	cp := *c
	return &cp
}

// Derive recomputes EmbedURL from URL and the playback flags.
func (c *VideoContent) Derive() {
	c.EmbedURL = EmbedURL(c.URL, c.Autoplay, c.Muted, c.Loop)
}

type EmbedType string

const (
	EmbedIframe EmbedType = "iframe"
	EmbedCode   EmbedType = "code"
)

// EmbedContent stores raw third-party markup verbatim.
type EmbedContent struct {
	Code      string    `json:"code"`
	EmbedType EmbedType `json:"embedType"`
}

func (c *EmbedContent) Kind() ElementType { return TypeEmbed }
func (c *EmbedContent) clone() Content {
	cp := *c
	return &cp
}

type ShapeType string

const (
	ShapeLine      ShapeType = "line"
	ShapeDivider   ShapeType = "divider"
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeArrow     ShapeType = "arrow"
)

func (t ShapeType) Valid() bool {
	switch t {
	case ShapeLine, ShapeDivider, ShapeRectangle, ShapeCircle, ShapeArrow:
		return true
	}
	return false
}

type BorderStyle string

const (
	BorderSolid  BorderStyle = "solid"
	BorderDashed BorderStyle = "dashed"
	BorderDotted BorderStyle = "dotted"
	BorderDouble BorderStyle = "double"
)

func (s BorderStyle) Valid() bool {
	switch s {
	case BorderSolid, BorderDashed, BorderDotted, BorderDouble:
		return true
	}
	return false
}

type ShapeContent struct {
	ShapeType       ShapeType   `json:"shapeType"`
	Color           string      `json:"color"`
	BackgroundColor string      `json:"backgroundColor"`
	BorderWidth     float64     `json:"borderWidth"`
	BorderStyle     BorderStyle `json:"borderStyle"`
	Opacity         int         `json:"opacity"`
}

func (c *ShapeContent) Kind() ElementType { return TypeShape }
func (c *ShapeContent) clone() Content {
	cp := *c
	return &cp
}

// ClampOpacity keeps an opacity percentage within 0..100.
func ClampOpacity(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Placeholder texts used for new text-bearing elements.
const (
	DefaultTextPlaceholder    = "Enter your text here..."
	DefaultHeadingPlaceholder = "New Heading"
)

// DefaultContent returns the creation default content for kind t.
func DefaultContent(t ElementType) (Content, error) {
	switch t {
	case TypeText:
		return &TextContent{Text: DefaultTextPlaceholder, FontSize: 16, TextAlign: AlignLeft, Color: "#000000"}, nil
	case TypeHeading:
		return &HeadingContent{Text: DefaultHeadingPlaceholder, Level: 2}, nil
	case TypeImage:
		return &ImageContent{}, nil
	case TypeTable:
		return &TableContent{Rows: 3, Cols: 3, Data: ResizeGrid(nil, 3, 3), HasHeader: true, Bordered: true}, nil
	case TypeChart:
		return &ChartContent{
			ChartType: ChartBar,
			Data: []ChartPoint{
				NewChartPoint("name", "Q1", "value", 100.0),
				NewChartPoint("name", "Q2", "value", 200.0),
			},
			NameKey:  "name",
			ValueKey: "value",
		}, nil
	case TypeVideo:
		return &VideoContent{}, nil
	case TypeEmbed:
		return &EmbedContent{EmbedType: EmbedIframe}, nil
	case TypeShape:
		return &ShapeContent{
			ShapeType:       ShapeDivider,
			Color:           "#000000",
			BackgroundColor: "transparent",
			BorderWidth:     2,
			BorderStyle:     BorderSolid,
			Opacity:         100,
		}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, t)
	}
}
