/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns elements into HTML. Content interpretation lives in one
// place, Content, and both the editable canvas and the read-only viewer wrap its
// output in identical geometry boxes.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"proposalcanvas/internal/domain"
)

// Placeholder texts shown for unset or empty content.
const (
	PlaceholderImage = "No image selected"
	PlaceholderChart = "No chart data"
	PlaceholderVideo = "No video"
	PlaceholderEmbed = "No embed"
	PlaceholderEmpty = "Empty element"
)

// Content renders the inner HTML of one element. It is the only place that
// interprets content, so editor previews, the canvas and the viewer agree.
//
// Charts are plotted from zero. Negative values draw as empty bars or points on
// the axis and are left out of pies; the chart's svg then carries
// data-clipped with the number of such points.
func Content(el domain.Element) string {
	var b strings.Builder
	writeContent(&b, el)
	return b.String()
}

func writeContent(b *strings.Builder, el domain.Element) {
	switch c := el.Content.(type) {
	case *domain.TextContent:
		writeText(b, c)
	case *domain.HeadingContent:
		writeHeading(b, c)
	case *domain.ImageContent:
		writeImage(b, c)
	case *domain.TableContent:
		writeTable(b, c)
	case *domain.ChartContent:
		writeChart(b, c)
	case *domain.VideoContent:
		writeVideo(b, c)
	case *domain.EmbedContent:
		writeEmbed(b, c)
	case *domain.ShapeContent:
		writeShape(b, c)
	default:
		writePlaceholder(b, PlaceholderEmpty)
	}
}

func writeText(b *strings.Builder, c *domain.TextContent) {
	size := c.FontSize
	if size <= 0 {
		size = 16
	}
	align := c.TextAlign
	if !align.Valid() {
		align = domain.AlignLeft
	}
	fmt.Fprintf(b, `<div class="pc-text" style="font-size: %spx; text-align: %s; color: %s">`,
		num(size), align, cssValue(c.Color, "#000000"))
	b.WriteString(Sanitize(c.Text))
	b.WriteString(`</div>`)
}

func writeHeading(b *strings.Builder, c *domain.HeadingContent) {
	lvl := c.Level
	if lvl < 1 || lvl > 3 {
		lvl = 2
	}
	fmt.Fprintf(b, `<h%d class="pc-heading">%s</h%d>`, lvl, html.EscapeString(c.Text), lvl)
}

func writeImage(b *strings.Builder, c *domain.ImageContent) {
	if strings.TrimSpace(c.Src) == "" || !safeURL(c.Src, true) {
		writePlaceholder(b, PlaceholderImage)
		return
	}
	b.WriteString(`<figure class="pc-image">`)
	fmt.Fprintf(b, `<img src="%s" alt="%s">`, html.EscapeString(c.Src), html.EscapeString(c.Alt))
	if c.Caption != "" {
		fmt.Fprintf(b, `<figcaption>%s</figcaption>`, html.EscapeString(c.Caption))
	}
	b.WriteString(`</figure>`)
}

func writeTable(b *strings.Builder, c *domain.TableContent) {
	t := *c
	t.Normalize()

	cls := []string{"pc-table"}
	if t.Bordered {
		cls = append(cls, "pc-bordered")
	}
	if t.Striped {
		cls = append(cls, "pc-striped")
	}
	fmt.Fprintf(b, `<table class="%s">`, strings.Join(cls, " "))
	start := 0
	if t.HasHeader {
		b.WriteString(`<thead><tr>`)
		for col := 0; col < t.Cols; col++ {
			fmt.Fprintf(b, `<th>%s</th>`, html.EscapeString(t.Cell(0, col)))
		}
		b.WriteString(`</tr></thead>`)
		start = 1
	}
	b.WriteString(`<tbody>`)
	for r := start; r < t.Rows; r++ {
		if t.Striped && (r-start)%2 == 1 {
			b.WriteString(`<tr class="pc-stripe">`)
		} else {
			b.WriteString(`<tr>`)
		}
		for col := 0; col < t.Cols; col++ {
			fmt.Fprintf(b, `<td>%s</td>`, html.EscapeString(t.Cell(r, col)))
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
}

func writeVideo(b *strings.Builder, c *domain.VideoContent) {
	src := c.EmbedURL
	if src == "" {
		src = domain.EmbedURL(c.URL, c.Autoplay, c.Muted, c.Loop)
	}
	if src == "" || !isHTTP(src) {
		writePlaceholder(b, PlaceholderVideo)
		return
	}
	title := c.Title
	if title == "" {
		title = "Video"
	}
	if domain.IsProviderEmbed(src) {
		fmt.Fprintf(b, `<iframe class="pc-video" src="%s" title="%s" frameborder="0" allow="autoplay; encrypted-media; picture-in-picture" allowfullscreen></iframe>`,
			html.EscapeString(src), html.EscapeString(title))
		return
	}
	fmt.Fprintf(b, `<video class="pc-video" src="%s" title="%s" controls`, html.EscapeString(src), html.EscapeString(title))
	if c.Autoplay {
		b.WriteString(` autoplay`)
	}
	if c.Muted {
		b.WriteString(` muted`)
	}
	if c.Loop {
		b.WriteString(` loop`)
	}
	b.WriteString(`></video>`)
}

func writeEmbed(b *strings.Builder, c *domain.EmbedContent) {
	safe := Sanitize(strings.TrimSpace(c.Code))
	if strings.TrimSpace(safe) == "" {
		writePlaceholder(b, PlaceholderEmbed)
		return
	}
	fmt.Fprintf(b, `<div class="pc-embed pc-embed-%s">%s</div>`, embedClass(c.EmbedType), safe)
}

func embedClass(t domain.EmbedType) string {
	if t == domain.EmbedCode {
		return "code"
	}
	return "iframe"
}

func writePlaceholder(b *strings.Builder, label string) {
	fmt.Fprintf(b, `<div class="pc-placeholder">%s</div>`, html.EscapeString(label))
}

// num formats a float without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
