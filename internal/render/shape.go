/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"proposalcanvas/internal/domain"
)

// dashArray maps a border style to an SVG stroke-dasharray; "" means solid.
func dashArray(s domain.BorderStyle, width float64) string {
	w := width
	if w < 1 {
		w = 1
	}
	switch s {
	case domain.BorderDashed:
		return fmt.Sprintf("%g,%g", 5*w/2, 5*w/2)
	case domain.BorderDotted:
		return fmt.Sprintf("%g,%g", w, w)
	default:
		return ""
	}
}

func writeShape(b *strings.Builder, c *domain.ShapeContent) {
	stroke := cssValue(c.Color, "#000000")
	fill := cssValue(c.BackgroundColor, "transparent")
	width := c.BorderWidth
	if width < 0 {
		width = 0
	}
	opacity := float64(domain.ClampOpacity(c.Opacity)) / 100
	style := c.BorderStyle
	if !style.Valid() {
		style = domain.BorderSolid
	}
	dash := ""
	if d := dashArray(style, width); d != "" {
		dash = fmt.Sprintf(` stroke-dasharray="%s"`, d)
	}
	common := fmt.Sprintf(`stroke="%s" stroke-width="%g"%s`, attr(stroke), width, dash)

	shape := c.ShapeType
	if !shape.Valid() {
		shape = domain.ShapeDivider
	}
	fmt.Fprintf(b, `<svg class="pc-shape pc-shape-%s" xmlns="http://www.w3.org/2000/svg" width="100%%" height="100%%" opacity="%g" style="overflow: visible">`, shape, opacity)
	switch shape {
	case domain.ShapeLine, domain.ShapeDivider:
		fmt.Fprintf(b, `<line x1="0" y1="50%%" x2="100%%" y2="50%%" %s/>`, common)
		if style == domain.BorderDouble {
			off := width + 1
			fmt.Fprintf(b, `<line x1="0" y1="50%%" x2="100%%" y2="50%%" transform="translate(0 %g)" %s/>`, off, common)
		}
	case domain.ShapeRectangle:
		fmt.Fprintf(b, `<rect x="0" y="0" width="100%%" height="100%%" fill="%s" %s/>`, attr(fill), common)
		if style == domain.BorderDouble {
			fmt.Fprintf(b, `<rect x="0" y="0" width="100%%" height="100%%" fill="none" transform="scale(0.9)" transform-origin="50%% 50%%" %s/>`, common)
		}
	case domain.ShapeCircle:
		fmt.Fprintf(b, `<ellipse cx="50%%" cy="50%%" rx="45%%" ry="45%%" fill="%s" %s/>`, attr(fill), common)
	case domain.ShapeArrow:
		fmt.Fprintf(b, `<line x1="10%%" y1="50%%" x2="90%%" y2="50%%" %s/>`, common)
		fmt.Fprintf(b, `<svg x="90%%" y="50%%" overflow="visible"><polygon points="-10,-10 0,0 -10,10" fill="%s"/></svg>`, attr(stroke))
	}
	b.WriteString(`</svg>`)
}

func attr(s string) string { return html.EscapeString(s) }
