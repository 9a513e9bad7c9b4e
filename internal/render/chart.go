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
	"math"
	"strings"

	"golang.org/x/net/html"

	"proposalcanvas/internal/domain"
)

// Chart colours. Pie slices cycle through ChartPalette.
const (
	chartStroke = "#f97316"
	chartFill   = "#fdba74"
	chartGrid   = "#e5e7eb"
)

var ChartPalette = []string{"#f97316", "#fb923c", "#fdba74", "#fed7aa", "#ffedd5"}

// chart viewBox and plot area
const (
	chartW     = 400.0
	chartH     = 240.0
	plotLeft   = 40.0
	plotRight  = 390.0
	plotTop    = 28.0
	plotBottom = 210.0
)

type chartDatum struct {
	name  string
	value float64
}

func writeChart(b *strings.Builder, c *domain.ChartContent) {
	if len(c.Data) == 0 {
		writePlaceholder(b, PlaceholderChart)
		return
	}
	nameKey, valueKey := c.NameKey, c.ValueKey
	if nameKey == "" {
		nameKey = "name"
	}
	if valueKey == "" {
		valueKey = "value"
	}
	data := make([]chartDatum, len(c.Data))
	clipped := 0
	for i, p := range c.Data {
		v := p.Value(valueKey)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		if v < 0 {
			clipped++
		}
		data[i] = chartDatum{name: p.Name(nameKey), value: v}
	}

	kind := c.ChartType
	if !kind.Valid() {
		kind = domain.ChartBar
	}

	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(b, format, args...)
	}

	wf(`<svg class="pc-chart pc-chart-%s" xmlns="http://www.w3.org/2000/svg" width="100%%" height="100%%" viewBox="0 0 %g %g"`, kind, chartW, chartH)
	if clipped > 0 {
		wf(` data-clipped="%d"`, clipped)
	}
	wf(`>`)
	if c.Title != "" {
		wf(`<text x="%g" y="16" text-anchor="middle" font-size="13" font-weight="bold">%s</text>`, chartW/2, html.EscapeString(c.Title))
	}
	switch kind {
	case domain.ChartPie:
		writePie(wf, data)
	default:
		writeAxes(wf, data)
		switch kind {
		case domain.ChartLine:
			writeLine(wf, data, false)
		case domain.ChartArea:
			writeLine(wf, data, true)
		default:
			writeBars(wf, data)
		}
	}
	wf(`</svg>`)
}

func chartMax(data []chartDatum) float64 {
	maxV := 0.0
	for _, d := range data {
		if d.value > maxV {
			maxV = d.value
		}
	}
	if maxV == 0 {
		return 1
	}
	return maxV
}

// slot returns the horizontal centre and width of the i-th category.
func slot(i, n int) (float64, float64) {
	w := (plotRight - plotLeft) / float64(n)
	return plotLeft + w*float64(i) + w/2, w
}

// yFor maps v onto the plot; the axis starts at zero and negative values sit on it.
func yFor(v, maxV float64) float64 {
	if v < 0 {
		v = 0
	}
	return plotBottom - (plotBottom-plotTop)*v/maxV
}

func writeAxes(wf func(string, ...any), data []chartDatum) {
	maxV := chartMax(data)
	for i := 0; i <= 4; i++ {
		y := plotTop + (plotBottom-plotTop)*float64(i)/4
		wf(`<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-dasharray="3 3"/>`, plotLeft, y, plotRight, y, chartGrid)
		wf(`<text x="%g" y="%g" text-anchor="end" font-size="10">%s</text>`, plotLeft-4, y+3, num(roundTick(maxV*float64(4-i)/4)))
	}
	for i, d := range data {
		x, _ := slot(i, len(data))
		wf(`<text x="%g" y="%g" text-anchor="middle" font-size="10">%s</text>`, x, plotBottom+14, html.EscapeString(d.name))
	}
}

func writeBars(wf func(string, ...any), data []chartDatum) {
	maxV := chartMax(data)
	for i, d := range data {
		x, w := slot(i, len(data))
		bw := w * 0.6
		y := yFor(d.value, maxV)
		wf(`<rect x="%g" y="%g" width="%g" height="%g" fill="%s"><title>%s: %s</title></rect>`,
			x-bw/2, y, bw, plotBottom-y, chartStroke, html.EscapeString(d.name), num(d.value))
	}
}

func writeLine(wf func(string, ...any), data []chartDatum, filled bool) {
	maxV := chartMax(data)
	pts := make([]string, len(data))
	for i, d := range data {
		x, _ := slot(i, len(data))
		pts[i] = fmt.Sprintf("%g,%g", x, yFor(d.value, maxV))
	}
	if filled {
		first, _ := slot(0, len(data))
		last, _ := slot(len(data)-1, len(data))
		wf(`<polygon points="%g,%g %s %g,%g" fill="%s" stroke="none"/>`, first, plotBottom, strings.Join(pts, " "), last, plotBottom, chartFill)
	}
	wf(`<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`, strings.Join(pts, " "), chartStroke)
	if !filled {
		for i, d := range data {
			x, _ := slot(i, len(data))
			wf(`<circle cx="%g" cy="%g" r="3" fill="%s"/>`, x, yFor(d.value, maxV), chartStroke)
		}
	}
}

func writePie(wf func(string, ...any), data []chartDatum) {
	cx, cy, r := chartW/2, (chartH+plotTop)/2, (plotBottom-plotTop)/2
	total := 0.0
	for _, d := range data {
		if d.value > 0 {
			total += d.value
		}
	}
	if total <= 0 {
		wf(`<circle cx="%g" cy="%g" r="%g" fill="none" stroke="%s"/>`, cx, cy, r, chartGrid)
		return
	}
	angle := -math.Pi / 2
	for i, d := range data {
		if d.value <= 0 {
			continue
		}
		col := ChartPalette[i%len(ChartPalette)]
		frac := d.value / total
		label := html.EscapeString(d.name)
		if frac >= 0.9999 {
			wf(`<circle cx="%g" cy="%g" r="%g" fill="%s"><title>%s: %s</title></circle>`, cx, cy, r, col, label, num(d.value))
			break
		}
		end := angle + frac*2*math.Pi
		large := 0
		if frac > 0.5 {
			large = 1
		}
		x0, y0 := cx+r*math.Cos(angle), cy+r*math.Sin(angle)
		x1, y1 := cx+r*math.Cos(end), cy+r*math.Sin(end)
		wf(`<path d="M%g,%g L%.2f,%.2f A%g,%g 0 %d 1 %.2f,%.2f Z" fill="%s"><title>%s: %s</title></path>`,
			cx, cy, x0, y0, r, r, large, x1, y1, col, label, num(d.value))
		angle = end
	}
}

func roundTick(v float64) float64 {
	return math.Round(v*100) / 100
}
