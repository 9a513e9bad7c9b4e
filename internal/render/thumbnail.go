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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"proposalcanvas/internal/domain"
	"proposalcanvas/internal/geometry"
)

// Logical page size used when the elements fit inside it.
const (
	PageWidth  = 800.0
	PageHeight = 1131.0
)

// ThumbnailOptions controls PNG thumbnail output.
// - Width is the output width in pixels; height follows the page aspect ratio.
// - Labels draws the element kind in the top-left corner of each box.
type ThumbnailOptions struct {
	Width  int
	Labels bool
}

var kindFill = map[domain.ElementType]color.RGBA{
	domain.TypeText:    {R: 243, G: 244, B: 246, A: 255},
	domain.TypeHeading: {R: 229, G: 231, B: 235, A: 255},
	domain.TypeImage:   {R: 219, G: 234, B: 254, A: 255},
	domain.TypeTable:   {R: 220, G: 252, B: 231, A: 255},
	domain.TypeChart:   {R: 255, G: 237, B: 213, A: 255},
	domain.TypeVideo:   {R: 237, G: 233, B: 254, A: 255},
	domain.TypeEmbed:   {R: 252, G: 231, B: 243, A: 255},
	domain.TypeShape:   {R: 254, G: 249, B: 195, A: 255},
}

// Thumbnail draws a miniature of the page as PNG: one filled, outlined box per
// element in paint order.
func Thumbnail(w io.Writer, els []domain.Element, opt ThumbnailOptions) error {
	if opt.Width <= 0 {
		opt.Width = 200
	}
	pageW, pageH := PageWidth, PageHeight
	for _, el := range els {
		pageW = math.Max(pageW, el.Position.X+el.Width)
		pageH = math.Max(pageH, el.Position.Y+el.Height)
	}
	scale := float64(opt.Width) / pageW
	pixW := opt.Width
	pixH := int(math.Max(1, math.Round(pageH*scale)))

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	// Background white
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	outline := color.RGBA{R: 156, G: 163, B: 175, A: 255}
	selected := color.RGBA{R: 249, G: 115, B: 22, A: 255}
	for _, el := range geometry.PaintOrder(els) {
		x := int(math.Round(el.Position.X * scale))
		y := int(math.Round(el.Position.Y * scale))
		bw := int(math.Max(1, math.Round(el.Width*scale)))
		bh := int(math.Max(1, math.Round(el.Height*scale)))
		fill, ok := kindFill[el.Type]
		if !ok {
			fill = color.RGBA{R: 243, G: 244, B: 246, A: 255}
		}
		fillRect(img, x, y, x+bw-1, y+bh-1, fill)
		col := outline
		if el.Type == domain.TypeShape {
			col = selected
		}
		strokeRect(img, x, y, x+bw-1, y+bh-1, col)
		if opt.Labels && bh >= 14 && bw >= 20 {
			drawLabel(img, x+2, y+11, string(el.Type))
		}
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func drawLabel(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 55, G: 65, B: 81, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
// Pixels outside the image are ignored by SetRGBA.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	r := image.Rect(x0, y0, x1+1, y1+1).Intersect(img.Bounds())
	draw.Draw(img, r, &image.Uniform{C: col}, image.Point{}, draw.Src)
}
