/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"strings"

	"proposalcanvas/internal/domain"
)

// Handle names one of the eight resize grips around a selected element.
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNE Handle = "ne"
	HandleNW Handle = "nw"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

// Handles lists the grips clockwise from the top-left corner.
var Handles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

func (h Handle) Valid() bool {
	for _, v := range Handles {
		if v == h {
			return true
		}
	}
	return false
}

// ResizeBox applies a grip drag of dx, dy logical pixels to a box. Grips on the
// north or west edge move the origin so the opposite edge stays put, also when
// the size hits the MinSize floor.
func ResizeBox(pos domain.Position, w, h float64, handle Handle, dx, dy float64) (domain.Size, domain.Position) {
	name := string(handle)
	nw, nh := w, h
	if strings.Contains(name, "e") {
		nw = domain.FloorSize(w + dx)
	}
	if strings.Contains(name, "w") {
		nw = domain.FloorSize(w - dx)
		pos.X += w - nw
	}
	if strings.Contains(name, "s") {
		nh = domain.FloorSize(h + dy)
	}
	if strings.Contains(name, "n") {
		nh = domain.FloorSize(h - dy)
		pos.Y += h - nh
	}
	return domain.Size{Width: nw, Height: nh}, pos
}
