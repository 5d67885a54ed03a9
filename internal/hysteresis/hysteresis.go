// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package hysteresis classifies gradient samples into edges with a lower and
// an upper threshold.
package hysteresis

import (
	"github.com/mlnoga/rawedge/internal/gradient"
)

// Classification of one pixel
type Decision struct {
	Edge      bool
	Magnitude uint8 // magnitude written to the edge map
	Direction gradient.Direction
}

// Returns the (magnitude, direction code, magnitude) triplet for the edge map
func (d Decision) Triplet() (uint8, uint8, uint8) {
	return d.Magnitude, uint8(d.Direction), d.Magnitude
}

var notEdge = Decision{Edge: false, Magnitude: 0, Direction: gradient.Horizontal}

// Classify decides whether the pixel at (x,y) is an edge.
//
// Magnitudes below lower are suppressed. Magnitudes at or above upper are edges.
// In between, the pixel becomes an edge only if one of its 8 neighbors has a
// magnitude strictly above upper. Promotion looks one pixel away and no further,
// neighbors are not themselves promoted first. A promoted pixel keeps its own
// direction but is written with magnitude 0.
func Classify(f *gradient.Field, x, y int, lower, upper uint8) Decision {
	s := f.At(x, y)
	if s.Magnitude < lower {
		return notEdge
	}
	if s.Magnitude >= upper {
		return Decision{Edge: true, Magnitude: s.Magnitude, Direction: s.Direction}
	}
	for j := -1; j <= 1; j++ {
		for i := -1; i <= 1; i++ {
			if f.At(x+i, y+j).Magnitude > upper {
				return Decision{Edge: true, Magnitude: 0, Direction: s.Direction}
			}
		}
	}
	return notEdge
}
