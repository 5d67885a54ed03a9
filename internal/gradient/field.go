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

package gradient

import (
	"fmt"

	nl "github.com/mlnoga/rawedge/internal"
	"github.com/mlnoga/rawedge/internal/raw"
)

// Width of the border around the image for which samples are precomputed.
// The classifier inspects the 8-neighborhood of border pixels, so one pixel suffices.
const Halo = 1

// Precomputed gradient samples for every coordinate of an image plus its halo
type Field struct {
	Width, Height int // image dimensions, without halo
	stride        int
	samples       []Sample
}

// Computes the gradient field for img, using up to threads goroutines
func NewField(img *raw.Image, threads int) *Field {
	width, height := int(img.Width), int(img.Height)
	f := &Field{
		Width:   width,
		Height:  height,
		stride:  width + 2*Halo,
		samples: getSamples((width + 2*Halo) * (height + 2*Halo)),
	}
	nl.ForEachRows(height+2*Halo, threads, func(from, to int) {
		for row := from; row < to; row++ {
			y := row - Halo
			line := f.samples[row*f.stride : (row+1)*f.stride]
			for i := range line {
				line[i] = At(img, i-Halo, y)
			}
		}
	})
	return f
}

// Returns the sample at (x,y). Valid for x in [-Halo, Width+Halo) and likewise for y.
func (f *Field) At(x, y int) Sample {
	if x < -Halo || y < -Halo || x >= f.Width+Halo || y >= f.Height+Halo {
		panic(fmt.Sprintf("gradient field access at (%d,%d) outside %dx%d plus halo", x, y, f.Width, f.Height))
	}
	return f.samples[(y+Halo)*f.stride+x+Halo]
}

// Returns the sample storage to a pool for reuse by later fields of the same size.
// The field must not be used afterwards.
func (f *Field) Release() {
	if f.samples != nil {
		putSamples(f.samples)
		f.samples = nil
	}
}
