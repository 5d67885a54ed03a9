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

// Package gradient computes Sobel gradients, their L1 magnitude and the
// quantized gradient direction for raw images.
package gradient

import (
	"fmt"
	"math"

	"github.com/mlnoga/rawedge/internal/kernel"
	"github.com/mlnoga/rawedge/internal/raw"
)

// Quantized gradient direction. The value is the direction code written to edge maps.
type Direction uint8

const (
	Horizontal Direction = 0x00
	DiagonalNE Direction = 0x40
	Vertical   Direction = 0x80
	DiagonalNW Direction = 0xC0
)

func (d Direction) String() string {
	switch d {
	case Horizontal:
		return "horizontal"
	case DiagonalNE:
		return "diagonalNE"
	case Vertical:
		return "vertical"
	case DiagonalNW:
		return "diagonalNW"
	}
	return fmt.Sprintf("Direction(%#02x)", uint8(d))
}

const radToDeg = 180 / math.Pi

// Quantize maps atan2(gy, gx) into one of four buckets. Negative angles are
// folded to 180-|angle|, so opposite orientations share a bucket.
// An angle outside [0,180] after folding is an invariant violation and panics.
func Quantize(gx, gy int) Direction {
	deg := math.Atan2(float64(gy), float64(gx)) * radToDeg
	if deg < 0 {
		deg = 180 - math.Abs(deg)
	}
	switch {
	case deg >= 0 && deg < 22.5:
		return Horizontal
	case deg >= 22.5 && deg < 67.5:
		return DiagonalNE
	case deg >= 67.5 && deg < 112.5:
		return Vertical
	case deg >= 112.5 && deg < 157.5:
		return DiagonalNW
	case deg >= 157.5 && deg <= 180:
		return Horizontal
	}
	panic(fmt.Sprintf("InvalidDirectionAngle: %v degrees for gx=%d gy=%d", deg, gx, gy))
}

// A gradient sample for one pixel
type Sample struct {
	Gx, Gy    int
	Magnitude uint8
	Direction Direction
}

// Builds the sample for the given Sobel responses. Magnitude is (|gx|+|gy|)/2
func NewSample(gx, gy int) Sample {
	return Sample{
		Gx:        gx,
		Gy:        gy,
		Magnitude: uint8((abs(gx) + abs(gy)) / 2),
		Direction: Quantize(gx, gy),
	}
}

// Computes the gradient at (x,y). Coordinates outside the image are allowed,
// the sampler reads zero there.
func At(img *raw.Image, x, y int) Sample {
	return NewSample(kernel.SobelX.Convolve(img, x, y), kernel.SobelY.Convolve(img, x, y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
