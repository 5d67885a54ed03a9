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

// Package kernel implements square integer convolution kernels over the
// zero-padded luminance of a raw image.
package kernel

import (
	"errors"
	"fmt"

	"github.com/mlnoga/rawedge/internal/raw"
)

var ErrKernelShape = errors.New("invalid kernel shape")

// A square kernel of odd size with integer weights, stored row-major, and a divisor
// applied after summation.
type Kernel struct {
	Name    string
	Size    int
	Weights []int
	Divisor int
}

// Creates a kernel from rows of weights. Rows must form an odd-sized square
func New(name string, rows [][]int, divisor int) (*Kernel, error) {
	size := len(rows)
	if size == 0 || size%2 == 0 {
		return nil, fmt.Errorf("%w: %s has even or zero size %d", ErrKernelShape, name, size)
	}
	if divisor == 0 {
		return nil, fmt.Errorf("%w: %s has zero divisor", ErrKernelShape, name)
	}
	weights := make([]int, 0, size*size)
	for j, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("%w: %s row %d has %d weights, want %d", ErrKernelShape, name, j, len(row), size)
		}
		weights = append(weights, row...)
	}
	return &Kernel{Name: name, Size: size, Weights: weights, Divisor: divisor}, nil
}

func mustNew(name string, rows [][]int, divisor int) *Kernel {
	k, err := New(name, rows, divisor)
	if err != nil {
		panic(err)
	}
	return k
}

var (
	Gaussian3x3 = mustNew("gauss3x3", [][]int{
		{1, 2, 1},
		{2, 4, 2},
		{1, 2, 1},
	}, 16)

	Gaussian5x5 = mustNew("gauss5x5", [][]int{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}, 273)

	// Sobel kernels. Both divide by 4 after summation.
	SobelX = mustNew("sobelX", [][]int{
		{1, 0, -1},
		{2, 0, -2},
		{1, 0, -1},
	}, 4)

	SobelY = mustNew("sobelY", [][]int{
		{1, 2, 1},
		{0, 0, 0},
		{-1, -2, -1},
	}, 4)
)

// Returns the Gaussian blur kernel of the given size, 3 or 5
func Gaussian(size int) (*Kernel, error) {
	switch size {
	case 3:
		return Gaussian3x3, nil
	case 5:
		return Gaussian5x5, nil
	}
	return nil, fmt.Errorf("%w: no Gaussian kernel of size %d", ErrKernelShape, size)
}

func (k *Kernel) Radius() int { return k.Size / 2 }

// Weight at offset (i,j) from the center, with i,j in [-Radius,Radius]
func (k *Kernel) At(i, j int) int {
	r := k.Radius()
	return k.Weights[(j+r)*k.Size+i+r]
}

// Convolve sums weight*Value over the kernel window centered on (x,y) and
// divides by the divisor, truncating toward zero. Taps outside the image
// contribute 0.
func (k *Kernel) Convolve(img *raw.Image, x, y int) int {
	r := k.Radius()
	total, w := 0, 0
	for j := -r; j <= r; j++ {
		for i := -r; i <= r; i++ {
			total += k.Weights[w] * int(img.Value(x+i, y+j))
			w++
		}
	}
	return total / k.Divisor
}
