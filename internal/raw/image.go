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

package raw

import (
	"errors"
	"fmt"
)

// Number of interleaved channels per pixel: R, G, B
const Channels = 3

// Size of the file header: little-endian uint32 width, then height
const HeaderSize = 8

var ErrShape = errors.New("pixel buffer does not match image dimensions")

// A decoded raw image. Pixels are interleaved R,G,B, row-major, top row first.
// An Image is never modified after construction. Stages that derive a new
// image build a new one.
type Image struct {
	ID       int    // Sequential ID number, for log output
	FileName string // Original file name, if any, for log output

	Width  uint32
	Height uint32
	Pixels []uint8 // len(Pixels)==Width*Height*Channels
}

// Largest pixel buffer an Image can address
const maxBufferLen = int(^uint(0) >> 1)

// Returns the pixel buffer length for the given dimensions, or ErrTooLarge if it does not fit an int
func bufferLen(width, height uint32) (int, error) {
	pixels := uint64(width) * uint64(height)
	if pixels > uint64(maxBufferLen/Channels) {
		return 0, fmt.Errorf("%w: %dx%d does not fit in memory", ErrTooLarge, width, height)
	}
	return int(pixels) * Channels, nil
}

// Creates an image from given dimensions and pixel data. Data is not copied, allocated if nil
func NewImage(width, height uint32, pixels []uint8) (*Image, error) {
	size, err := bufferLen(width, height)
	if err != nil {
		return nil, err
	}
	if pixels == nil {
		pixels = make([]uint8, size)
	}
	if len(pixels) != size {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrShape, width, height, size, len(pixels))
	}
	return &Image{Width: width, Height: height, Pixels: pixels}, nil
}

func (img *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", img.Width, img.Height)
}

// Number of pixels in the image
func (img *Image) NumPixels() int {
	return int(img.Width) * int(img.Height)
}

// In reports whether (x,y) lies inside the image.
func (img *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < int(img.Width) && y < int(img.Height)
}

func (img *Image) offset(x, y int) int {
	return (y*int(img.Width) + x) * Channels
}

// Channel returns channel c of the pixel at (x,y), or 0 outside the image.
func (img *Image) Channel(x, y, c int) uint8 {
	if !img.In(x, y) || c < 0 || c >= Channels {
		return 0
	}
	return img.Pixels[img.offset(x, y)+c]
}

// RGB returns all three channels of the pixel at (x,y). Zero outside the image.
func (img *Image) RGB(x, y int) (r, g, b uint8) {
	if !img.In(x, y) {
		return 0, 0, 0
	}
	o := img.offset(x, y)
	return img.Pixels[o], img.Pixels[o+1], img.Pixels[o+2]
}

// Value returns the truncated mean (R+G+B)/3 of the pixel at (x,y).
// Taps outside the image read as 0, which darkens convolution results along
// the border. This zero padding is the only border policy.
func (img *Image) Value(x, y int) uint8 {
	if !img.In(x, y) {
		return 0
	}
	o := img.offset(x, y)
	total := uint16(img.Pixels[o]) + uint16(img.Pixels[o+1]) + uint16(img.Pixels[o+2])
	return uint8(total / 3)
}
