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
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Converts any Golang image into a raw image, dropping alpha
func FromImage(src image.Image) *Image {
	nrgba := imaging.Clone(src)
	bounds := nrgba.Bounds()
	img, _ := NewImage(uint32(bounds.Dx()), uint32(bounds.Dy()), nil)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			s := nrgba.PixOffset(x, y)
			d := img.offset(x, y)
			copy(img.Pixels[d:d+Channels], nrgba.Pix[s:s+Channels])
		}
	}
	return img
}

// Reads a PNG, JPEG, GIF, TIFF or BMP file and converts it into a raw image.
// If width and height are both positive, the image is resized with a bicubic filter first.
func Import(fileName string, width, height int, logWriter io.Writer) (*Image, error) {
	src, err := imaging.Open(fileName, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", fileName, err)
	}
	bounds := src.Bounds()
	if width > 0 && height > 0 && (bounds.Dx() != width || bounds.Dy() != height) {
		fmt.Fprintf(logWriter, "Resizing %dx%d to %dx%d\n", bounds.Dx(), bounds.Dy(), width, height)
		src = imaging.Resize(src, width, height, imaging.CatmullRom)
	}
	img := FromImage(src)
	img.FileName = fileName
	return img, nil
}
