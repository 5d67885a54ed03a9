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

// Package edge provides the two pipeline stages, blur and Sobel edge
// detection with hysteresis, both in memory and as raw file exports.
package edge

import (
	nl "github.com/mlnoga/rawedge/internal"
	"github.com/mlnoga/rawedge/internal/gradient"
	"github.com/mlnoga/rawedge/internal/hysteresis"
	"github.com/mlnoga/rawedge/internal/kernel"
	"github.com/mlnoga/rawedge/internal/raw"
)

// Producer writing the blurred luminance into all three channels
func blurProducer(img *raw.Image, k *kernel.Kernel) raw.Producer {
	return func(x, y int) (uint8, uint8, uint8) {
		v := uint8(k.Convolve(img, x, y))
		return v, v, v
	}
}

// Producer writing (magnitude, direction code, magnitude) per pixel
func sobelProducer(f *gradient.Field, lower, upper uint8) raw.Producer {
	return func(x, y int) (uint8, uint8, uint8) {
		return hysteresis.Classify(f, x, y, lower, upper).Triplet()
	}
}

// Evaluates the producer for every pixel into a new image, rows in parallel
func render(img *raw.Image, threads int, p raw.Producer) *raw.Image {
	out, _ := raw.NewImage(img.Width, img.Height, nil)
	out.ID, out.FileName = img.ID, img.FileName
	width := int(img.Width)
	nl.ForEachRows(int(img.Height), threads, func(from, to int) {
		for y := from; y < to; y++ {
			o := y * width * raw.Channels
			for x := 0; x < width; x++ {
				out.Pixels[o], out.Pixels[o+1], out.Pixels[o+2] = p(x, y)
				o += raw.Channels
			}
		}
	})
	return out
}

// Blurs the luminance of img with kernel k. The result replicates the blurred value into R, G and B.
func Blur(img *raw.Image, k *kernel.Kernel, threads int) *raw.Image {
	return render(img, threads, blurProducer(img, k))
}

// Blurs img with kernel k and writes the result to a raw file
func ExportBlur(img *raw.Image, k *kernel.Kernel, fileName string, threads int) error {
	if threads <= 1 {
		return raw.EncodeFile(fileName, img.Width, img.Height, blurProducer(img, k))
	}
	return Blur(img, k, threads).WriteFile(fileName)
}

// Detects edges with the Sobel operator and hysteresis thresholds. The result holds
// (magnitude, direction code, magnitude) per pixel.
func Sobel(img *raw.Image, lower, upper uint8, threads int) *raw.Image {
	f := gradient.NewField(img, threads)
	defer f.Release()
	return render(img, threads, sobelProducer(f, lower, upper))
}

// Detects edges as in Sobel and writes the edge map to a raw file
func ExportSobel(img *raw.Image, fileName string, lower, upper uint8, threads int) error {
	if threads <= 1 {
		f := gradient.NewField(img, 1)
		defer f.Release()
		return raw.EncodeFile(fileName, img.Width, img.Height, sobelProducer(f, lower, upper))
	}
	return Sobel(img, lower, upper, threads).WriteFile(fileName)
}
