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
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"
)

// Converts the raw image into a Golang image for preview output
func (img *Image) ToNRGBA() *image.NRGBA {
	width, height := int(img.Width), int(img.Height)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b := img.RGB(x, y)
			out.SetNRGBA(x, y, color.NRGBA{r, g, b, 255})
		}
	}
	return out
}

// Write a raw image to JPG with the given quality
func (img *Image) WriteJPG(writer io.Writer, quality int) error {
	return jpeg.Encode(writer, img.ToNRGBA(), &jpeg.Options{Quality: quality})
}

// Write a raw image to PNG
func (img *Image) WritePNG(writer io.Writer) error {
	return png.Encode(writer, img.ToNRGBA())
}

// Write a raw image to deflate-compressed TIFF
func (img *Image) WriteTIFF(writer io.Writer) error {
	return tiff.Encode(writer, img.ToNRGBA(), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Returns true if the file name has a suffix WritePreviewFile understands
func IsPreviewFile(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}

// Writes a preview of the image, choosing PNG, JPEG or TIFF output based on the file suffix
func (img *Image) WritePreviewFile(fileName string, quality int) error {
	if !IsPreviewFile(fileName) {
		return fmt.Errorf("unknown preview suffix for %s", fileName)
	}
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		err = img.WritePNG(writer)
	case ".jpg", ".jpeg":
		err = img.WriteJPG(writer, quality)
	default:
		err = img.WriteTIFF(writer)
	}
	if err != nil {
		return err
	}
	return writer.Flush()
}

// Renders an edge map, whose pixels are (magnitude, direction code, magnitude),
// with the hue given by the direction code and the brightness by the magnitude.
// Pixels with a zero direction code and zero magnitude stay black.
func DirectionPreview(edges *Image) *Image {
	out, _ := NewImage(edges.Width, edges.Height, nil)
	out.ID, out.FileName = edges.ID, edges.FileName
	for i := 0; i < len(edges.Pixels); i += Channels {
		mag, code := edges.Pixels[i], edges.Pixels[i+1]
		hue := float64(code) / 256 * 360
		value := float64(mag) / 255
		if mag == 0 && code != 0 {
			value = 0.5 // promoted weak edges carry no magnitude
		}
		r, g, b := colorful.Hsv(hue, 1, value).RGB255()
		out.Pixels[i], out.Pixels[i+1], out.Pixels[i+2] = r, g, b
	}
	return out
}
