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
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Supplies the three output bytes for the pixel at (x,y)
type Producer func(x, y int) (c0, c1, c2 uint8)

// Writes the 8 byte header, then calls producer once per pixel in row-major order
// and writes the returned triplet.
func Encode(w io.Writer, width, height uint32, producer Producer) error {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], width)
	binary.LittleEndian.PutUint32(header[4:8], height)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	row := make([]uint8, int(width)*Channels)
	for y := 0; y < int(height); y++ {
		for x := 0; x < int(width); x++ {
			row[x*Channels], row[x*Channels+1], row[x*Channels+2] = producer(x, y)
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Writes a raw file with the given name, see Encode
func EncodeFile(fileName string, width, height uint32, producer Producer) error {
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("creating %s: %w", fileName, err)
	}
	writer := bufio.NewWriterSize(file, bufLen)
	err = Encode(writer, width, height, producer)
	if err == nil {
		err = writer.Flush()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", fileName, err)
	}
	return nil
}

// Producer returning the image's own pixels unchanged
func (img *Image) Producer() Producer {
	return func(x, y int) (uint8, uint8, uint8) {
		return img.RGB(x, y)
	}
}

// Encodes the unmodified image
func (img *Image) Encode(w io.Writer) error {
	return Encode(w, img.Width, img.Height, img.Producer())
}

// Writes the unmodified image to a raw file
func (img *Image) WriteFile(fileName string) error {
	return EncodeFile(fileName, img.Width, img.Height, img.Producer())
}
