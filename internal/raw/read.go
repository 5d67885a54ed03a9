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
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrTruncatedInput = errors.New("truncated input")
var ErrTooLarge = errors.New("image too large")

const bufLen int = 16 * 1024 // input buffer length for reading from file

// Decodes raw images. MaxPixels limits the pixel count a header may declare, 0 means no limit.
type Decoder struct {
	MaxPixels int64
}

// Decodes a raw image from r without a size limit
func Decode(r io.Reader) (*Image, error) {
	return (&Decoder{}).Decode(r)
}

// Decodes a raw image from the file with the given name without a size limit
func DecodeFile(fileName string) (*Image, error) {
	return (&Decoder{}).DecodeFile(fileName)
}

// Reads a raw image from the file with the given name
func (d *Decoder) DecodeFile(fileName string) (*Image, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fileName, err)
	}
	defer f.Close()

	img, err := d.Decode(bufio.NewReaderSize(f, bufLen))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileName, err)
	}
	img.FileName = fileName
	return img, nil
}

// Reads the 8 byte header followed by exactly width*height*3 bytes of pixel data.
// A stream ending early fails with ErrTruncatedInput. Trailing bytes are ignored.
func (d *Decoder) Decode(r io.Reader) (*Image, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, truncated(err, "header", 0, HeaderSize)
	}
	width := binary.LittleEndian.Uint32(header[0:4])
	height := binary.LittleEndian.Uint32(header[4:8])

	count := int64(width) * int64(height)
	if d.MaxPixels > 0 && count > d.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds limit of %d pixels", ErrTooLarge, width, height, d.MaxPixels)
	}

	size, err := bufferLen(width, height)
	if err != nil {
		return nil, err
	}
	pixels, err := readPixels(r, size)
	if err != nil {
		return nil, err
	}
	return NewImage(width, height, pixels)
}

// Pixel data is read in chunks of this size, so a header declaring more data than the
// stream holds fails before the full buffer is allocated
const readChunk = 1 << 20

// Reads exactly size bytes, growing the buffer as data arrives
func readPixels(r io.Reader, size int) ([]uint8, error) {
	initial := size
	if initial > readChunk {
		initial = readChunk
	}
	pixels := make([]uint8, 0, initial)
	for len(pixels) < size {
		start, n := len(pixels), size-len(pixels)
		if n > readChunk {
			n = readChunk
		}
		pixels = append(pixels, make([]uint8, n)...)
		if got, err := io.ReadFull(r, pixels[start:]); err != nil {
			return nil, truncated(err, "pixel data", start+got, size)
		}
	}
	return pixels, nil
}

// Maps short reads onto ErrTruncatedInput, passes other errors through
func truncated(err error, what string, got, want int) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s has %d of %d bytes", ErrTruncatedInput, what, got, want)
	}
	return err
}
