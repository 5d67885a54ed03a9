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
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/valyala/fastrand"
)

// Returns a random image of the given size
func randomImage(width, height uint32) *Image {
	rng := fastrand.RNG{}
	img, _ := NewImage(width, height, nil)
	for i := range img.Pixels {
		img.Pixels[i] = uint8(rng.Uint32n(256))
	}
	return img
}

func TestNewImageShape(t *testing.T) {
	if _, err := NewImage(2, 2, make([]uint8, 11)); !errors.Is(err, ErrShape) {
		t.Errorf("got %v; want ErrShape", err)
	}
	img, err := NewImage(3, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Pixels) != 18 {
		t.Errorf("len(Pixels)=%d; want 18", len(img.Pixels))
	}
	if _, err := NewImage(0xffffffff, 0xffffffff, nil); !errors.Is(err, ErrTooLarge) {
		t.Errorf("4294967295x4294967295: got %v; want ErrTooLarge", err)
	}
}

func TestSamplerOutOfRange(t *testing.T) {
	img := randomImage(4, 3)
	for i := range img.Pixels {
		img.Pixels[i] |= 1 // no zero bytes, so zeros below can only come from padding
	}
	coords := [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 3}, {-5, -5}, {100, 1}, {2, 1 << 20}}
	for _, c := range coords {
		x, y := c[0], c[1]
		if img.In(x, y) {
			t.Errorf("In(%d,%d)=true; want false", x, y)
		}
		for ch := 0; ch < Channels; ch++ {
			if v := img.Channel(x, y, ch); v != 0 {
				t.Errorf("Channel(%d,%d,%d)=%d; want 0", x, y, ch, v)
			}
		}
		if r, g, b := img.RGB(x, y); r != 0 || g != 0 || b != 0 {
			t.Errorf("RGB(%d,%d)=(%d,%d,%d); want zeros", x, y, r, g, b)
		}
		if v := img.Value(x, y); v != 0 {
			t.Errorf("Value(%d,%d)=%d; want 0", x, y, v)
		}
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if img.Value(x, y) == 0 {
				t.Errorf("Value(%d,%d)=0 inside image", x, y)
			}
		}
	}
}

func TestValueTruncates(t *testing.T) {
	img, _ := NewImage(3, 1, []uint8{
		1, 1, 0, // 2/3 -> 0
		255, 255, 254, // 764/3 -> 254
		10, 20, 31, // 61/3 -> 20
	})
	want := []uint8{0, 254, 20}
	for x, w := range want {
		if got := img.Value(x, 0); got != w {
			t.Errorf("Value(%d,0)=%d; want %d", x, got, w)
		}
	}
	if got := img.Channel(2, 0, 1); got != 20 {
		t.Errorf("Channel(2,0,1)=%d; want 20", got)
	}
}

func TestRoundTrip(t *testing.T) {
	sizes := [][2]uint32{{1, 1}, {4, 4}, {7, 3}, {300, 2}, {0, 0}}
	for _, s := range sizes {
		img := randomImage(s[0], s[1])
		var buf bytes.Buffer
		if err := img.Encode(&buf); err != nil {
			t.Fatal(err)
		}
		encoded := append([]byte(nil), buf.Bytes()...)
		if len(encoded) != HeaderSize+len(img.Pixels) {
			t.Errorf("%dx%d: encoded %d bytes; want %d", s[0], s[1], len(encoded), HeaderSize+len(img.Pixels))
		}

		dec, err := Decode(&buf)
		if err != nil {
			t.Fatalf("%dx%d: %v", s[0], s[1], err)
		}
		if dec.Width != img.Width || dec.Height != img.Height || !bytes.Equal(dec.Pixels, img.Pixels) {
			t.Errorf("%dx%d: decoded image differs", s[0], s[1])
		}

		var again bytes.Buffer
		if err := dec.Encode(&again); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(again.Bytes(), encoded) {
			t.Errorf("%dx%d: re-encoded bytes differ", s[0], s[1])
		}
	}
}

func TestHeaderLayout(t *testing.T) {
	img, _ := NewImage(0x0102, 1, nil)
	var buf bytes.Buffer
	if err := img.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x02, 0x01, 0, 0, 1, 0, 0, 0}
	if !bytes.Equal(buf.Bytes()[:HeaderSize], want) {
		t.Errorf("header=% x; want % x", buf.Bytes()[:HeaderSize], want)
	}
}

func TestEncodeProducerOrder(t *testing.T) {
	var buf bytes.Buffer
	var calls [][2]int
	err := Encode(&buf, 3, 2, func(x, y int) (uint8, uint8, uint8) {
		calls = append(calls, [2]int{x, y})
		return uint8(x), uint8(y), uint8(10*y + x)
	})
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}}
	if len(calls) != len(want) {
		t.Fatalf("%d producer calls; want %d", len(calls), len(want))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d at %v; want %v", i, calls[i], want[i])
		}
	}
	pixels := buf.Bytes()[HeaderSize:]
	if pixels[3*4] != 1 || pixels[3*4+1] != 1 || pixels[3*4+2] != 11 {
		t.Errorf("pixel (1,1)=% x; want 01 01 0b", pixels[12:15])
	}
}

func TestDecodeTruncated(t *testing.T) {
	img := randomImage(5, 4)
	var buf bytes.Buffer
	if err := img.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	full := buf.Bytes()
	for _, n := range []int{0, 3, HeaderSize, HeaderSize + 1, len(full) - 1} {
		_, err := Decode(bytes.NewReader(full[:n]))
		if !errors.Is(err, ErrTruncatedInput) {
			t.Errorf("%d of %d bytes: got %v; want ErrTruncatedInput", n, len(full), err)
		}
	}
	if _, err := Decode(bytes.NewReader(append(full, 0xff))); err != nil {
		t.Errorf("trailing byte: %v", err)
	}
}

func TestDecodeTooLarge(t *testing.T) {
	header := []byte{0xff, 0xff, 0, 0, 0xff, 0xff, 0, 0}
	d := Decoder{MaxPixels: 1 << 20}
	if _, err := d.Decode(bytes.NewReader(header)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v; want ErrTooLarge", err)
	}
}

func TestDecodeHugeHeaderUnlimited(t *testing.T) {
	overflow := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 1, 2, 3}
	if _, err := Decode(bytes.NewReader(overflow)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("4294967295x4294967295: got %v; want ErrTooLarge", err)
	}

	// 20000x20000 declares 1.2 GB of pixel data, the stream holds three bytes
	short := []byte{0x20, 0x4e, 0, 0, 0x20, 0x4e, 0, 0, 1, 2, 3}
	if _, err := Decode(bytes.NewReader(short)); !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("20000x20000 with 3 bytes: got %v; want ErrTruncatedInput", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "img.raw")
	img := randomImage(9, 5)
	if err := img.WriteFile(fileName); err != nil {
		t.Fatal(err)
	}
	dec, err := DecodeFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if dec.FileName != fileName {
		t.Errorf("FileName=%s; want %s", dec.FileName, fileName)
	}
	if !bytes.Equal(dec.Pixels, img.Pixels) {
		t.Error("pixels differ after file round trip")
	}

	if _, err := DecodeFile(filepath.Join(dir, "missing.raw")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v; want ErrNotExist", err)
	}
	if err := img.WriteFile(filepath.Join(dir, "no", "such", "dir.raw")); err == nil {
		t.Error("writing into a missing directory succeeded")
	}
}

func TestFromImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 13, 22))
	src.Set(10, 20, color.RGBA{1, 2, 3, 255})
	src.Set(12, 21, color.RGBA{200, 100, 50, 255})

	img := FromImage(src)
	if img.Width != 3 || img.Height != 2 {
		t.Fatalf("size %s; want 3x2", img.DimensionsToString())
	}
	if r, g, b := img.RGB(0, 0); r != 1 || g != 2 || b != 3 {
		t.Errorf("RGB(0,0)=(%d,%d,%d); want (1,2,3)", r, g, b)
	}
	if r, g, b := img.RGB(2, 1); r != 200 || g != 100 || b != 50 {
		t.Errorf("RGB(2,1)=(%d,%d,%d); want (200,100,50)", r, g, b)
	}

	back := FromImage(img.ToNRGBA())
	if !bytes.Equal(back.Pixels, img.Pixels) {
		t.Error("ToNRGBA/FromImage round trip changed pixels")
	}
}

func TestPreviewFiles(t *testing.T) {
	dir := t.TempDir()
	img := randomImage(8, 6)
	for _, name := range []string{"p.png", "p.jpg", "p.tif"} {
		fileName := filepath.Join(dir, name)
		if err := img.WritePreviewFile(fileName, 95); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		imported, err := Import(fileName, 0, 0, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if imported.Width != 8 || imported.Height != 6 {
			t.Errorf("%s: size %s; want 8x6", name, imported.DimensionsToString())
		}
		if name != "p.jpg" && !bytes.Equal(imported.Pixels, img.Pixels) {
			t.Errorf("%s: lossless preview changed pixels", name)
		}
	}
	if err := img.WritePreviewFile(filepath.Join(dir, "p.raw"), 95); err == nil {
		t.Error("raw suffix accepted as preview")
	}

	resized, err := Import(filepath.Join(dir, "p.png"), 4, 3, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if resized.Width != 4 || resized.Height != 3 {
		t.Errorf("resized to %s; want 4x3", resized.DimensionsToString())
	}
}

func TestDirectionPreview(t *testing.T) {
	edges, _ := NewImage(4, 1, []uint8{
		0, 0x00, 0,
		200, 0x00, 200,
		200, 0x80, 200,
		0, 0x40, 0,
	})
	p := DirectionPreview(edges)
	if r, g, b := p.RGB(0, 0); r != 0 || g != 0 || b != 0 {
		t.Errorf("non-edge rendered as (%d,%d,%d); want black", r, g, b)
	}
	if r, g, b := p.RGB(1, 0); r != 200 || g != 0 || b != 0 {
		t.Errorf("horizontal edge rendered as (%d,%d,%d); want (200,0,0)", r, g, b)
	}
	if r, g, b := p.RGB(2, 0); r != 0 || g != 200 || b != 200 {
		t.Errorf("vertical edge rendered as (%d,%d,%d); want (0,200,200)", r, g, b)
	}
	if r, g, b := p.RGB(3, 0); r == 0 && g == 0 && b == 0 {
		t.Error("promoted weak edge rendered black")
	}
}
