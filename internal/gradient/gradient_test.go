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
	"testing"

	"github.com/mlnoga/rawedge/internal/raw"
	"github.com/valyala/fastrand"
)

func TestQuantize(t *testing.T) {
	tcs := []struct {
		gx, gy int
		want   Direction
	}{
		{0, 0, Horizontal},
		{10, 0, Horizontal},
		{-10, 0, Horizontal},  // 180 degrees
		{10, 4, Horizontal},   // 21.8
		{10, 5, DiagonalNE},   // 26.6
		{10, 10, DiagonalNE},  // 45
		{-10, -10, DiagonalNE}, // -135 folds to 45
		{0, 10, Vertical},
		{0, -10, Vertical},    // -90 folds to 90
		{4, 10, Vertical},     // 68.2
		{-10, 10, DiagonalNW}, // 135
		{10, -10, DiagonalNW}, // -45 folds to 135
		{-10, 5, DiagonalNW},  // 153.4
		{-10, 4, Horizontal},  // 158.2
		{-10, 3, Horizontal},  // 163.3
		{-255, 1, Horizontal},
	}
	for _, tc := range tcs {
		if got := Quantize(tc.gx, tc.gy); got != tc.want {
			t.Errorf("Quantize(%d,%d)=%v; want %v", tc.gx, tc.gy, got, tc.want)
		}
	}
}

func TestDirectionCodes(t *testing.T) {
	codes := map[Direction]uint8{Horizontal: 0x00, DiagonalNE: 0x40, Vertical: 0x80, DiagonalNW: 0xC0}
	for d, code := range codes {
		if uint8(d) != code {
			t.Errorf("%v has code %#x; want %#x", d, uint8(d), code)
		}
	}
}

func TestMagnitude(t *testing.T) {
	tcs := []struct {
		gx, gy int
		want   uint8
	}{
		{0, 0, 0},
		{-255, 0, 127},
		{255, -255, 255},
		{3, -4, 3},
		{-1, 0, 0},
	}
	for _, tc := range tcs {
		if got := NewSample(tc.gx, tc.gy).Magnitude; got != tc.want {
			t.Errorf("magnitude(%d,%d)=%d; want %d", tc.gx, tc.gy, got, tc.want)
		}
	}
}

// Left half 0, right half 255
func verticalEdge(width, height int) *raw.Image {
	img, _ := raw.NewImage(uint32(width), uint32(height), nil)
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			o := (y*width + x) * 3
			img.Pixels[o], img.Pixels[o+1], img.Pixels[o+2] = 255, 255, 255
		}
	}
	return img
}

func TestVerticalEdge(t *testing.T) {
	width, height := 10, 6
	img := verticalEdge(width, height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			s := At(img, x, y)
			if x == width/2-1 || x == width/2 {
				// Gx=-255, Gy=0: atan2 gives 180 degrees, which buckets as Horizontal
				if s.Magnitude != 127 || s.Direction != Horizontal {
					t.Errorf("boundary (%d,%d) mag=%d dir=%v; want 127 horizontal", x, y, s.Magnitude, s.Direction)
				}
			} else if s.Magnitude != 0 {
				t.Errorf("(%d,%d) mag=%d; want 0", x, y, s.Magnitude)
			}
		}
	}
}

func TestHorizontalEdge(t *testing.T) {
	// Top half 0, bottom half 255: Gy=-255, -90 degrees folds to 90, bucket Vertical
	width, height := 6, 10
	img, _ := raw.NewImage(uint32(width), uint32(height), nil)
	for i := len(img.Pixels) / 2; i < len(img.Pixels); i++ {
		img.Pixels[i] = 255
	}
	s := At(img, 2, height/2)
	if s.Gx != 0 || s.Gy != -255 || s.Direction != Vertical {
		t.Errorf("got %+v; want Gx=0 Gy=-255 vertical", s)
	}
}

func TestFieldMatchesDirect(t *testing.T) {
	rng := fastrand.RNG{}
	for _, size := range [][2]int{{1, 1}, {5, 3}, {37, 41}} {
		width, height := size[0], size[1]
		img, _ := raw.NewImage(uint32(width), uint32(height), nil)
		for i := range img.Pixels {
			img.Pixels[i] = uint8(rng.Uint32n(256))
		}
		for _, threads := range []int{1, 4} {
			f := NewField(img, threads)
			for y := -Halo; y < height+Halo; y++ {
				for x := -Halo; x < width+Halo; x++ {
					if got, want := f.At(x, y), At(img, x, y); got != want {
						t.Errorf("%dx%d threads=%d (%d,%d): field %+v; direct %+v", width, height, threads, x, y, got, want)
					}
				}
			}
			f.Release() // the next field of this size may reuse the storage
		}
	}
}

func TestFieldHaloIsComputed(t *testing.T) {
	// The pixel just outside a bright border still sees it through its kernel
	img := verticalEdge(4, 4)
	f := NewField(img, 1)
	if s := f.At(4, 1); s.Gx != 255 {
		t.Errorf("halo sample %+v; want Gx=255", s)
	}
}

func TestFieldOutsideHaloPanics(t *testing.T) {
	f := NewField(verticalEdge(4, 4), 1)
	defer func() {
		if recover() == nil {
			t.Error("access two pixels outside did not panic")
		}
	}()
	f.At(-2, 0)
}
