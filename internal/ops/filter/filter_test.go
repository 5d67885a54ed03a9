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

package filter

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/mlnoga/rawedge/internal/edge"
	"github.com/mlnoga/rawedge/internal/kernel"
	"github.com/mlnoga/rawedge/internal/ops"
	"github.com/mlnoga/rawedge/internal/raw"
	"github.com/valyala/fastrand"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func randomImage(width, height uint32) *raw.Image {
	rng := fastrand.RNG{}
	img, _ := raw.NewImage(width, height, nil)
	for i := range img.Pixels {
		img.Pixels[i] = uint8(rng.Uint32n(256))
	}
	return img
}

func TestEdgePipeline(t *testing.T) {
	chdirTemp(t)
	var log bytes.Buffer
	c := &ops.Context{Log: &log, MaxThreads: 3}
	imgs := []*raw.Image{randomImage(31, 17), randomImage(8, 40)}
	for i, img := range imgs {
		if err := img.WriteFile([]string{"a.raw", "b.raw"}[i]); err != nil {
			t.Fatal(err)
		}
	}

	seq := NewOpEdgePipeline([]string{"*.raw"}, 5, 10, 17, "blur%d.raw", "edge%d.raw")
	if err := ops.Run(seq, c); err != nil {
		t.Fatal(err)
	}
	for i, img := range imgs {
		blurred := edge.Blur(img, kernel.Gaussian5x5, 1)
		want := edge.Sobel(blurred, 10, 17, 1)
		for _, tc := range []struct {
			name string
			want *raw.Image
		}{
			{[]string{"blur0.raw", "blur1.raw"}[i], blurred},
			{[]string{"edge0.raw", "edge1.raw"}[i], want},
		} {
			got, err := raw.DecodeFile(tc.name)
			if err != nil {
				t.Fatal(err)
			}
			if got.Width != tc.want.Width || !bytes.Equal(got.Pixels, tc.want.Pixels) {
				t.Errorf("%s differs", tc.name)
			}
		}
	}
	if !strings.Contains(log.String(), "Detecting edges with thresholds lower 10 upper 17") {
		t.Errorf("unexpected log %q", log.String())
	}
}

func TestDecodeDefaults(t *testing.T) {
	js := `{"type":"seq","active":true,"steps":[{"type":"blur"},{"type":"sobel","lower":5},{"type":"stats"}]}`
	seq, err := ops.ParsePipelineJSON([]byte(js))
	if err != nil {
		t.Fatal(err)
	}
	if len(seq.Steps) != 3 {
		t.Fatalf("got %d steps", len(seq.Steps))
	}
	if blur, ok := seq.Steps[0].(*OpBlur); !ok || blur.Size != 5 || !blur.Active {
		t.Errorf("got blur %#v", seq.Steps[0])
	}
	if sobel, ok := seq.Steps[1].(*OpSobel); !ok || sobel.Lower != 5 || sobel.Upper != 17 || sobel.Auto {
		t.Errorf("got sobel %#v", seq.Steps[1])
	}
	if st, ok := seq.Steps[2].(*OpStats); !ok || st.MaxSamples != DefaultMaxSamples {
		t.Errorf("got stats %#v", seq.Steps[2])
	}

	yml := "type: seq\nactive: true\nsteps:\n  - type: blur\n  - type: sobel\n    lower: 5\n  - type: stats\n"
	fromYAML, err := ops.ParsePipelineYAML([]byte(yml))
	if err != nil {
		t.Fatal(err)
	}
	if sobel, ok := fromYAML.Steps[1].(*OpSobel); !ok || sobel.Lower != 5 || sobel.Upper != 17 {
		t.Errorf("got yaml sobel %#v", fromYAML.Steps[1])
	}
}

func TestBlurInvalidSize(t *testing.T) {
	var log bytes.Buffer
	if _, err := NewOpBlur(4).Apply(randomImage(4, 4), &ops.Context{Log: &log, MaxThreads: 1}); err == nil {
		t.Errorf("expected error for kernel size 4")
	}
}

func TestInactiveStepPassesThrough(t *testing.T) {
	var log bytes.Buffer
	c := &ops.Context{Log: &log, MaxThreads: 1}
	img := randomImage(5, 5)
	op := NewOpBlur(5)
	op.Active = false
	promises, err := op.MakePromises([]ops.Promise{func() (*raw.Image, error) { return img, nil }}, c)
	if err != nil {
		t.Fatal(err)
	}
	got, err := promises[0]()
	if err != nil || got != img {
		t.Errorf("inactive blur changed the image")
	}
}

func TestAutoThresholdsAndStats(t *testing.T) {
	var log bytes.Buffer
	c := &ops.Context{Log: &log, MaxThreads: 2}
	img := randomImage(20, 20)

	op := NewOpSobel(0, 0)
	op.Auto = true
	if _, err := op.Apply(img, c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(log.String(), "Suggested thresholds") {
		t.Errorf("unexpected log %q", log.String())
	}

	log.Reset()
	out, err := NewOpStats(0).Apply(img, c)
	if err != nil || out != img {
		t.Errorf("stats should pass the image through, got %v", err)
	}
	if !strings.Contains(log.String(), "0: Gradient Samples 400") {
		t.Errorf("unexpected log %q", log.String())
	}

	log.Reset()
	csvOp := NewOpStats(0)
	csvOp.CSV = true
	if _, err := csvOp.Apply(img, c); err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSuffix(log.String(), "\n")
	if !strings.HasPrefix(line, "0,400,") {
		t.Errorf("unexpected csv line %q", line)
	}
	header := StatsCSVHeader()
	if header != "ID,Samples,Min,Max,Mean,StdDev,Median,P90,Mode,Lower,Upper" {
		t.Errorf("got header %q", header)
	}
	if got, want := strings.Count(line, ","), strings.Count(header, ","); got != want {
		t.Errorf("csv line has %d separators; header has %d", got, want)
	}
}
