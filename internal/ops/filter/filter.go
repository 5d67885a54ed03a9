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

// Package filter holds the operators for blurring, edge detection and gradient statistics.
package filter

import (
	"fmt"

	"github.com/mlnoga/rawedge/internal/edge"
	"github.com/mlnoga/rawedge/internal/kernel"
	"github.com/mlnoga/rawedge/internal/ops"
	"github.com/mlnoga/rawedge/internal/raw"
	"github.com/mlnoga/rawedge/internal/stats"
)

// Default number of magnitudes sampled for statistics
const DefaultMaxSamples = 128 * 1024

// Blurs the luminance with a normalized Gaussian kernel of size 3 or 5
type OpBlur struct {
	ops.OpUnaryBase
	Size int `json:"size"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpBlurDefault() }) } // register the operator for JSON decoding

func NewOpBlurDefault() *OpBlur { return NewOpBlur(5) }

func NewOpBlur(size int) *OpBlur {
	op := &OpBlur{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "blur", Active: true}},
		Size:        size,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

func (op *OpBlur) Apply(img *raw.Image, c *ops.Context) (result *raw.Image, err error) {
	k, err := kernel.Gaussian(op.Size)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", img.ID, err)
	}
	fmt.Fprintf(c.Log, "%d: Blurring with %s kernel\n", img.ID, k.Name)
	return edge.Blur(img, k, c.MaxThreads), nil
}

// Detects edges with the Sobel operator and hysteresis thresholding. With Auto set,
// the thresholds are suggested from the gradient statistics of each image instead.
type OpSobel struct {
	ops.OpUnaryBase
	Lower uint8 `json:"lower"`
	Upper uint8 `json:"upper"`
	Auto  bool  `json:"auto"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSobelDefault() }) } // register the operator for JSON decoding

func NewOpSobelDefault() *OpSobel { return NewOpSobel(10, 17) }

func NewOpSobel(lower, upper uint8) *OpSobel {
	op := &OpSobel{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "sobel", Active: true}},
		Lower:       lower,
		Upper:       upper,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

func (op *OpSobel) Apply(img *raw.Image, c *ops.Context) (result *raw.Image, err error) {
	lower, upper := op.Lower, op.Upper
	if op.Auto {
		lower, upper = stats.NewGradientStats(img, c.MaxThreads, DefaultMaxSamples).SuggestThresholds()
		fmt.Fprintf(c.Log, "%d: Suggested thresholds lower %d upper %d\n", img.ID, lower, upper)
	}
	fmt.Fprintf(c.Log, "%d: Detecting edges with thresholds lower %d upper %d\n", img.ID, lower, upper)
	return edge.Sobel(img, lower, upper, c.MaxThreads), nil
}

// Logs gradient magnitude statistics. Passes the image through unchanged
type OpStats struct {
	ops.OpUnaryBase
	MaxSamples int  `json:"maxSamples"`
	CSV        bool `json:"csv"` // log one comma-separated line per image, see StatsCSVHeader
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpStatsDefault() }) } // register the operator for JSON decoding

func NewOpStatsDefault() *OpStats { return NewOpStats(DefaultMaxSamples) }

func NewOpStats(maxSamples int) *OpStats {
	op := &OpStats{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "stats", Active: true}},
		MaxSamples:  maxSamples,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

func (op *OpStats) Apply(img *raw.Image, c *ops.Context) (result *raw.Image, err error) {
	s := stats.NewGradientStats(img, c.MaxThreads, op.MaxSamples)
	lower, upper := s.SuggestThresholds()
	if op.CSV {
		fmt.Fprintf(c.Log, "%d,%s,%d,%d\n", img.ID, s.ToCSVLine(), lower, upper)
	} else {
		fmt.Fprintf(c.Log, "%d: Gradient %v; suggested thresholds lower %d upper %d\n", img.ID, s, lower, upper)
	}
	return img, nil
}

// Column names for the lines OpStats logs in CSV mode
func StatsCSVHeader() string {
	return "ID," + (&stats.GradientStats{}).ToCSVHeader() + ",Lower,Upper"
}

// Builds the standard pipeline for the given input patterns: load, blur, save the blurred
// image if blurOut is set, detect edges and save the edge map. Output patterns may contain %d.
func NewOpEdgePipeline(filePatterns []string, blurSize int, lower, upper uint8, blurOut, edgeOut string) *ops.OpSequence {
	return ops.NewOpSequence(
		ops.NewOpLoadMany(filePatterns),
		NewOpBlur(blurSize),
		ops.NewOpSave(blurOut),
		NewOpSobel(lower, upper),
		ops.NewOpSave(edgeOut),
	)
}
