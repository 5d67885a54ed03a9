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

// Package stats summarizes gradient magnitudes, for choosing hysteresis thresholds.
package stats

import (
	"fmt"
	"sort"

	"github.com/mlnoga/rawedge/internal/gradient"
	"github.com/mlnoga/rawedge/internal/raw"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"
)

// Number of histogram bins, one per magnitude value
const NumBins = 256

// Statistics on the gradient magnitudes of an image
type GradientStats struct {
	Samples int     // Number of magnitudes the statistics were computed from
	Min     float64 // Minimum
	Max     float64 // Maximum
	Mean    float64 // Mean (average)
	StdDev  float64 // Standard deviation
	Median  float64 // 50th percentile
	P90     float64 // 90th percentile

	Mode      float64 // Location of a normal distribution fitted to the histogram, -1 if the fit failed
	ModeWidth float64 // Standard deviation of the fitted distribution

	Histogram [NumBins]int32 // Histogram of magnitudes, one bin per value
}

// Pretty print gradient stats to string
func (s *GradientStats) String() string {
	return fmt.Sprintf("Samples %d Min %.6g Max %.6g Mean %.6g StdDev %.6g Median %.6g P90 %.6g Mode %.4g",
		s.Samples, s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.P90, s.Mode)
}

// Pretty print gradient stats to CSV header
func (s *GradientStats) ToCSVHeader() string {
	return "Samples,Min,Max,Mean,StdDev,Median,P90,Mode"
}

// Pretty print gradient stats to CSV line item
func (s *GradientStats) ToCSVLine() string {
	return fmt.Sprintf("%d,%.6g,%.6g,%.6g,%.6g,%.6g,%.6g,%.4g",
		s.Samples, s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.P90, s.Mode)
}

// Collects the magnitudes of all in-range pixels of the field, row-major
func Magnitudes(f *gradient.Field) []float64 {
	mags := make([]float64, 0, f.Width*f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			mags = append(mags, float64(f.At(x, y).Magnitude))
		}
	}
	return mags
}

// Draws numSamples values uniformly at random from data, with replacement
func subsample(data []float64, numSamples int) []float64 {
	rng := fastrand.RNG{}
	max := uint32(len(data))
	samples := make([]float64, numSamples)
	for i := range samples {
		samples[i] = data[rng.Uint32n(max)]
	}
	return samples
}

// Calculates gradient statistics for the image. If maxSamples is positive and the image
// has more pixels, the statistics are estimated from a random subsample of that size.
func NewGradientStats(img *raw.Image, threads, maxSamples int) *GradientStats {
	f := gradient.NewField(img, threads)
	mags := Magnitudes(f)
	f.Release()
	if maxSamples > 0 && len(mags) > maxSamples {
		mags = subsample(mags, maxSamples)
	}
	return CalcGradientStats(mags)
}

// Calculates gradient statistics for the given magnitudes. Sorts mags in place.
func CalcGradientStats(mags []float64) *GradientStats {
	s := &GradientStats{Samples: len(mags), Mode: -1}
	if len(mags) == 0 {
		return s
	}

	sort.Float64s(mags)
	s.Min, s.Max = mags[0], mags[len(mags)-1]
	s.Mean, s.StdDev = stat.PopMeanStdDev(mags, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, mags, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, mags, nil)

	Histogram(mags, 0, NumBins-1, s.Histogram[:])
	if mode, width, err := FitNormal(s.Histogram[:], 0, NumBins-1); err == nil {
		s.Mode, s.ModeWidth = mode, width
	}
	return s
}

// Suggests hysteresis thresholds: the median as lower, the 90th percentile as upper bound
func (s *GradientStats) SuggestThresholds() (lower, upper uint8) {
	lower, upper = clamp(s.Median), clamp(s.P90)
	if lower > upper {
		lower = upper
	}
	return lower, upper
}

func clamp(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
