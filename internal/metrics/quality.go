// Package metrics computes brightness statistics and quality measures
// for before/after pairs of frames. The summaries feed the CLI stats
// output, the batch report, and the histogram plots served by the API.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/luminance-labs/nightlift/internal/pixel"
)

// DefaultBins is the bin count used for brightness histograms when the
// caller does not pick one.
const DefaultBins = 32

// Summary holds distribution statistics for one frame's brightness
// samples. All values are on the 0-255 brightness scale.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P05    float64 `json:"p05"`
	P95    float64 `json:"p95"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// BrightnessSamples returns one (R+G+B)/3 sample per pixel in row
// order. Alpha does not contribute.
func BrightnessSamples(buf *pixel.Buffer) []float64 {
	samples := make([]float64, 0, buf.W*buf.H)
	for i := 0; i < len(buf.Pix); i += pixel.Channels {
		samples = append(samples, pixel.Brightness(buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]))
	}
	return samples
}

// Summarize computes distribution statistics over a sample set. An
// empty set yields the zero Summary; a single sample reports zero
// spread.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	s := Summary{
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P05:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
	// Sample standard deviation is undefined for n=1.
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// SummarizeBuffer is shorthand for Summarize(BrightnessSamples(buf)).
func SummarizeBuffer(buf *pixel.Buffer) Summary {
	return Summarize(BrightnessSamples(buf))
}

// Histogram is an equal-width brightness histogram. Dividers holds the
// len(Counts)+1 bin edges spanning [0, 256] so that a 255 sample lands
// in the top bin rather than past it.
type Histogram struct {
	Dividers []float64
	Counts   []float64
}

// NewHistogram bins samples into the given number of equal-width bins.
// Samples are clamped into [0, 255] first so float noise cannot land
// outside the dividers. bins < 1 falls back to DefaultBins.
func NewHistogram(samples []float64, bins int) Histogram {
	if bins < 1 {
		bins = DefaultBins
	}

	sorted := make([]float64, 0, len(samples))
	for _, v := range samples {
		sorted = append(sorted, math.Min(math.Max(v, 0), 255))
	}
	sort.Float64s(sorted)

	dividers := floats.Span(make([]float64, bins+1), 0, 256)
	counts := stat.Histogram(make([]float64, bins), dividers, sorted, nil)
	return Histogram{Dividers: dividers, Counts: counts}
}

// HistogramOf bins every pixel of buf with the given bin count.
func HistogramOf(buf *pixel.Buffer, bins int) Histogram {
	return NewHistogram(BrightnessSamples(buf), bins)
}

// Bins returns the number of bins.
func (h Histogram) Bins() int {
	return len(h.Counts)
}

// Center returns the midpoint brightness of bin i.
func (h Histogram) Center(i int) float64 {
	return (h.Dividers[i] + h.Dividers[i+1]) / 2
}

// Total returns the sample count across all bins.
func (h Histogram) Total() float64 {
	return floats.Sum(h.Counts)
}

// PSNR returns the peak signal-to-noise ratio between two frames in
// decibels, computed over the RGB channels. Byte-identical frames
// return +Inf. The frames must share dimensions.
func PSNR(a, b *pixel.Buffer) (float64, error) {
	if a == nil || b == nil {
		return 0, fmt.Errorf("metrics: psnr needs two frames")
	}
	if a.W != b.W || a.H != b.H {
		return 0, fmt.Errorf("metrics: psnr size mismatch: %dx%d vs %dx%d", a.W, a.H, b.W, b.H)
	}

	var sum float64
	for i := 0; i < len(a.Pix); i += pixel.Channels {
		for c := 0; c < 3; c++ {
			d := float64(a.Pix[i+c]) - float64(b.Pix[i+c])
			sum += d * d
		}
	}
	mse := sum / (float64(a.W*a.H) * 3)
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 10 * math.Log10(255*255/mse), nil
}

// Comparison pairs before/after summaries with the PSNR between the
// two frames. PSNRdB is +Inf for byte-identical frames; JSON encoders
// reject Inf, so guard before marshaling.
type Comparison struct {
	Before Summary `json:"before"`
	After  Summary `json:"after"`
	PSNRdB float64 `json:"psnr_db"`
}

// Compare summarizes both frames and measures the PSNR between them.
func Compare(before, after *pixel.Buffer) (Comparison, error) {
	psnr, err := PSNR(before, after)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		Before: SummarizeBuffer(before),
		After:  SummarizeBuffer(after),
		PSNRdB: psnr,
	}, nil
}
