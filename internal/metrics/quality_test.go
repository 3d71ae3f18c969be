package metrics

import (
	"math"
	"testing"

	"github.com/luminance-labs/nightlift/internal/pixel"
)

func fillRGB(buf *pixel.Buffer, r, g, b uint8) {
	for i := 0; i < len(buf.Pix); i += pixel.Channels {
		buf.Pix[i] = r
		buf.Pix[i+1] = g
		buf.Pix[i+2] = b
		buf.Pix[i+3] = 255
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestBrightnessSamples checks the per-pixel channel mean and sample
// ordering.
func TestBrightnessSamples(t *testing.T) {
	buf := pixel.New(2, 1)
	buf.Pix[0], buf.Pix[1], buf.Pix[2], buf.Pix[3] = 30, 60, 90, 255
	buf.Pix[4], buf.Pix[5], buf.Pix[6], buf.Pix[7] = 255, 255, 255, 0

	samples := BrightnessSamples(buf)
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if !almostEqual(samples[0], 60) {
		t.Errorf("expected first sample 60, got %f", samples[0])
	}
	if !almostEqual(samples[1], 255) {
		t.Errorf("expected second sample 255, got %f", samples[1])
	}
}

// TestSummarizeKnownValues checks every Summary field against a small
// hand-computed sample set.
func TestSummarizeKnownValues(t *testing.T) {
	s := Summarize([]float64{40, 10, 30, 20})

	if !almostEqual(s.Mean, 25) {
		t.Errorf("expected mean 25, got %f", s.Mean)
	}
	if want := math.Sqrt(500.0 / 3.0); !almostEqual(s.StdDev, want) {
		t.Errorf("expected stddev %f, got %f", want, s.StdDev)
	}
	if !almostEqual(s.Median, 20) {
		t.Errorf("expected median 20, got %f", s.Median)
	}
	if !almostEqual(s.P05, 10) {
		t.Errorf("expected p05 10, got %f", s.P05)
	}
	if !almostEqual(s.P95, 40) {
		t.Errorf("expected p95 40, got %f", s.P95)
	}
	if s.Min != 10 || s.Max != 40 {
		t.Errorf("expected min/max 10/40, got %f/%f", s.Min, s.Max)
	}
}

// TestSummarizeEmpty checks that an empty sample set yields the zero
// Summary instead of NaNs.
func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

// TestSummarizeSingleSample checks that one sample reports zero spread.
func TestSummarizeSingleSample(t *testing.T) {
	s := Summarize([]float64{42})
	if s.Mean != 42 || s.Median != 42 || s.Min != 42 || s.Max != 42 {
		t.Errorf("expected all location stats 42, got %+v", s)
	}
	if s.StdDev != 0 {
		t.Errorf("expected stddev 0 for single sample, got %f", s.StdDev)
	}
}

// TestNewHistogramBinning checks bin placement with 8-wide bins,
// including edge values and out-of-range clamping.
func TestNewHistogramBinning(t *testing.T) {
	h := NewHistogram([]float64{0, 8, 255, 300, -5}, 32)

	if h.Bins() != 32 {
		t.Fatalf("expected 32 bins, got %d", h.Bins())
	}
	if len(h.Dividers) != 33 {
		t.Fatalf("expected 33 dividers, got %d", len(h.Dividers))
	}
	if h.Dividers[0] != 0 || h.Dividers[32] != 256 {
		t.Errorf("expected dividers spanning [0, 256], got [%f, %f]", h.Dividers[0], h.Dividers[32])
	}

	// 0 and clamped -5 land in bin 0; 8 opens bin 1; 255 and clamped
	// 300 land in the top bin.
	if h.Counts[0] != 2 {
		t.Errorf("expected 2 samples in bin 0, got %f", h.Counts[0])
	}
	if h.Counts[1] != 1 {
		t.Errorf("expected 1 sample in bin 1, got %f", h.Counts[1])
	}
	if h.Counts[31] != 2 {
		t.Errorf("expected 2 samples in bin 31, got %f", h.Counts[31])
	}
	if h.Total() != 5 {
		t.Errorf("expected total 5, got %f", h.Total())
	}
	if !almostEqual(h.Center(0), 4) {
		t.Errorf("expected bin 0 center 4, got %f", h.Center(0))
	}
}

// TestHistogramDefaultBins checks the fallback bin count.
func TestHistogramDefaultBins(t *testing.T) {
	h := NewHistogram([]float64{1, 2, 3}, 0)
	if h.Bins() != DefaultBins {
		t.Errorf("expected %d bins, got %d", DefaultBins, h.Bins())
	}
	if h.Total() != 3 {
		t.Errorf("expected total 3, got %f", h.Total())
	}
}

// TestHistogramOfCountsEveryPixel checks that every pixel contributes
// exactly one sample.
func TestHistogramOfCountsEveryPixel(t *testing.T) {
	buf := pixel.New(4, 3)
	fillRGB(buf, 120, 130, 140)

	h := HistogramOf(buf, 16)
	if h.Total() != 12 {
		t.Errorf("expected total 12, got %f", h.Total())
	}
}

// TestPSNRIdenticalIsInf checks the byte-identical case.
func TestPSNRIdenticalIsInf(t *testing.T) {
	a := pixel.New(5, 5)
	fillRGB(a, 10, 20, 30)
	b := a.Clone()

	v, err := PSNR(a, b)
	if err != nil {
		t.Fatalf("PSNR failed: %v", err)
	}
	if !math.IsInf(v, 1) {
		t.Errorf("expected +Inf for identical frames, got %f", v)
	}
}

// TestPSNRKnownValue checks the decibel value for a single-channel
// offset of 10.
func TestPSNRKnownValue(t *testing.T) {
	a := pixel.New(1, 1)
	fillRGB(a, 100, 100, 100)
	b := pixel.New(1, 1)
	fillRGB(b, 110, 100, 100)

	v, err := PSNR(a, b)
	if err != nil {
		t.Fatalf("PSNR failed: %v", err)
	}
	want := 10 * math.Log10(255*255/(100.0/3.0))
	if !almostEqual(v, want) {
		t.Errorf("expected %f dB, got %f dB", want, v)
	}
}

// TestPSNRIgnoresAlpha checks that alpha differences do not count as
// signal error.
func TestPSNRIgnoresAlpha(t *testing.T) {
	a := pixel.New(3, 3)
	fillRGB(a, 50, 60, 70)
	b := a.Clone()
	for i := 3; i < len(b.Pix); i += pixel.Channels {
		b.Pix[i] = 17
	}

	v, err := PSNR(a, b)
	if err != nil {
		t.Fatalf("PSNR failed: %v", err)
	}
	if !math.IsInf(v, 1) {
		t.Errorf("expected +Inf when only alpha differs, got %f", v)
	}
}

// TestPSNRSizeMismatch checks that mismatched dimensions error out.
func TestPSNRSizeMismatch(t *testing.T) {
	a := pixel.New(2, 2)
	b := pixel.New(3, 2)

	if _, err := PSNR(a, b); err == nil {
		t.Error("expected error for size mismatch")
	}
	if _, err := PSNR(nil, b); err == nil {
		t.Error("expected error for nil frame")
	}
}

// TestCompare checks the combined before/after summary.
func TestCompare(t *testing.T) {
	before := pixel.New(4, 4)
	fillRGB(before, 50, 50, 50)
	after := pixel.New(4, 4)
	fillRGB(after, 100, 100, 100)

	c, err := Compare(before, after)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !almostEqual(c.Before.Mean, 50) {
		t.Errorf("expected before mean 50, got %f", c.Before.Mean)
	}
	if !almostEqual(c.After.Mean, 100) {
		t.Errorf("expected after mean 100, got %f", c.After.Mean)
	}
	if want := 10 * math.Log10(255*255/2500.0); !almostEqual(c.PSNRdB, want) {
		t.Errorf("expected PSNR %f dB, got %f dB", want, c.PSNRdB)
	}
}

// TestCompareSizeMismatch checks that Compare propagates PSNR errors.
func TestCompareSizeMismatch(t *testing.T) {
	if _, err := Compare(pixel.New(2, 2), pixel.New(4, 4)); err == nil {
		t.Error("expected error for size mismatch")
	}
}
