package enhance

import (
	"bytes"
	"testing"

	"github.com/luminance-labs/nightlift/internal/pixel"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// Brightness statistics are the plain per-pixel (R+G+B)/3 mean and max.
func TestComputeBrightnessStats(t *testing.T) {
	buf := pixel.New(2, 1)
	buf.Pix[4], buf.Pix[5], buf.Pix[6] = 255, 255, 255

	stats := computeBrightnessStats(buf)
	if stats.Avg != 127.5 {
		t.Errorf("Avg = %v, want 127.5", stats.Avg)
	}
	if stats.Max != 255 {
		t.Errorf("Max = %v, want 255", stats.Max)
	}
}

// Frames below both thresholds pass through byte-identical; a dark
// capture must never be darkened further.
func TestToneMapSkipsDarkFrames(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	buf := fillBuffer(8, 6, 90)
	before := buf.Clone()
	stats := toneMapStage(buf, DefaultParams(), pool)

	if !bytes.Equal(buf.Pix, before.Pix) {
		t.Error("dark frame was modified")
	}
	if stats.Avg != 90 || stats.Max != 90 {
		t.Errorf("stats = %+v, want Avg=90 Max=90", stats)
	}
}

// A single hot pixel trips the max threshold even when the average
// stays low.
func TestToneMapMaxThresholdTriggers(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	buf := fillBuffer(8, 8, 50)
	o := buf.Idx(3, 3)
	buf.Pix[o], buf.Pix[o+1], buf.Pix[o+2] = 255, 255, 255

	before := buf.Clone()
	toneMapStage(buf, DefaultParams(), pool)
	if bytes.Equal(buf.Pix, before.Pix) {
		t.Error("hot pixel did not trigger the tone map")
	}
}

// Reinhard at gamma 1 maps sample v to 255·(v/255)/(1+v/255).
func TestToneMapReinhardValues(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	buf := fillBuffer(4, 4, 200)
	stats := toneMapStage(buf, DefaultParams(), pool)
	if stats.Avg != 200 {
		t.Fatalf("stats.Avg = %v, want 200", stats.Avg)
	}
	// 200/255 = 0.784; 0.784/1.784 = 0.4396; ·255 rounds to 112.
	if got := buf.Pix[0]; got != 112 {
		t.Errorf("reinhard(200) = %d, want 112", got)
	}
}

// The adaptive gain divides the target brightness by the measured
// average and clamps to [0.8, 1.2].
func TestToneMapAdaptiveGain(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	p := DefaultParams()
	p.ToneMapVariant = ToneMapAdaptiveGain

	// avg 200: 118/201 clamps up to 0.8, so 200 → 160.
	buf := fillBuffer(4, 4, 200)
	toneMapStage(buf, p, pool)
	if got := buf.Pix[0]; got != 160 {
		t.Errorf("gain-mapped sample = %d, want 160", got)
	}

	// avg ~53 with one hot pixel: 118/54.2 clamps down to 1.2, so the
	// dark field brightens to 60 and the hot pixel saturates.
	buf = fillBuffer(8, 8, 50)
	o := buf.Idx(0, 0)
	buf.Pix[o], buf.Pix[o+1], buf.Pix[o+2] = 255, 255, 255
	toneMapStage(buf, p, pool)
	if got := buf.Pix[buf.Idx(4, 4)]; got != 60 {
		t.Errorf("dark sample = %d, want 60", got)
	}
	if got := buf.Pix[o]; got != 255 {
		t.Errorf("hot sample = %d, want 255", got)
	}
}

// Gamma in the Reinhard path bends the compressed value upward for
// gamma > 1.
func TestToneMapGammaBrightens(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	flat := fillBuffer(4, 4, 200)
	toneMapStage(flat, DefaultParams(), pool)

	p := DefaultParams()
	p.ToneMapGamma = 2.2
	corrected := fillBuffer(4, 4, 200)
	toneMapStage(corrected, p, pool)

	if corrected.Pix[0] <= flat.Pix[0] {
		t.Errorf("gamma 2.2 sample %d not above gamma 1 sample %d", corrected.Pix[0], flat.Pix[0])
	}
}
