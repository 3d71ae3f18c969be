package enhance

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/luminance-labs/nightlift/internal/pixel"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// Pixels at or above the edge threshold pass through byte-identical;
// smoothing across a hard boundary would smear it.
func TestDenoiseLeavesHardEdgesUntouched(t *testing.T) {
	pool := workpool.New(3)
	defer pool.Close()

	buf := pixel.New(12, 8)
	for y := 0; y < buf.H; y++ {
		for x := 0; x < buf.W; x++ {
			v := uint8(20)
			if x >= 6 {
				v = 235
			}
			o := buf.Idx(x, y)
			buf.Pix[o], buf.Pix[o+1], buf.Pix[o+2], buf.Pix[o+3] = v, v, v, 255
		}
	}

	p := DefaultParams()
	em := edgeMap(buf, p.EdgeNormalization, pool)
	before := buf.Clone()
	denoiseStage(buf, p, pool)

	var protected int
	for y := 0; y < buf.H; y++ {
		for x := 0; x < buf.W; x++ {
			if float64(em[y*buf.W+x]) < p.DenoiseEdgeThreshold {
				continue
			}
			protected++
			o := buf.Idx(x, y)
			if !bytes.Equal(buf.Pix[o:o+4], before.Pix[o:o+4]) {
				t.Fatalf("edge pixel (%d,%d) changed", x, y)
			}
		}
	}
	if protected == 0 {
		t.Fatal("test image produced no pixels above the edge threshold")
	}
}

// A flat image has zero gradient everywhere.
func TestEdgeMapFlatImageIsZero(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	em := edgeMap(fillBuffer(10, 6, 123), 1200, pool)
	for i, e := range em {
		if e != 0 {
			t.Fatalf("flat image edge magnitude %v at index %d", e, i)
		}
	}
}

// Border pixels have no Sobel window; they must read as flat, never as
// strong edges.
func TestEdgeMapBordersAreZero(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	buf := randomBuffer(9, 7, 41)
	em := edgeMap(buf, 1200, pool)
	for y := 0; y < buf.H; y++ {
		for x := 0; x < buf.W; x++ {
			if x != 0 && y != 0 && x != buf.W-1 && y != buf.H-1 {
				continue
			}
			if em[y*buf.W+x] != 0 {
				t.Fatalf("border (%d,%d) has edge magnitude %v", x, y, em[y*buf.W+x])
			}
		}
	}
}

// Low-amplitude noise on a flat field stays below the edge threshold,
// so the whole frame is filtered and its sample variance drops.
func TestDenoiseReducesNoiseVariance(t *testing.T) {
	pool := workpool.New(4)
	defer pool.Close()

	rng := rand.New(rand.NewSource(43))
	buf := pixel.New(16, 16)
	for o := 0; o < len(buf.Pix); o += pixel.Channels {
		buf.Pix[o] = uint8(110 + rng.Intn(17))
		buf.Pix[o+1] = uint8(110 + rng.Intn(17))
		buf.Pix[o+2] = uint8(110 + rng.Intn(17))
		buf.Pix[o+3] = 255
	}

	variance := func(b *pixel.Buffer) float64 {
		var sum, sqSum float64
		var n int
		for o := 0; o < len(b.Pix); o += pixel.Channels {
			for c := 0; c < 3; c++ {
				v := float64(b.Pix[o+c])
				sum += v
				sqSum += v * v
				n++
			}
		}
		mean := sum / float64(n)
		return sqSum/float64(n) - mean*mean
	}

	before := variance(buf)
	denoiseStage(buf, DefaultParams(), pool)
	after := variance(buf)

	if after >= before {
		t.Errorf("variance %v did not drop below %v", after, before)
	}
}

// The filter writes RGB only; alpha passes through even on filtered
// pixels.
func TestDenoisePreservesAlpha(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	buf := randomBuffer(10, 10, 47)
	before := buf.Clone()
	denoiseStage(buf, DefaultParams(), pool)
	for o := 3; o < len(buf.Pix); o += pixel.Channels {
		if buf.Pix[o] != before.Pix[o] {
			t.Fatalf("alpha changed at byte %d", o)
		}
	}
}
