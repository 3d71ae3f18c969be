package enhance

import (
	"math"

	"github.com/luminance-labs/nightlift/internal/pixel"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// Adaptive-gain clamp range.
const (
	adaptiveGainMin = 0.8
	adaptiveGainMax = 1.2
)

// BrightnessStats are the whole-image aggregates gathered before the
// tone-mapping decision: mean and maximum per-pixel brightness
// (R+G+B)/3 on the 0–255 scale.
type BrightnessStats struct {
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// computeBrightnessStats walks the buffer once. Kept sequential: the
// result feeds a branch, not a per-pixel write, and a single pass over
// the sample slice is cheap.
func computeBrightnessStats(buf *pixel.Buffer) BrightnessStats {
	var sum, max float64
	for o := 0; o < len(buf.Pix); o += pixel.Channels {
		br := pixel.Brightness(buf.Pix[o], buf.Pix[o+1], buf.Pix[o+2])
		sum += br
		if br > max {
			max = br
		}
	}
	n := buf.W * buf.H
	if n == 0 {
		return BrightnessStats{}
	}
	return BrightnessStats{Avg: sum / float64(n), Max: max}
}

// toneMapStage gathers brightness statistics and applies the configured
// remap only when the image risks over-exposure: avg above the average
// threshold or max above the peak threshold. Below both thresholds the
// buffer passes through byte-identical.
func toneMapStage(buf *pixel.Buffer, p Params, pool *workpool.Pool) BrightnessStats {
	stats := computeBrightnessStats(buf)
	if stats.Avg <= p.ToneMapAvgThreshold && stats.Max <= p.ToneMapMaxThreshold {
		diagf("tone map skipped: avg=%.1f max=%.1f", stats.Avg, stats.Max)
		return stats
	}

	switch p.ToneMapVariant {
	case ToneMapAdaptiveGain:
		gain := p.ToneMapTargetBrightness / (stats.Avg + 1)
		if gain < adaptiveGainMin {
			gain = adaptiveGainMin
		}
		if gain > adaptiveGainMax {
			gain = adaptiveGainMax
		}
		diagf("tone map adaptive-gain: avg=%.1f max=%.1f gain=%.3f", stats.Avg, stats.Max, gain)
		applyGain(buf, gain, pool)
	default:
		diagf("tone map reinhard: avg=%.1f max=%.1f gamma=%.2f", stats.Avg, stats.Max, p.ToneMapGamma)
		applyReinhard(buf, p.ToneMapGamma, pool)
	}
	return stats
}

// applyReinhard compresses each channel with x/(1+x) on the normalized
// scale, then gamma-corrects with x^(1/γ).
func applyReinhard(buf *pixel.Buffer, gamma float64, pool *workpool.Pool) {
	invGamma := 1 / gamma
	pool.RowRange(buf.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			o := buf.Idx(0, y)
			for x := 0; x < buf.W; x++ {
				for c := 0; c < 3; c++ {
					v := float64(buf.Pix[o+c]) / 255
					v = v / (1 + v)
					if gamma != 1 {
						v = math.Pow(v, invGamma)
					}
					buf.Pix[o+c] = clamp8(v * 255)
				}
				o += pixel.Channels
			}
		}
	})
}

// applyGain multiplies every RGB sample by a single gain, clamped.
func applyGain(buf *pixel.Buffer, gain float64, pool *workpool.Pool) {
	pool.RowRange(buf.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			o := buf.Idx(0, y)
			for x := 0; x < buf.W; x++ {
				for c := 0; c < 3; c++ {
					buf.Pix[o+c] = clamp8(float64(buf.Pix[o+c]) * gain)
				}
				o += pixel.Channels
			}
		}
	})
}
