package enhance

import (
	"github.com/luminance-labs/nightlift/internal/pixel"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// curveStage applies the exposure-lift curve CurveIterations times, then
// the optional local contrast boost after the final iteration.
func curveStage(buf *pixel.Buffer, p Params, pool *workpool.Pool) {
	for i := 0; i < p.CurveIterations; i++ {
		curvePass(buf, p.CurveStrength, pool)
	}
	if p.LocalContrastFactor > 0 {
		localContrastPass(buf, p.LocalContrastFactor, pool)
	}
}

// curvePass lifts every RGB sample with x' = x + α·x·(1−x) on the
// normalized [0,1] scale. The map is per-channel and order-independent,
// so rows are processed in place with no snapshot. Both ends are clamped
// even though the curve is analytically bounded, against float
// overshoot.
func curvePass(buf *pixel.Buffer, alpha float64, pool *workpool.Pool) {
	pool.RowRange(buf.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			o := buf.Idx(0, y)
			for x := 0; x < buf.W; x++ {
				for c := 0; c < 3; c++ {
					v := float64(buf.Pix[o+c]) / 255
					v += alpha * v * (1 - v)
					buf.Pix[o+c] = clamp8(v * 255)
				}
				o += pixel.Channels
			}
		}
	})
}

// localContrastPass pushes each interior pixel away from the mean of its
// 8 neighbours, read from a pre-pass snapshot. Boundary policy: border
// rows and columns (x or y equal to 0, W−1 or H−1) have no full
// neighbourhood and are left unmodified.
func localContrastPass(buf *pixel.Buffer, factor float64, pool *workpool.Pool) {
	if buf.W < 3 || buf.H < 3 {
		return
	}
	snap := buf.Clone()
	pool.RowRange(buf.H-2, func(y0, y1 int) {
		for y := y0 + 1; y < y1+1; y++ {
			for x := 1; x < buf.W-1; x++ {
				o := buf.Idx(x, y)
				for c := 0; c < 3; c++ {
					sum := 0
					for dy := -1; dy <= 1; dy++ {
						for dx := -1; dx <= 1; dx++ {
							if dx == 0 && dy == 0 {
								continue
							}
							sum += int(snap.Pix[snap.Idx(x+dx, y+dy)+c])
						}
					}
					mean := float64(sum) / 8
					v := float64(snap.Pix[o+c])
					buf.Pix[o+c] = clamp8(v + factor*(v-mean))
				}
			}
		}
	})
}

// clamp8 rounds to the nearest sample value and clamps to [0, 255].
func clamp8(v float64) uint8 {
	n := int64(v + 0.5)
	if n > 255 {
		return 255
	}
	if n < 0 {
		return 0
	}
	return uint8(n)
}
