package enhance

import (
	"math"

	"github.com/luminance-labs/nightlift/internal/pixel"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// Bounds on the per-pixel saturation factor: the floor keeps near-gray
// pixels receiving some colour lift, the cap prevents runaway
// saturation.
const (
	satFactorFloor = 0.05
	satFactorCap   = 0.5
)

// sharpenRadius is the unsharp kernel radius. Boundary policy: border
// rows and columns of this width have no full window and keep their
// saturation-pass values.
const sharpenRadius = 1

// refineStage runs adaptive saturation, then variance-adaptive
// sharpening from a snapshot taken after the saturation pass.
func refineStage(buf *pixel.Buffer, p Params, pool *workpool.Pool) {
	saturationPass(buf, p.SaturationFactor, pool)
	sharpenPass(buf, p, pool)
}

// saturationPass pushes each channel away from the pixel's Rec.601
// luminance. The factor shrinks as existing saturation grows:
// f = base·(1 − m/255) bounded to [satFactorFloor, satFactorCap], where
// m is the mean absolute channel distance from luminance. Per-pixel,
// no neighbour reads.
func saturationPass(buf *pixel.Buffer, base float64, pool *workpool.Pool) {
	pool.RowRange(buf.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			o := buf.Idx(0, y)
			for x := 0; x < buf.W; x++ {
				r := float64(buf.Pix[o])
				g := float64(buf.Pix[o+1])
				b := float64(buf.Pix[o+2])
				lum := pixel.Luminance(buf.Pix[o], buf.Pix[o+1], buf.Pix[o+2])

				mag := (math.Abs(r-lum) + math.Abs(g-lum) + math.Abs(b-lum)) / 3
				f := base * (1 - mag/255)
				if f < satFactorFloor {
					f = satFactorFloor
				}
				if f > satFactorCap {
					f = satFactorCap
				}

				buf.Pix[o] = clamp8(lum + (r-lum)*(1+f))
				buf.Pix[o+1] = clamp8(lum + (g-lum)*(1+f))
				buf.Pix[o+2] = clamp8(lum + (b-lum)*(1+f))
				o += pixel.Channels
			}
		}
	})
}

// sharpenPass applies a 3×3 unsharp kernel whose gain follows the local
// luminance spread: flat neighbourhoods sharpen at up to 2.0×, busy ones
// fall off to 0.5×. All reads come from the pre-pass snapshot; the final
// value blends the convolution result with the snapshot value at
// SharpenBlend (reference 70/30).
func sharpenPass(buf *pixel.Buffer, p Params, pool *workpool.Pool) {
	if buf.W <= 2*sharpenRadius || buf.H <= 2*sharpenRadius {
		return
	}
	snap := buf.Clone()
	pool.RowRange(buf.H-2*sharpenRadius, func(y0, y1 int) {
		for y := y0 + sharpenRadius; y < y1+sharpenRadius; y++ {
			for x := sharpenRadius; x < buf.W-sharpenRadius; x++ {
				var sum [3]float64
				var lumSum, lumSqSum float64
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						no := snap.Idx(x+dx, y+dy)
						sum[0] += float64(snap.Pix[no])
						sum[1] += float64(snap.Pix[no+1])
						sum[2] += float64(snap.Pix[no+2])
						l := pixel.Luminance(snap.Pix[no], snap.Pix[no+1], snap.Pix[no+2])
						lumSum += l
						lumSqSum += l * l
					}
				}
				meanLum := lumSum / 9
				variance := lumSqSum/9 - meanLum*meanLum
				if variance < 0 {
					variance = 0
				}
				amount := p.SharpenAmount * sharpenScale(math.Sqrt(variance))

				o := buf.Idx(x, y)
				for c := 0; c < 3; c++ {
					center := float64(snap.Pix[o+c])
					conv := center + amount*(center-sum[c]/9)
					buf.Pix[o+c] = clamp8(p.SharpenBlend*conv + (1-p.SharpenBlend)*center)
				}
			}
		}
	})
}

// sharpenScale maps the neighbourhood luminance spread σ to the unsharp
// gain multiplier, clamped to [0.5, 2.0].
func sharpenScale(sigma float64) float64 {
	s := 2 - sigma/32
	if s < 0.5 {
		return 0.5
	}
	if s > 2 {
		return 2
	}
	return s
}
