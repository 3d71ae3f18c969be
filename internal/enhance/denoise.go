package enhance

import (
	"math"

	"github.com/luminance-labs/nightlift/internal/pixel"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// denoiseStage computes the edge map, then applies the bilateral-style
// filter to pixels below the edge threshold. Pixels at or above the
// threshold pass through byte-identical; denoising strength never
// increases with edge magnitude.
func denoiseStage(buf *pixel.Buffer, p Params, pool *workpool.Pool) {
	em := edgeMap(buf, p.EdgeNormalization, pool)
	snap := buf.Clone()

	pool.RowRange(buf.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.W; x++ {
				e := float64(em[y*buf.W+x])
				if e >= p.DenoiseEdgeThreshold {
					continue
				}

				// Radius shrinks as the edge strengthens.
				radius := int(2 * (1 - e))
				if radius < 1 {
					radius = 1
				}

				o := buf.Idx(x, y)
				var wsum float64
				var acc [3]float64
				for dy := -radius; dy <= radius; dy++ {
					ny := y + dy
					if ny < 0 || ny >= buf.H {
						continue
					}
					for dx := -radius; dx <= radius; dx++ {
						nx := x + dx
						if nx < 0 || nx >= buf.W {
							continue
						}
						no := snap.Idx(nx, ny)

						dist := math.Sqrt(float64(dx*dx + dy*dy))
						spatial := 1 / (1 + dist)
						diff := (math.Abs(float64(snap.Pix[no])-float64(snap.Pix[o])) +
							math.Abs(float64(snap.Pix[no+1])-float64(snap.Pix[o+1])) +
							math.Abs(float64(snap.Pix[no+2])-float64(snap.Pix[o+2]))) / 3
						w := spatial * math.Exp(-diff/p.IntensityDecay)

						wsum += w
						acc[0] += w * float64(snap.Pix[no])
						acc[1] += w * float64(snap.Pix[no+1])
						acc[2] += w * float64(snap.Pix[no+2])
					}
				}
				if wsum <= 0 {
					// Degenerate weight sum: keep the original value.
					continue
				}

				// Filtered share falls from 1.0 on flat pixels to the
				// floor as the edge approaches the threshold.
				blend := p.DenoiseBlendFloor
				if p.DenoiseEdgeThreshold > 0 {
					blend += (1 - p.DenoiseBlendFloor) * (1 - e/p.DenoiseEdgeThreshold)
				}
				for c := 0; c < 3; c++ {
					filtered := acc[c] / wsum
					orig := float64(snap.Pix[o+c])
					buf.Pix[o+c] = clamp8(blend*filtered + (1-blend)*orig)
				}
			}
		}
	})
}

// edgeMap returns one normalized gradient magnitude per pixel: a 3×3
// Sobel pair summed across the RGB channels, magnitude
// min(1, √(Gx²+Gy²)/norm). Boundary policy: border pixels have no full
// window and are recorded as 0 (flat), so a missing value can never
// read as a strong edge.
func edgeMap(buf *pixel.Buffer, norm float64, pool *workpool.Pool) []float32 {
	em := make([]float32, buf.W*buf.H)
	if buf.W < 3 || buf.H < 3 {
		return em
	}
	pool.RowRange(buf.H-2, func(y0, y1 int) {
		for y := y0 + 1; y < y1+1; y++ {
			for x := 1; x < buf.W-1; x++ {
				var gx, gy float64
				for c := 0; c < 3; c++ {
					tl := float64(buf.Pix[buf.Idx(x-1, y-1)+c])
					tc := float64(buf.Pix[buf.Idx(x, y-1)+c])
					tr := float64(buf.Pix[buf.Idx(x+1, y-1)+c])
					ml := float64(buf.Pix[buf.Idx(x-1, y)+c])
					mr := float64(buf.Pix[buf.Idx(x+1, y)+c])
					bl := float64(buf.Pix[buf.Idx(x-1, y+1)+c])
					bc := float64(buf.Pix[buf.Idx(x, y+1)+c])
					br := float64(buf.Pix[buf.Idx(x+1, y+1)+c])

					gx += (tr + 2*mr + br) - (tl + 2*ml + bl)
					gy += (bl + 2*bc + br) - (tl + 2*tc + tr)
				}
				mag := math.Sqrt(gx*gx+gy*gy) / norm
				if mag > 1 {
					mag = 1
				}
				em[y*buf.W+x] = float32(mag)
			}
		}
	})
	return em
}
