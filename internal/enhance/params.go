package enhance

import "fmt"

// ToneMapVariant selects the conditional remap operator applied by the
// tone-mapping stage.
type ToneMapVariant string

const (
	// ToneMapReinhard compresses each channel with x/(1+x) followed by
	// gamma correction.
	ToneMapReinhard ToneMapVariant = "reinhard"

	// ToneMapAdaptiveGain applies one multiplicative gain derived from
	// the average brightness, clamped to [0.8, 1.2].
	ToneMapAdaptiveGain ToneMapVariant = "adaptive-gain"
)

// Params holds the resolved tuning values for one pipeline invocation.
// The config package resolves profiles and overrides into populated
// instances; DefaultParams is the "standard" profile.
type Params struct {
	// CurveStrength is the exposure-lift strength α in
	// x' = x + α·x·(1−x), applied on normalized samples. Range (0, 1].
	// Default: 0.8.
	CurveStrength float64 `json:"curve_strength"`

	// CurveIterations is how many times the curve is composed with
	// itself. Compounding lifts shadows harder; the default is a single
	// pass. Default: 1.
	CurveIterations int `json:"curve_iterations"`

	// LocalContrastFactor pushes interior pixels away from their
	// 8-neighbour mean after the final curve iteration. Zero disables
	// the pass. Default: 0.2.
	LocalContrastFactor float64 `json:"local_contrast_factor"`

	// SaturationFactor is the base colour-lift factor; the per-pixel
	// factor shrinks as a pixel's existing saturation grows and is
	// bounded to [0.05, 0.5]. Default: 0.25.
	SaturationFactor float64 `json:"saturation_factor"`

	// SharpenAmount is the base unsharp gain before the local-variance
	// scale (0.5×–2.0×) is applied. Default: 1.0.
	SharpenAmount float64 `json:"sharpen_amount"`

	// SharpenBlend weights the raw convolution result against the
	// pre-convolution value; 0.7 keeps 70% convolution, 30% original.
	// Default: 0.7.
	SharpenBlend float64 `json:"sharpen_blend"`

	// DenoiseEdgeThreshold is the edge magnitude at or above which a
	// pixel passes through the denoiser untouched. Default: 0.3.
	DenoiseEdgeThreshold float64 `json:"denoise_edge_threshold"`

	// DenoiseBlendFloor is the minimum share of the filtered estimate in
	// the final blend; near-edge pixels always keep at least
	// 1−floor of their original value. Default: 0.3.
	DenoiseBlendFloor float64 `json:"denoise_blend_floor"`

	// EdgeNormalization divides the raw Sobel magnitude before clamping
	// to [0, 1]. Default: 1200.
	EdgeNormalization float64 `json:"edge_normalization"`

	// IntensityDecay is the exponential decay scale for the denoiser's
	// intensity-similarity weight. Default: 30.
	IntensityDecay float64 `json:"intensity_decay"`

	// ToneMapVariant selects the remap operator. Default: reinhard.
	ToneMapVariant ToneMapVariant `json:"tone_map_variant"`

	// ToneMapAvgThreshold gates the remap: it applies only when the
	// average brightness exceeds this value (or the max threshold
	// trips). Default: 100.
	ToneMapAvgThreshold float64 `json:"tone_map_avg_threshold"`

	// ToneMapMaxThreshold gates the remap on peak brightness.
	// Default: 240.
	ToneMapMaxThreshold float64 `json:"tone_map_max_threshold"`

	// ToneMapGamma is the gamma applied after the Reinhard compression
	// (x^(1/γ)). Default: 1.0.
	ToneMapGamma float64 `json:"tone_map_gamma"`

	// ToneMapTargetBrightness is the numerator of the adaptive gain,
	// gain = clamp(target/(avg+1), 0.8, 1.2). Default: 118.
	ToneMapTargetBrightness float64 `json:"tone_map_target_brightness"`

	// EncodeQuality is the JPEG quality (1–100) for the encoded result.
	// Default: 92.
	EncodeQuality int `json:"encode_quality"`

	// Workers sets the stage worker count; 0 selects runtime.NumCPU().
	// Output bytes are identical for every worker count.
	Workers int `json:"workers"`
}

// DefaultParams returns the "standard" profile.
func DefaultParams() Params {
	return Params{
		CurveStrength:           0.8,
		CurveIterations:         1,
		LocalContrastFactor:     0.2,
		SaturationFactor:        0.25,
		SharpenAmount:           1.0,
		SharpenBlend:            0.7,
		DenoiseEdgeThreshold:    0.3,
		DenoiseBlendFloor:       0.3,
		EdgeNormalization:       1200,
		IntensityDecay:          30,
		ToneMapVariant:          ToneMapReinhard,
		ToneMapAvgThreshold:     100,
		ToneMapMaxThreshold:     240,
		ToneMapGamma:            1.0,
		ToneMapTargetBrightness: 118,
		EncodeQuality:           92,
		Workers:                 0,
	}
}

// Validate checks that every parameter sits in its legal range.
func (p Params) Validate() error {
	if p.CurveStrength <= 0 || p.CurveStrength > 1 {
		return fmt.Errorf("curve_strength must be in (0, 1], got %v", p.CurveStrength)
	}
	if p.CurveIterations < 1 || p.CurveIterations > 8 {
		return fmt.Errorf("curve_iterations must be in [1, 8], got %d", p.CurveIterations)
	}
	if p.LocalContrastFactor < 0 || p.LocalContrastFactor > 1 {
		return fmt.Errorf("local_contrast_factor must be in [0, 1], got %v", p.LocalContrastFactor)
	}
	if p.SaturationFactor < 0 || p.SaturationFactor > 1 {
		return fmt.Errorf("saturation_factor must be in [0, 1], got %v", p.SaturationFactor)
	}
	if p.SharpenAmount < 0 || p.SharpenAmount > 4 {
		return fmt.Errorf("sharpen_amount must be in [0, 4], got %v", p.SharpenAmount)
	}
	if p.SharpenBlend < 0 || p.SharpenBlend > 1 {
		return fmt.Errorf("sharpen_blend must be in [0, 1], got %v", p.SharpenBlend)
	}
	if p.DenoiseEdgeThreshold < 0 || p.DenoiseEdgeThreshold > 1 {
		return fmt.Errorf("denoise_edge_threshold must be in [0, 1], got %v", p.DenoiseEdgeThreshold)
	}
	if p.DenoiseBlendFloor < 0 || p.DenoiseBlendFloor > 1 {
		return fmt.Errorf("denoise_blend_floor must be in [0, 1], got %v", p.DenoiseBlendFloor)
	}
	if p.EdgeNormalization <= 0 {
		return fmt.Errorf("edge_normalization must be positive, got %v", p.EdgeNormalization)
	}
	if p.IntensityDecay <= 0 {
		return fmt.Errorf("intensity_decay must be positive, got %v", p.IntensityDecay)
	}
	switch p.ToneMapVariant {
	case ToneMapReinhard, ToneMapAdaptiveGain:
	default:
		return fmt.Errorf("tone_map_variant must be %q or %q, got %q", ToneMapReinhard, ToneMapAdaptiveGain, p.ToneMapVariant)
	}
	if p.ToneMapAvgThreshold < 0 || p.ToneMapAvgThreshold > 255 {
		return fmt.Errorf("tone_map_avg_threshold must be in [0, 255], got %v", p.ToneMapAvgThreshold)
	}
	if p.ToneMapMaxThreshold < 0 || p.ToneMapMaxThreshold > 255 {
		return fmt.Errorf("tone_map_max_threshold must be in [0, 255], got %v", p.ToneMapMaxThreshold)
	}
	if p.ToneMapGamma <= 0 {
		return fmt.Errorf("tone_map_gamma must be positive, got %v", p.ToneMapGamma)
	}
	if p.ToneMapTargetBrightness <= 0 || p.ToneMapTargetBrightness > 255 {
		return fmt.Errorf("tone_map_target_brightness must be in (0, 255], got %v", p.ToneMapTargetBrightness)
	}
	if p.EncodeQuality < 1 || p.EncodeQuality > 100 {
		return fmt.Errorf("encode_quality must be in [1, 100], got %d", p.EncodeQuality)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", p.Workers)
	}
	return nil
}
