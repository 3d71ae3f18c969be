package enhance

import "testing"

// The standard profile must always validate.
func TestDefaultParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("DefaultParams().Validate() = %v", err)
	}
}

// Each parameter is checked against its documented range.
func TestParamsValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"curve strength zero", func(p *Params) { p.CurveStrength = 0 }},
		{"curve strength above one", func(p *Params) { p.CurveStrength = 1.2 }},
		{"iterations zero", func(p *Params) { p.CurveIterations = 0 }},
		{"iterations nine", func(p *Params) { p.CurveIterations = 9 }},
		{"negative contrast factor", func(p *Params) { p.LocalContrastFactor = -0.1 }},
		{"contrast factor above one", func(p *Params) { p.LocalContrastFactor = 1.5 }},
		{"negative saturation", func(p *Params) { p.SaturationFactor = -0.2 }},
		{"saturation above one", func(p *Params) { p.SaturationFactor = 1.1 }},
		{"negative sharpen amount", func(p *Params) { p.SharpenAmount = -1 }},
		{"sharpen amount above four", func(p *Params) { p.SharpenAmount = 4.5 }},
		{"sharpen blend above one", func(p *Params) { p.SharpenBlend = 1.01 }},
		{"edge threshold above one", func(p *Params) { p.DenoiseEdgeThreshold = 1.1 }},
		{"negative blend floor", func(p *Params) { p.DenoiseBlendFloor = -0.2 }},
		{"zero edge normalization", func(p *Params) { p.EdgeNormalization = 0 }},
		{"zero intensity decay", func(p *Params) { p.IntensityDecay = 0 }},
		{"unknown tone map variant", func(p *Params) { p.ToneMapVariant = "filmic" }},
		{"avg threshold above range", func(p *Params) { p.ToneMapAvgThreshold = 300 }},
		{"negative max threshold", func(p *Params) { p.ToneMapMaxThreshold = -1 }},
		{"zero gamma", func(p *Params) { p.ToneMapGamma = 0 }},
		{"zero target brightness", func(p *Params) { p.ToneMapTargetBrightness = 0 }},
		{"quality zero", func(p *Params) { p.EncodeQuality = 0 }},
		{"quality above hundred", func(p *Params) { p.EncodeQuality = 101 }},
		{"negative workers", func(p *Params) { p.Workers = -1 }},
	}
	for _, tt := range tests {
		p := DefaultParams()
		tt.mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: Validate accepted the value", tt.name)
		}
	}
}
