package enhance

import (
	"fmt"
	"time"

	"github.com/luminance-labs/nightlift/internal/codec"
	"github.com/luminance-labs/nightlift/internal/pixel"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// Stage names as reported to progress callbacks and timing entries.
const (
	StageCurve   = "curve"
	StageRefine  = "refine"
	StageDenoise = "denoise"
	StageToneMap = "tonemap"
)

// ProgressFunc is called after each stage finishes. done counts
// completed stages and total is the number of stages in the run.
// Callbacks run on the goroutine that called Enhance.
type ProgressFunc func(stage string, done, total int)

// StageTiming records wall time spent in one stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// Result holds the output of one enhancement run.
type Result struct {
	// Buffer is the enhanced image. It never aliases the input.
	Buffer *pixel.Buffer
	// Encoded is the JPEG serialization of Buffer.
	Encoded []byte
	// Stats is the brightness survey taken before tone mapping.
	Stats BrightnessStats
	// Timings lists per-stage durations in execution order.
	Timings []StageTiming
}

type options struct {
	progress ProgressFunc
	pool     *workpool.Pool
}

// Option adjusts how a run executes without changing Params.
type Option func(*options)

// WithProgress registers a per-stage completion callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// WithPool runs the stages on a caller-owned worker pool, which lets a
// server share one pool across requests. The pool is not closed here;
// ownership stays with the caller.
func WithPool(p *workpool.Pool) Option {
	return func(o *options) { o.pool = p }
}

// Enhance runs the four-stage pipeline over a copy of src and returns
// the enhanced buffer together with its JPEG encoding. src is never
// modified. Stages run in fixed order with a full barrier between
// them; rows within a stage are processed concurrently.
func Enhance(src *pixel.Buffer, p Params, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := p.Validate(); err != nil {
		return nil, &PipelineError{Phase: "params", Err: err}
	}
	if err := validateBuffer(src); err != nil {
		return nil, &PipelineError{Phase: "validate", Err: err}
	}

	buf := src.Clone()

	pool := o.pool
	if pool == nil {
		pool = workpool.New(p.Workers)
		defer pool.Close()
	}

	var stats BrightnessStats
	passes := []struct {
		name string
		run  func()
	}{
		{StageCurve, func() { curveStage(buf, p, pool) }},
		{StageRefine, func() { refineStage(buf, p, pool) }},
		{StageDenoise, func() { denoiseStage(buf, p, pool) }},
		{StageToneMap, func() { stats = toneMapStage(buf, p, pool) }},
	}

	opsf("enhancing %dx%d image on %d workers", buf.W, buf.H, pool.Workers())
	timings := make([]StageTiming, 0, len(passes))
	for i, pass := range passes {
		start := time.Now()
		pass.run()
		d := time.Since(start)
		timings = append(timings, StageTiming{Stage: pass.name, Duration: d})
		tracef("stage %s finished in %s", pass.name, d)
		if o.progress != nil {
			o.progress(pass.name, i+1, len(passes))
		}
	}

	encoded, err := codec.EncodeJPEG(buf, p.EncodeQuality)
	if err != nil {
		return nil, &PipelineError{Phase: "encode", Err: &EncodeError{Format: "jpeg", Err: err}}
	}

	return &Result{Buffer: buf, Encoded: encoded, Stats: stats, Timings: timings}, nil
}

// validateBuffer rejects buffers the stages cannot process. Lengths
// that match a recognizable non-RGBA8 layout get an
// UnsupportedFormatError naming that layout; anything else is treated
// as corrupt input.
func validateBuffer(b *pixel.Buffer) error {
	if b == nil {
		return &DecodeError{Reason: "nil buffer"}
	}
	if b.W <= 0 || b.H <= 0 {
		return &DecodeError{Reason: fmt.Sprintf("invalid dimensions %dx%d", b.W, b.H)}
	}
	px := b.W * b.H
	want := px * pixel.Channels
	switch got := len(b.Pix); {
	case got == want:
		return nil
	case got == 0:
		return &DecodeError{Reason: "empty pixel data"}
	case got == px:
		return &UnsupportedFormatError{Channels: 1, Depth: 8}
	case got == 3*px:
		return &UnsupportedFormatError{Channels: 3, Depth: 8}
	case got == 8*px:
		return &UnsupportedFormatError{Channels: 4, Depth: 16}
	default:
		return &DecodeError{Reason: fmt.Sprintf("pixel data is %d bytes, want %d for %dx%d", got, want, b.W, b.H)}
	}
}
