package enhance

import "fmt"

// DecodeError reports an input buffer that cannot be interpreted as a
// valid raster: nil, zero dimensions, or a sample slice whose length
// does not match any recognised layout.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Reason
}

// UnsupportedFormatError reports a buffer whose sample count matches a
// recognisable layout other than 8-bit RGBA (wrong channel count or bit
// depth). The pipeline processes 4-channel 8-bit buffers only.
type UnsupportedFormatError struct {
	Channels int
	Depth    int
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported pixel format: %d channel(s) at %d bits, need 4 at 8", e.Channels, e.Depth)
}

// EncodeError reports that the enhanced buffer could not be serialized.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// PipelineError wraps any failure surfaced by Enhance with the phase it
// occurred in. errors.As reaches the underlying typed error.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("enhance: %s: %v", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
