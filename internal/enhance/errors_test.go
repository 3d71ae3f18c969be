package enhance

import (
	"errors"
	"strings"
	"testing"
)

// Error strings carry enough detail to act on without unwrapping.
func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&DecodeError{Reason: "nil buffer"}, "decode: nil buffer"},
		{&UnsupportedFormatError{Channels: 3, Depth: 8}, "3 channel(s) at 8 bits"},
		{&EncodeError{Format: "jpeg", Err: errors.New("disk full")}, "encode jpeg: disk full"},
		{&PipelineError{Phase: "validate", Err: &DecodeError{Reason: "empty pixel data"}}, "enhance: validate: decode: empty pixel data"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); !strings.Contains(got, tt.want) {
			t.Errorf("%T.Error() = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

// PipelineError and EncodeError unwrap all the way down to the root
// cause.
func TestErrorUnwrapChain(t *testing.T) {
	root := errors.New("disk full")
	ee := &EncodeError{Format: "jpeg", Err: root}
	pe := &PipelineError{Phase: "encode", Err: ee}

	if !errors.Is(pe, root) {
		t.Error("errors.Is cannot reach the root cause")
	}
	var target *EncodeError
	if !errors.As(pe, &target) {
		t.Fatal("errors.As cannot reach *EncodeError")
	}
	if target.Format != "jpeg" {
		t.Errorf("Format = %q, want jpeg", target.Format)
	}
}
