package monitoring

import "testing"

// SetLogger swaps the active logger; nil installs a silent no-op.
func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("enhance run finished")
	if got != "enhance run finished" {
		t.Errorf("custom logger saw %q", got)
	}

	SetLogger(nil)
	got = ""
	Logf("dropped")
	if got != "" {
		t.Error("no-op logger still forwarded the call")
	}
}

// The default logger is callable out of the box.
func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf is nil by default")
	}
}
