package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/luminance-labs/nightlift/internal/codec"
	"github.com/luminance-labs/nightlift/internal/config"
	"github.com/luminance-labs/nightlift/internal/enhance"
	"github.com/luminance-labs/nightlift/internal/fsutil"
	"github.com/luminance-labs/nightlift/internal/pixel"
)

// testParams resolves the standard profile with a small fixed worker
// count so runs stay fast and deterministic.
func testParams(t *testing.T) enhance.Params {
	t.Helper()
	params, err := config.EmptyTuningConfig().Params()
	if err != nil {
		t.Fatalf("resolve params: %v", err)
	}
	params.Workers = 2
	return params
}

// writePNG encodes a small dark gradient to path.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	buf := pixel.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := buf.Idx(x, y)
			buf.Pix[i+0] = uint8(x * 5)
			buf.Pix[i+1] = uint8(y * 7)
			buf.Pix[i+2] = uint8((x + y) * 3)
			buf.Pix[i+3] = 255
		}
	}
	data, err := codec.Encode(buf, "png", 0)
	if err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// resultsBySource indexes summary entries for order-independent checks.
func resultsBySource(s *Summary) map[string]FileResult {
	m := make(map[string]FileResult, len(s.Files))
	for _, f := range s.Files {
		m[f.Source] = f
	}
	return m
}

// TestRunBatch enhances a small tree and checks outputs, summary
// counters and per-file metrics.
func TestRunBatch(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	fsys := fsutil.OSFileSystem{}

	writePNG(t, filepath.Join(inDir, "a.png"), 16, 12)
	if err := os.MkdirAll(filepath.Join(inDir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writePNG(t, filepath.Join(inDir, "sub", "b.png"), 10, 10)
	if err := os.WriteFile(filepath.Join(inDir, "notes.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	summary, err := RunBatch(fsys, testParams(t), Options{InDir: inDir, OutDir: outDir, Profile: "standard"})
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if summary.Processed != 2 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("counters = %d/%d/%d, want 2/0/0", summary.Processed, summary.Skipped, summary.Failed)
	}

	for _, out := range []string{"a.jpg", filepath.Join("sub", "b.jpg")} {
		data, err := fsys.ReadFile(filepath.Join(outDir, out))
		if err != nil {
			t.Fatalf("read output %s: %v", out, err)
		}
		if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
			t.Errorf("output %s is not JPEG", out)
		}
	}

	bySource := resultsBySource(summary)
	a, ok := bySource["a.png"]
	if !ok {
		t.Fatal("summary has no entry for a.png")
	}
	if a.Output != "a.jpg" {
		t.Errorf("a.png output = %q, want a.jpg", a.Output)
	}
	if a.Width != 16 || a.Height != 12 {
		t.Errorf("a.png dimensions = %dx%d, want 16x12", a.Width, a.Height)
	}
	if len(a.Timings) != 4 {
		t.Errorf("a.png has %d stage timings, want 4", len(a.Timings))
	}
	if a.Before == nil || a.After == nil {
		t.Error("a.png missing before/after stats")
	}
	if a.PSNRdB == nil {
		t.Error("a.png missing PSNR; enhancement should change a dark gradient")
	}

	raw, err := fsys.ReadFile(filepath.Join(outDir, summaryFile))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var decoded Summary
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if decoded.Profile != "standard" || len(decoded.Files) != 2 {
		t.Errorf("decoded summary = profile %q with %d files, want standard with 2", decoded.Profile, len(decoded.Files))
	}
}

// TestRunBatchSkipsExisting verifies resume semantics and the -force
// override.
func TestRunBatchSkipsExisting(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	fsys := fsutil.OSFileSystem{}

	writePNG(t, filepath.Join(inDir, "a.png"), 8, 8)
	if err := fsys.WriteFile(filepath.Join(outDir, "a.jpg"), []byte("stale"), 0644); err != nil {
		t.Fatalf("seed output: %v", err)
	}

	summary, err := RunBatch(fsys, testParams(t), Options{InDir: inDir, OutDir: outDir})
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 0 {
		t.Fatalf("counters = %d processed %d skipped, want 0/1", summary.Processed, summary.Skipped)
	}
	data, err := fsys.ReadFile(filepath.Join(outDir, "a.jpg"))
	if err != nil || string(data) != "stale" {
		t.Error("skipped output was rewritten")
	}

	summary, err = RunBatch(fsys, testParams(t), Options{InDir: inDir, OutDir: outDir, Force: true})
	if err != nil {
		t.Fatalf("RunBatch force error: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("force run processed = %d, want 1", summary.Processed)
	}
	data, err = fsys.ReadFile(filepath.Join(outDir, "a.jpg"))
	if err != nil || len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("force run did not replace the stale output")
	}
}

// TestRunBatchRecordsFailures checks that one bad file does not sink
// the run.
func TestRunBatchRecordsFailures(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	fsys := fsutil.OSFileSystem{}

	writePNG(t, filepath.Join(inDir, "good.png"), 8, 8)
	if err := os.WriteFile(filepath.Join(inDir, "bad.png"), []byte("not a png"), 0644); err != nil {
		t.Fatalf("write bad input: %v", err)
	}

	summary, err := RunBatch(fsys, testParams(t), Options{InDir: inDir, OutDir: outDir})
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("counters = %d processed %d failed, want 1/1", summary.Processed, summary.Failed)
	}

	bad := resultsBySource(summary)["bad.png"]
	if bad.Error == "" {
		t.Error("bad.png entry has no error")
	}
	if fsys.Exists(filepath.Join(outDir, "bad.jpg")) {
		t.Error("bad.png produced an output file")
	}
}

// TestRunBatchRejectsSymlinkEscape verifies that symlinked inputs
// pointing outside the tree are refused rather than read.
func TestRunBatchRejectsSymlinkEscape(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	outside := t.TempDir()

	writePNG(t, filepath.Join(outside, "secret.png"), 8, 8)
	if err := os.Symlink(filepath.Join(outside, "secret.png"), filepath.Join(inDir, "leak.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	summary, err := RunBatch(fsutil.OSFileSystem{}, testParams(t), Options{InDir: inDir, OutDir: outDir})
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	if entry := resultsBySource(summary)["leak.png"]; entry.Error == "" {
		t.Error("symlinked input was not rejected")
	}
}

// TestRunBatchMissingInput rejects a nonexistent input root.
func TestRunBatchMissingInput(t *testing.T) {
	_, err := RunBatch(fsutil.OSFileSystem{}, testParams(t), Options{
		InDir:  filepath.Join(t.TempDir(), "nope"),
		OutDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for missing input directory")
	}
}

// TestOutputName maps source names onto sanitized JPEG names.
func TestOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"frame.png", "frame.jpg"},
		{"night shot.webp", "night_shot.jpg"},
		{"clip.qoi", "clip.jpg"},
		{"already.jpg", "already.jpg"},
	}
	for _, tt := range tests {
		if got := outputName(tt.in); got != tt.want {
			t.Errorf("outputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestDecodableExt filters by extension, case-insensitively.
func TestDecodableExt(t *testing.T) {
	for _, p := range []string{"a.jpg", "b.JPEG", "c.png", "d.webp", "e.qoi"} {
		if !decodableExt(p) {
			t.Errorf("decodableExt(%q) = false, want true", p)
		}
	}
	for _, p := range []string{"a.txt", "b.heic", "c", "d.jpg.zst"} {
		if decodableExt(p) {
			t.Errorf("decodableExt(%q) = true, want false", p)
		}
	}
}
