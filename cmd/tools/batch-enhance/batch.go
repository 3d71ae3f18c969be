package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luminance-labs/nightlift/internal/codec"
	"github.com/luminance-labs/nightlift/internal/enhance"
	"github.com/luminance-labs/nightlift/internal/fsutil"
	"github.com/luminance-labs/nightlift/internal/metrics"
	"github.com/luminance-labs/nightlift/internal/security"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// summaryFile is written into the output root after every run.
const summaryFile = "summary.json"

// Options configures one batch run.
type Options struct {
	// InDir is the directory tree to walk for source images.
	InDir string
	// OutDir receives enhanced JPEGs mirroring the input layout.
	OutDir string
	// Force overwrites outputs that already exist; the default is to
	// skip them so interrupted runs can resume.
	Force bool
	// Profile is recorded in the summary; it does not change Params.
	Profile string
}

// FileResult is the per-file entry in the batch summary.
type FileResult struct {
	Source   string                `json:"source"`
	Output   string                `json:"output,omitempty"`
	Skipped  bool                  `json:"skipped,omitempty"`
	Error    string                `json:"error,omitempty"`
	Width    int                   `json:"width,omitempty"`
	Height   int                   `json:"height,omitempty"`
	PSNRdB   *float64              `json:"psnr_db,omitempty"`
	Before   *metrics.Summary      `json:"before,omitempty"`
	After    *metrics.Summary      `json:"after,omitempty"`
	Timings  []enhance.StageTiming `json:"timings,omitempty"`
	Duration time.Duration         `json:"duration_ns,omitempty"`
}

// Summary aggregates a whole batch run.
type Summary struct {
	Profile   string       `json:"profile"`
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Files     []FileResult `json:"files"`
}

// decodableExt reports whether path names a format Decode accepts.
func decodableExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".qoi":
		return true
	}
	return false
}

// outputName maps a source filename onto its enhanced JPEG name. The
// base name is sanitized so hostile names cannot carry separators or
// traversal components into the output tree.
func outputName(name string) string {
	safe := security.SanitizeFilename(name)
	return strings.TrimSuffix(safe, filepath.Ext(safe)) + ".jpg"
}

// RunBatch walks opts.InDir, enhances every decodable image into
// opts.OutDir and writes a JSON summary there. Per-file failures are
// recorded and the walk continues; only setup and summary-write errors
// abort the run. All output goes through fsys.
func RunBatch(fsys fsutil.FileSystem, params enhance.Params, opts Options) (*Summary, error) {
	info, err := os.Stat(opts.InDir)
	if err != nil {
		return nil, fmt.Errorf("input directory %s: %w", opts.InDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", opts.InDir)
	}
	if err := fsys.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", opts.OutDir, err)
	}
	absOut, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory %s: %w", opts.OutDir, err)
	}

	// One pool for the whole run; per-file pools would churn
	// goroutines for no benefit.
	pool := workpool.New(params.Workers)
	defer pool.Close()

	summary := &Summary{Profile: opts.Profile, Files: []FileResult{}}

	walkErr := filepath.WalkDir(opts.InDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// The output tree may nest inside the input tree; never
			// re-enhance our own outputs.
			if abs, err := filepath.Abs(path); err == nil && abs == absOut {
				return filepath.SkipDir
			}
			return nil
		}
		if !decodableExt(path) {
			return nil
		}

		rel, err := filepath.Rel(opts.InDir, path)
		if err != nil {
			return err
		}
		res := enhanceOne(fsys, pool, params, opts, path, rel)
		switch {
		case res.Error != "":
			summary.Failed++
		case res.Skipped:
			summary.Skipped++
		default:
			summary.Processed++
		}
		summary.Files = append(summary.Files, res)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", opts.InDir, walkErr)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	if err := fsys.WriteFile(filepath.Join(opts.OutDir, summaryFile), data, 0644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	return summary, nil
}

// enhanceOne processes a single source file. Errors are reported in
// the result, never returned; one bad file must not sink the batch.
func enhanceOne(fsys fsutil.FileSystem, pool *workpool.Pool, params enhance.Params, opts Options, path, rel string) FileResult {
	res := FileResult{Source: rel}

	// Symlinks inside the input tree may point anywhere; refuse to
	// read through them.
	if err := security.ValidatePathWithinDirectory(path, opts.InDir); err != nil {
		res.Error = err.Error()
		return res
	}

	relOut := filepath.Join(filepath.Dir(rel), outputName(filepath.Base(rel)))
	outPath := filepath.Join(opts.OutDir, relOut)
	if err := security.ValidatePathWithinDirectory(outPath, opts.OutDir); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Output = relOut

	if !opts.Force && fsys.Exists(outPath) {
		res.Skipped = true
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	src, _, err := codec.DecodeBytes(data)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	start := time.Now()
	result, err := enhance.Enhance(src, params, enhance.WithPool(pool))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Duration = time.Since(start)
	res.Width = src.W
	res.Height = src.H
	res.Timings = result.Timings

	cmp, err := metrics.Compare(src, result.Buffer)
	if err == nil {
		res.Before = &cmp.Before
		res.After = &cmp.After
		// +Inf (output identical to input) has no JSON encoding.
		if !math.IsInf(cmp.PSNRdB, 1) {
			psnr := cmp.PSNRdB
			res.PSNRdB = &psnr
		}
	}

	if dir := filepath.Dir(outPath); dir != opts.OutDir {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			res.Error = err.Error()
			return res
		}
	}
	if err := fsys.WriteFile(outPath, result.Encoded, 0644); err != nil {
		res.Error = err.Error()
		return res
	}

	return res
}
