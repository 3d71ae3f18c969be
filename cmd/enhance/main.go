// Command enhance runs the low-light enhancement pipeline over a single
// image. The input may be a local file or an HTTP(S) URL; the output
// format follows the -out extension (jpg, png or qoi).
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luminance-labs/nightlift/internal/codec"
	"github.com/luminance-labs/nightlift/internal/config"
	"github.com/luminance-labs/nightlift/internal/enhance"
	"github.com/luminance-labs/nightlift/internal/fsutil"
	"github.com/luminance-labs/nightlift/internal/httputil"
	"github.com/luminance-labs/nightlift/internal/metrics"
	"github.com/luminance-labs/nightlift/internal/version"
)

// isRemote reports whether in names an HTTP(S) resource rather than a
// local file.
func isRemote(in string) bool {
	return strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://")
}

// readInput loads the source image bytes from a file path or a URL.
func readInput(in string, maxBytes int64) ([]byte, error) {
	if isRemote(in) {
		client := httputil.NewStandardClient(&http.Client{Timeout: 60 * time.Second})
		return httputil.Fetch(client, in, maxBytes)
	}
	return os.ReadFile(in)
}

// sourceName reduces in to a bare filename for plot titles and default
// output naming. URLs keep only the last path element.
func sourceName(in string) string {
	if isRemote(in) {
		if u, err := url.Parse(in); err == nil {
			in = u.Path
		}
	}
	name := filepath.Base(in)
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

// defaultOutput derives the output path when -out is not given: the
// source filename with an _enhanced suffix, written as JPEG into the
// working directory.
func defaultOutput(in string) string {
	name := sourceName(in)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = "image"
	}
	return stem + "_enhanced.jpg"
}

// outputFormat maps the output extension onto an encoder name.
func outputFormat(out string) string {
	switch strings.ToLower(filepath.Ext(out)) {
	case ".png":
		return "png"
	case ".qoi":
		return "qoi"
	default:
		return "jpeg"
	}
}

// printSummary writes one before/after stats line pair plus the PSNR.
func printSummary(cmp metrics.Comparison) {
	printSummaryLine("before", cmp.Before)
	printSummaryLine("after", cmp.After)
	if math.IsInf(cmp.PSNRdB, 1) {
		fmt.Println("psnr:   inf (output identical to input)")
	} else {
		fmt.Printf("psnr:   %.2f dB\n", cmp.PSNRdB)
	}
}

func printSummaryLine(label string, s metrics.Summary) {
	fmt.Printf("%-7s mean=%.2f stddev=%.2f median=%.2f p05=%.2f p95=%.2f min=%.0f max=%.0f\n",
		label+":", s.Mean, s.StdDev, s.Median, s.P05, s.P95, s.Min, s.Max)
}

func main() {
	in := flag.String("in", "", "Input image: file path or http(s) URL (jpeg, png, webp or qoi)")
	out := flag.String("out", "", "Output path; defaults to <input>_enhanced.jpg")
	profile := flag.String("profile", "", "Tuning profile (gentle, standard, night); defaults to the config's profile")
	configPath := flag.String("config", "", "Optional tuning config JSON file")
	quality := flag.Int("quality", 0, "JPEG quality override 1-100 (0 keeps the profile value)")
	workers := flag.Int("workers", 0, "Worker count override (0 keeps the profile value)")
	stats := flag.Bool("stats", false, "Print before/after brightness statistics and PSNR")
	plotDir := flag.String("plot", "", "Write a brightness-histogram PNG into this directory")
	raw := flag.Bool("raw", false, "Also write the lossless raw-buffer sidecar next to the output")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("nightlift %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *in == "" {
		log.Fatal("No input given; use -in FILE or -in URL")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Could not load tuning config %s: %v", *configPath, err)
		}
		cfg = loaded
	}
	if *profile != "" {
		cfg.Profile = profile
	}
	params, err := cfg.Params()
	if err != nil {
		log.Fatalf("Could not resolve tuning parameters: %v", err)
	}
	if *quality > 0 {
		params.EncodeQuality = *quality
	}
	if *workers > 0 {
		params.Workers = *workers
	}

	data, err := readInput(*in, cfg.GetMaxUploadBytes())
	if err != nil {
		log.Fatalf("Could not read input %s: %v", *in, err)
	}
	src, format, err := codec.DecodeBytes(data)
	if err != nil {
		log.Fatalf("Could not decode input %s: %v", *in, err)
	}
	log.Printf("Loaded %s: %dx%d %s (%d bytes), profile %s", sourceName(*in), src.W, src.H, format, len(data), cfg.GetProfile())

	start := time.Now()
	result, err := enhance.Enhance(src, params, enhance.WithProgress(func(stage string, done, total int) {
		log.Printf("Stage %s done (%d/%d)", stage, done, total)
	}))
	if err != nil {
		log.Fatalf("Enhancement failed: %v", err)
	}
	log.Printf("Enhanced in %v", time.Since(start).Round(time.Millisecond))

	outPath := *out
	if outPath == "" {
		outPath = defaultOutput(*in)
	}
	encoded := result.Encoded
	if f := outputFormat(outPath); f != "jpeg" {
		encoded, err = codec.Encode(result.Buffer, f, params.EncodeQuality)
		if err != nil {
			log.Fatalf("Could not encode %s output: %v", f, err)
		}
	}
	if err := os.WriteFile(outPath, encoded, 0644); err != nil {
		log.Fatalf("Could not write output %s: %v", outPath, err)
	}
	log.Printf("Wrote %s (%d bytes)", outPath, len(encoded))

	if *raw {
		rawPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".nlraw"
		rawData, err := codec.EncodeRaw(result.Buffer)
		if err != nil {
			log.Fatalf("Could not encode raw sidecar: %v", err)
		}
		if err := os.WriteFile(rawPath, rawData, 0644); err != nil {
			log.Fatalf("Could not write raw sidecar %s: %v", rawPath, err)
		}
		log.Printf("Wrote %s (%d bytes)", rawPath, len(rawData))
	}

	if *stats {
		cmp, err := metrics.Compare(src, result.Buffer)
		if err != nil {
			log.Fatalf("Could not compute statistics: %v", err)
		}
		printSummary(cmp)
	}

	if *plotDir != "" {
		fsys := fsutil.OSFileSystem{}
		if err := fsys.MkdirAll(*plotDir, 0755); err != nil {
			log.Fatalf("Could not create plot directory %s: %v", *plotDir, err)
		}
		name := sourceName(*in)
		plotPath := filepath.Join(*plotDir, metrics.PlotFilename(name, time.Now()))
		err := metrics.WriteHistogramPlot(fsys, plotPath, "Brightness "+name,
			metrics.HistogramSeries{Label: "original", Hist: metrics.HistogramOf(src, metrics.DefaultBins)},
			metrics.HistogramSeries{Label: "enhanced", Hist: metrics.HistogramOf(result.Buffer, metrics.DefaultBins)},
		)
		if err != nil {
			log.Fatalf("Could not write histogram plot: %v", err)
		}
		log.Printf("Wrote %s", plotPath)
	}
}
