// Command batch-enhance runs the enhancement pipeline over every
// supported image under a directory tree, mirroring the layout into an
// output directory and writing a JSON summary of per-file metrics.
package main

import (
	"flag"
	"log"

	"github.com/luminance-labs/nightlift/internal/config"
	"github.com/luminance-labs/nightlift/internal/fsutil"
)

func main() {
	inDir := flag.String("in", "", "Directory tree of source images (jpeg, png, webp, qoi)")
	outDir := flag.String("out", "enhanced", "Output directory for enhanced JPEGs and the summary")
	profile := flag.String("profile", "", "Tuning profile (gentle, standard, night); defaults to the config's profile")
	configPath := flag.String("config", "", "Optional tuning config JSON file")
	quality := flag.Int("quality", 0, "JPEG quality override 1-100 (0 keeps the profile value)")
	workers := flag.Int("workers", 0, "Worker count override (0 keeps the profile value)")
	force := flag.Bool("force", false, "Overwrite outputs that already exist instead of skipping them")
	flag.Parse()

	if *inDir == "" {
		log.Fatal("No input directory given; use -in DIR")
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

	summary, err := RunBatch(fsutil.OSFileSystem{}, params, Options{
		InDir:   *inDir,
		OutDir:  *outDir,
		Force:   *force,
		Profile: cfg.GetProfile(),
	})
	if err != nil {
		log.Fatalf("Batch run failed: %v", err)
	}
	log.Printf("done: processed=%d skipped=%d failed=%d", summary.Processed, summary.Skipped, summary.Failed)
}
