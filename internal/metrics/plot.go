package metrics

import (
	"bytes"
	"fmt"
	"image/color"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/luminance-labs/nightlift/internal/fsutil"
)

// HistogramSeries names one histogram line on a comparison plot.
type HistogramSeries struct {
	Label string
	Hist  Histogram
}

// WriteHistogramPlot renders the series as brightness-vs-count lines
// and writes a PNG to file through fsys. An empty title falls back to
// "Brightness Histogram". The parent directory must already exist.
func WriteHistogramPlot(fsys fsutil.FileSystem, file, title string, series ...HistogramSeries) error {
	if len(series) == 0 {
		return fmt.Errorf("metrics: no histogram series to plot")
	}
	if title == "" {
		title = "Brightness Histogram"
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Brightness"
	p.Y.Label.Text = "Pixels"

	colors := generateColors(len(series))
	for i, s := range series {
		pts := make(plotter.XYs, 0, s.Hist.Bins())
		for j, c := range s.Hist.Counts {
			pts = append(pts, plotter.XY{X: s.Hist.Center(j), Y: c})
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("histogram line %q: %w", s.Label, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Label, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render histogram plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render histogram plot: %w", err)
	}
	if err := fsys.WriteFile(file, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write histogram plot: %w", err)
	}
	return nil
}

// FormatTimestamp generates a timestamp string for plot filenames.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// PlotFilename builds a histogram plot filename from a source image
// path, e.g. "alley.jpg" -> "alley_20260105_231409_hist.png".
func PlotFilename(srcFile string, t time.Time) string {
	base := filepath.Base(srcFile)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	if stem == "" || stem == "." {
		stem = "frame"
	}
	return fmt.Sprintf("%s_%s_hist.png", stem, FormatTimestamp(t))
}

// generateColors creates a palette of distinct colors for the series
// lines.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
