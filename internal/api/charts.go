package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/luminance-labs/nightlift/internal/codec"
	"github.com/luminance-labs/nightlift/internal/httputil"
	"github.com/luminance-labs/nightlift/internal/metrics"
	"github.com/luminance-labs/nightlift/internal/store"
)

// echartsAssetsHost serves the chart JS bundle on the debug pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

type histSeries struct {
	name string
	hist metrics.Histogram
}

// handleRunHistogram renders before/after brightness histograms for
// one run as an HTML bar chart. Debugging-only endpoint (no auth).
func (s *Server) handleRunHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/debug/runs/")
	id, suffix, found := strings.Cut(path, "/")
	if !found || suffix != "histogram" || strings.TrimSpace(id) == "" {
		httputil.NotFound(w, "unknown debug resource")
		return
	}

	run, err := s.store.GetRun(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load run: %v", err))
		return
	}

	// The original upload is optional; the enhanced image is not.
	var series []histSeries
	if h, err := runHistogram(s.store.Original, id); err == nil {
		series = append(series, histSeries{name: "original", hist: h})
	}
	enhanced, err := runHistogram(s.store.Enhanced, id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to compute histogram: %v", err))
		return
	}
	series = append(series, histSeries{name: "enhanced", hist: enhanced})

	labels := make([]string, 0, enhanced.Bins())
	for i := 0; i < enhanced.Bins(); i++ {
		labels = append(labels, fmt.Sprintf("%.0f", enhanced.Center(i)))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Brightness Histogram",
			Theme:      "dark",
			Width:      "1200px",
			Height:     "600px",
			AssetsHost: echartsAssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Brightness Histogram",
			Subtitle: fmt.Sprintf("run=%s source=%s %dx%d profile=%s",
				run.ID, run.SourceName, run.Width, run.Height, run.Profile),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	bar.SetXAxis(labels)
	for _, sr := range series {
		data := make([]opts.BarData, 0, sr.hist.Bins())
		for _, c := range sr.hist.Counts {
			data = append(data, opts.BarData{Value: c})
		}
		bar.AddSeries(sr.name, data)
	}

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// runHistogram loads one image column and bins its brightness.
func runHistogram(fetch func(string) ([]byte, error), id string) (metrics.Histogram, error) {
	data, err := fetch(id)
	if err != nil {
		return metrics.Histogram{}, err
	}
	if len(data) == 0 {
		return metrics.Histogram{}, fmt.Errorf("no image bytes")
	}

	buf, _, err := codec.DecodeBytes(data)
	if err != nil {
		return metrics.Histogram{}, err
	}
	return metrics.HistogramOf(buf, metrics.DefaultBins), nil
}
