package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"

	"github.com/luminance-labs/nightlift/internal/codec"
	"github.com/luminance-labs/nightlift/internal/enhance"
	"github.com/luminance-labs/nightlift/internal/httputil"
	"github.com/luminance-labs/nightlift/internal/metrics"
	"github.com/luminance-labs/nightlift/internal/pixel"
	"github.com/luminance-labs/nightlift/internal/security"
	"github.com/luminance-labs/nightlift/internal/store"
)

// multipartMemory caps the in-memory portion of multipart parsing;
// larger parts spill to temp files.
const multipartMemory = 8 << 20

// runStats is the stats_json document persisted with each run.
type runStats struct {
	Before  metrics.Summary         `json:"before"`
	After   metrics.Summary         `json:"after"`
	PSNRdB  *float64                `json:"psnr_db,omitempty"`
	ToneMap enhance.BrightnessStats `json:"tonemap"`
}

// handleEnhance accepts an image upload, runs the pipeline, persists
// the run, and returns its metadata.
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.GetMaxUploadBytes())

	data, name, profile, err := readUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit))
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(data) == 0 {
		httputil.BadRequest(w, "empty upload")
		return
	}

	src, format, err := codec.DecodeBytes(data)
	if err != nil {
		var unsupported *codec.UnsupportedInputError
		if errors.As(err, &unsupported) {
			httputil.WriteJSONError(w, http.StatusUnsupportedMediaType, unsupported.Error())
			return
		}
		httputil.BadRequest(w, fmt.Sprintf("failed to decode image: %v", err))
		return
	}

	params, profileName, err := s.paramsFor(profile)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	result, err := enhance.Enhance(src, params, enhance.WithPool(s.pool))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("enhancement failed: %v", err))
		return
	}

	run, err := s.persistRun(name, format, profileName, src, data, params, result)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to persist run: %v", err))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, run)
}

// readUpload accepts either a multipart form with an "image" field or
// a raw image body. The profile may arrive as a query or form value.
func readUpload(r *http.Request) ([]byte, string, string, error) {
	profile := r.URL.Query().Get("profile")

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, "", "", fmt.Errorf("failed to parse multipart form: %w", err)
		}
		if profile == "" {
			profile = r.FormValue("profile")
		}

		f, hdr, err := r.FormFile("image")
		if err != nil {
			return nil, "", "", fmt.Errorf("missing 'image' form field: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to read upload: %w", err)
		}
		return data, security.SanitizeFilename(hdr.Filename), profile, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", "", err
	}
	return data, "", profile, nil
}

// paramsFor resolves the effective parameters. An explicit request
// profile replaces the tuning file's profile selection; field-level
// overrides from the tuning file still apply on top.
func (s *Server) paramsFor(profile string) (enhance.Params, string, error) {
	if profile == "" {
		p, err := s.cfg.Params()
		return p, s.cfg.GetProfile(), err
	}

	override := *s.cfg
	override.Profile = &profile
	p, err := override.Params()
	return p, profile, err
}

func (s *Server) persistRun(name, format, profile string, src *pixel.Buffer, original []byte, params enhance.Params, result *enhance.Result) (*store.Run, error) {
	stats := runStats{ToneMap: result.Stats}
	if cmp, err := metrics.Compare(src, result.Buffer); err == nil {
		stats.Before = cmp.Before
		stats.After = cmp.After
		// +Inf (identical frames) is not representable in JSON.
		if !math.IsInf(cmp.PSNRdB, 1) {
			stats.PSNRdB = &cmp.PSNRdB
		}
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}
	timingsJSON, err := json.Marshal(result.Timings)
	if err != nil {
		return nil, fmt.Errorf("marshal timings: %w", err)
	}

	return s.store.CreateRun(store.NewRun{
		SourceName:   name,
		SourceFormat: format,
		Width:        src.W,
		Height:       src.H,
		Profile:      profile,
		Params:       paramsJSON,
		Stats:        statsJSON,
		Timings:      timingsJSON,
		Original:     original,
		Enhanced:     result.Encoded,
	})
}
