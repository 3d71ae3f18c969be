package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/luminance-labs/nightlift/internal/codec"
	"github.com/luminance-labs/nightlift/internal/httputil"
	"github.com/luminance-labs/nightlift/internal/monitoring"
	"github.com/luminance-labs/nightlift/internal/store"
)

// Thumbnail bounds. The size query parameter is clamped into
// [minThumbSize, maxThumbSize].
const (
	defaultThumbSize = 320
	minThumbSize     = 16
	maxThumbSize     = 1024
	thumbJPEGQuality = 85
)

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

// handleRunByID dispatches /runs/{id} and its /original, /enhanced,
// and /thumb subresources.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/")
	id, sub, _ := strings.Cut(path, "/")
	if strings.TrimSpace(id) == "" {
		httputil.BadRequest(w, "run id is required")
		return
	}

	if sub != "" {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		switch sub {
		case "original", "enhanced":
			s.serveRunImage(w, id, sub)
		case "thumb":
			s.serveThumb(w, r, id)
		default:
			httputil.NotFound(w, "unknown run resource")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.serveRun(w, id)
	case http.MethodDelete:
		s.deleteRun(w, id)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) serveRun(w http.ResponseWriter, id string) {
	run, err := s.store.GetRun(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load run: %v", err))
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) deleteRun(w http.ResponseWriter, id string) {
	err := s.store.DeleteRun(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to delete run: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveRunImage(w http.ResponseWriter, id, which string) {
	run, err := s.store.GetRun(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load run: %v", err))
		return
	}

	var data []byte
	contentType := "image/jpeg"
	switch which {
	case "original":
		data, err = s.store.Original(id)
		contentType = contentTypeFor(run.SourceFormat)
	case "enhanced":
		data, err = s.store.Enhanced(id)
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load run image: %v", err))
		return
	}
	if len(data) == 0 {
		httputil.NotFound(w, fmt.Sprintf("run has no %s image", which))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// serveThumb decodes the enhanced image and serves a downscaled JPEG.
func (s *Server) serveThumb(w http.ResponseWriter, r *http.Request, id string) {
	size := defaultThumbSize
	if v := r.URL.Query().Get("size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= minThumbSize && parsed <= maxThumbSize {
			size = parsed
		}
	}

	data, err := s.store.Enhanced(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load run image: %v", err))
		return
	}

	buf, _, err := codec.DecodeBytes(data)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to decode run image: %v", err))
		return
	}

	thumb := imaging.Fit(buf.Image(), size, size, imaging.Lanczos)

	w.Header().Set("Content-Type", "image/jpeg")
	if err := imaging.Encode(w, thumb, imaging.JPEG, imaging.JPEGQuality(thumbJPEGQuality)); err != nil {
		monitoring.Logf("thumb encode failed for run %s: %v", id, err)
	}
}

func contentTypeFor(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
