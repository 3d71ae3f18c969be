// Package api serves the enhancement HTTP surface: uploads, run
// history, profiles, and debug charts. The root server mounts
// ServeMux under /api/.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/luminance-labs/nightlift/internal/config"
	"github.com/luminance-labs/nightlift/internal/enhance"
	"github.com/luminance-labs/nightlift/internal/httputil"
	"github.com/luminance-labs/nightlift/internal/monitoring"
	"github.com/luminance-labs/nightlift/internal/store"
	"github.com/luminance-labs/nightlift/internal/version"
	"github.com/luminance-labs/nightlift/internal/workpool"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the enhancement API over a run store and tuning
// config. One worker pool is shared by every request.
type Server struct {
	store *store.Store
	cfg   *config.TuningConfig
	pool  *workpool.Pool
}

// NewServer wires the API over its dependencies. A nil cfg selects the
// built-in defaults. Call Close to release the shared worker pool.
func NewServer(st *store.Store, cfg *config.TuningConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}

	workers := 0
	if p, err := cfg.Params(); err == nil {
		workers = p.Workers
	}

	return &Server{
		store: st,
		cfg:   cfg,
		pool:  workpool.New(workers),
	}
}

// Close releases the shared worker pool.
func (s *Server) Close() {
	s.pool.Close()
}

// ServeMux returns the API routes. The caller mounts it, typically
// under /api/ with http.StripPrefix.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/enhance", s.handleEnhance)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRunByID)
	mux.HandleFunc("/profiles", s.handleProfiles)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/version", s.handleVersion)
	return mux
}

// AttachDebugRoutes registers the debug chart endpoints on the root
// mux, outside the /api prefix.
func (s *Server) AttachDebugRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/runs/", s.handleRunHistogram)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

type profileInfo struct {
	Name   string         `json:"name"`
	Params enhance.Params `json:"params"`
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	names := config.Profiles()
	out := make([]profileInfo, 0, len(names))
	for _, name := range names {
		p, err := config.ProfileParams(name)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to resolve profile: %v", err))
			return
		}
		out = append(out, profileInfo{Name: name, Params: p})
	}

	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runs, err := s.store.CountRuns()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("store unavailable: %v", err))
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"status": "ok",
		"runs":   runs,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
