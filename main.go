// Command nightlift runs the low-light enhancement service: the HTTP
// API under /api/ plus the debug chart routes, backed by a SQLite run
// store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/luminance-labs/nightlift/internal/api"
	"github.com/luminance-labs/nightlift/internal/config"
	"github.com/luminance-labs/nightlift/internal/store"
	"github.com/luminance-labs/nightlift/internal/timeutil"
	"github.com/luminance-labs/nightlift/internal/version"
)

var (
	listen      = flag.String("listen", "", "HTTP listen address (default: config listen_addr, \":8080\")")
	dbFile      = flag.String("db", "", "Path to the SQLite run database (default: config db_path, \"nightlift.db\")")
	configPath  = flag.String("config", "", "Optional tuning config JSON file")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

// resolveListen prefers the -listen flag over the config value.
func resolveListen(cfg *config.TuningConfig, flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return cfg.GetListenAddr()
}

// resolveDBPath prefers the -db flag over the config value.
func resolveDBPath(cfg *config.TuningConfig, flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return cfg.GetDBPath()
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("nightlift %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config %s: %v", *configPath, err)
		}
		cfg = loaded
		log.Printf("Loaded tuning config from %s (profile %s)", *configPath, cfg.GetProfile())
	}

	dbPath := resolveDBPath(cfg, *dbFile)
	st, err := store.Open(dbPath, timeutil.RealClock{})
	if err != nil {
		log.Fatalf("Failed to open run database %s: %v", dbPath, err)
	}
	defer st.Close()
	log.Printf("Run database ready at %s", dbPath)

	srv := api.NewServer(st, cfg)
	defer srv.Close()

	addr := resolveListen(cfg, *listen)

	// Wait group for the HTTP server routine
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the debug chart routes at the root
		srv.AttachDebugRoutes(mux)

		// mount the API handlers under /api/
		mux.Handle("/api/", http.StripPrefix("/api", srv.ServeMux()))

		server := &http.Server{
			Addr:    addr,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("Starting HTTP server on %s", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
