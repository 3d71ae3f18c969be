// Package store persists enhancement runs in SQLite: one row per run
// with the resolved parameters, brightness stats, stage timings and the
// original/enhanced image bytes.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/luminance-labs/nightlift/internal/timeutil"
)

// ErrNotFound is returned when a run id has no row.
var ErrNotFound = errors.New("store: run not found")

// DefaultListLimit caps ListRuns when the caller passes no limit.
const DefaultListLimit = 50

type Store struct {
	*sql.DB
	clock timeutil.Clock
}

// Run is one persisted enhancement run. Image bytes are kept out of
// this struct; fetch them with Original/Enhanced.
type Run struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	SourceName   string          `json:"source_name"`
	SourceFormat string          `json:"source_format"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	Profile      string          `json:"profile"`
	Params       json.RawMessage `json:"params"`
	Stats        json.RawMessage `json:"stats"`
	Timings      json.RawMessage `json:"timings"`
	OriginalSize int             `json:"original_size_bytes"`
	EnhancedSize int             `json:"enhanced_size_bytes"`
}

// NewRun carries the fields CreateRun persists; the id and timestamp
// are assigned by the store.
type NewRun struct {
	SourceName   string
	SourceFormat string
	Width        int
	Height       int
	Profile      string
	Params       json.RawMessage
	Stats        json.RawMessage
	Timings      json.RawMessage
	Original     []byte
	Enhanced     []byte
}

// Open opens (creating if needed) the run database at path and brings
// the schema up to date. A nil clock selects the real clock.
func Open(path string, clock timeutil.Clock) (*Store, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	s := &Store{DB: db, clock: clock}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CreateRun inserts a run and returns the stored record.
func (s *Store) CreateRun(nr NewRun) (*Run, error) {
	if len(nr.Enhanced) == 0 {
		return nil, fmt.Errorf("store: run has no enhanced bytes")
	}
	run := &Run{
		ID:           uuid.NewString(),
		CreatedAt:    s.clock.Now().UTC(),
		SourceName:   nr.SourceName,
		SourceFormat: nr.SourceFormat,
		Width:        nr.Width,
		Height:       nr.Height,
		Profile:      nr.Profile,
		Params:       nr.Params,
		Stats:        nr.Stats,
		Timings:      nr.Timings,
		OriginalSize: len(nr.Original),
		EnhancedSize: len(nr.Enhanced),
	}
	_, err := s.Exec(
		`INSERT INTO runs (
			id, created_at, source_name, source_format, width, height,
			profile, params_json, stats_json, timings_json,
			original_bytes, enhanced_bytes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(time.RFC3339Nano), run.SourceName,
		run.SourceFormat, run.Width, run.Height, run.Profile,
		rawOrEmpty(nr.Params), rawOrEmpty(nr.Stats), rawOrEmpty(nr.Timings),
		nr.Original, nr.Enhanced,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun fetches one run's metadata.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.QueryRow(
		`SELECT id, created_at, source_name, source_format, width, height,
			profile, params_json, stats_json, timings_json,
			length(original_bytes), length(enhanced_bytes)
		FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns up to limit runs, newest first. limit <= 0 selects
// DefaultListLimit.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.Query(
		`SELECT id, created_at, source_name, source_format, width, height,
			profile, params_json, stats_json, timings_json,
			length(original_bytes), length(enhanced_bytes)
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Original returns the stored source image bytes for a run.
func (s *Store) Original(id string) ([]byte, error) {
	return s.imageColumn(id, "original_bytes")
}

// Enhanced returns the stored result image bytes for a run.
func (s *Store) Enhanced(id string) ([]byte, error) {
	return s.imageColumn(id, "enhanced_bytes")
}

// DeleteRun removes a run and its image bytes.
func (s *Store) DeleteRun(id string) error {
	res, err := s.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountRuns returns the total number of stored runs.
func (s *Store) CountRuns() (int, error) {
	var n int
	if err := s.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

func (s *Store) imageColumn(id, column string) ([]byte, error) {
	// column is one of two compile-time constants, never caller input.
	var data []byte
	err := s.QueryRow(`SELECT `+column+` FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", column, err)
	}
	return data, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var createdAt string
	var params, stats, timings string
	var origLen, enhLen sql.NullInt64
	err := sc.Scan(
		&run.ID, &createdAt, &run.SourceName, &run.SourceFormat,
		&run.Width, &run.Height, &run.Profile, &params, &stats, &timings,
		&origLen, &enhLen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	run.Params = json.RawMessage(params)
	run.Stats = json.RawMessage(stats)
	run.Timings = json.RawMessage(timings)
	run.OriginalSize = int(origLen.Int64)
	run.EnhancedSize = int(enhLen.Int64)
	return &run, nil
}

// rawOrEmpty keeps JSON columns valid even when the caller has nothing
// to record.
func rawOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
