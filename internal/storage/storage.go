package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mycelicmemory/core/internal/logging"
)

var log = logging.GetLogger("storage")

func init() {
	sqlite_vec.Auto()
}

// state is the DB lifecycle state machine (spec §4.1): only Ready accepts
// writes.
type state int32

const (
	stateClosed state = iota
	stateOpening
	stateMigrating
	stateReady
)

// Store owns the single on-disk database file and is the exclusive writer
// of persisted state (spec §3 "Ownership"). It is safe for concurrent use;
// SQLite's own writer serialization is backed by a single open connection
// (journal mode DELETE, so normal host apps may also open the file).
type Store struct {
	db    *sql.DB
	path  string
	dims  int
	mu    sync.RWMutex
	state atomic.Int32
}

// Options configures Open.
type Options struct {
	// Path is the on-disk database file path.
	Path string
	// Dimensions is the configured embedding dimension D (spec §6); used
	// to size the optional vec0 mirror table and to validate embeddings.
	Dimensions int
	// EnableVecMirror additionally maintains a sqlite-vec vec0 virtual
	// table alongside `embeddings`, for diagnostic cross-checks.
	EnableVecMirror bool
}

// Open opens (creating if needed) the database at opts.Path, runs
// migrations current+1..SchemaVersion, and transitions
// Closed -> Opening -> Migrating -> Ready (spec §4.1).
func Open(opts Options) (*Store, error) {
	s := &Store{path: opts.Path, dims: opts.Dimensions}
	s.state.Store(int32(stateOpening))
	log.Info("opening storage", "path", opts.Path)

	dir := filepath.Dir(opts.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	// DELETE (rollback-journal) mode, not WAL: the spec requires the
	// database to coexist with host apps that may also open the same
	// file concurrently. synchronous=NORMAL balances durability with
	// throughput; foreign_keys are ON with deferred enforcement so a
	// single transaction may insert a node and its edges in either order.
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=DELETE&_synchronous=NORMAL&_defer_foreign_keys=true", opts.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite supports exactly one writer; serialize through one conn so
	// the DELETE-journal contract holds even under concurrent callers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s.db = db
	s.state.Store(int32(stateMigrating))
	log.Debug("running migrations", "target_version", SchemaVersion)
	if err := migrate(db, SchemaVersion); err != nil {
		db.Close()
		s.state.Store(int32(stateClosed))
		return nil, err
	}

	if opts.EnableVecMirror && opts.Dimensions > 0 {
		stmt := fmt.Sprintf(VecSchema, opts.Dimensions)
		if _, err := db.Exec(stmt); err != nil {
			log.Warn("sqlite-vec mirror unavailable, continuing without it", "error", err)
		}
	}

	s.state.Store(int32(stateReady))
	log.Info("storage ready", "path", opts.Path, "schema_version", SchemaVersion)
	return s, nil
}

func (s *Store) requireReady() error {
	if state(s.state.Load()) != stateReady {
		return ErrNotReady
	}
	return nil
}

// Close transitions Ready -> Closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.state.Store(int32(stateClosed))
	s.db = nil
	return err
}

// Path returns the on-disk database file path.
func (s *Store) Path() string { return s.path }

// Dimensions returns the configured embedding dimension.
func (s *Store) Dimensions() int { return s.dims }

// SchemaVersion returns the on-disk schema version.
func (s *Store) SchemaVersion() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return 0, err
	}
	return currentVersion(s.db)
}

// Stats summarizes row counts across the core tables, used by the
// `doctor`/`stats` facade operations.
type Stats struct {
	Path          string
	SchemaVersion int
	NodeCount     int
	EdgeCount     int
	FactCount     int
	EntityCount   int
	GoalCount     int
	SessionCount  int
	FileSizeBytes int64
}

// GetStats returns database statistics for diagnostics.
func (s *Store) GetStats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	stats := &Stats{Path: s.path}
	if v, err := currentVersion(s.db); err == nil {
		stats.SchemaVersion = v
	}
	s.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&stats.NodeCount)
	s.db.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&stats.EdgeCount)
	s.db.QueryRow(`SELECT COUNT(*) FROM facts WHERE is_latest = 1`).Scan(&stats.FactCount)
	s.db.QueryRow(`SELECT COUNT(*) FROM entities`).Scan(&stats.EntityCount)
	s.db.QueryRow(`SELECT COUNT(*) FROM goal_clusters`).Scan(&stats.GoalCount)
	s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&stats.SessionCount)
	if info, err := os.Stat(s.path); err == nil {
		stats.FileSizeBytes = info.Size()
	}
	return stats, nil
}

// Vacuum runs VACUUM to reclaim space after heavy deletion.
func (s *Store) Vacuum() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	_, err := s.db.Exec("VACUUM")
	return err
}

func timeStr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTimeStr(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTimeStr(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
