// Package history provides persistent storage for analysis runs using
// SQLite for durability across restarts.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	terrors "github.com/fleettriage/fleettriage/internal/errors"
	"github.com/fleettriage/fleettriage/internal/models"
)

// Run is one recorded analysis.
type Run struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Filename  string         `json:"filename"`
	TotalRows int            `json:"total_rows"`
	Degraded  bool           `json:"degraded"`
	KPIs      *models.KPISet `json:"kpis,omitempty"`
}

// Store provides persistent analysis run storage.
type Store struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// NewStore opens (or creates) the run database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// WAL mode for better concurrent access
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("Analysis history store initialized")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			filename TEXT NOT NULL,
			total_rows INTEGER NOT NULL,
			degraded INTEGER NOT NULL DEFAULT 0,
			kpis TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores one analysis run and returns its id.
func (s *Store) Record(ctx context.Context, filename string, result *models.AnalysisResult) (string, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()

	var kpisJSON []byte
	degraded := true
	if result.KPIs.KPIs != nil {
		degraded = result.KPIs.Degraded
		var err error
		kpisJSON, err = json.Marshal(result.KPIs.KPIs)
		if err != nil {
			return "", fmt.Errorf("failed to marshal kpis: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, filename, total_rows, degraded, kpis) VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().Unix(), filename, result.TotalRows, boolToInt(degraded), nullableString(kpisJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, filename, total_rows, degraded, kpis FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, filename, total_rows, degraded, kpis FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, terrors.NotFound("history.get", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// Prune removes runs older than the retention window.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE created_at < ?`, time.Now().Add(-retention).Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		createdAt int64
		degraded  int
		kpisJSON  sql.NullString
	)
	if err := row.Scan(&run.ID, &createdAt, &run.Filename, &run.TotalRows, &degraded, &kpisJSON); err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.Degraded = degraded != 0
	if kpisJSON.Valid && kpisJSON.String != "" {
		var kpis models.KPISet
		if err := json.Unmarshal([]byte(kpisJSON.String), &kpis); err == nil {
			run.KPIs = &kpis
		}
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
