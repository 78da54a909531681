package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// BenchmarkRunStore implements storage.BenchmarkRunStore using SQLite.
type BenchmarkRunStore struct {
	db *DB
}

// NewBenchmarkRunStore creates a new BenchmarkRunStore.
func NewBenchmarkRunStore(db *DB) *BenchmarkRunStore {
	return &BenchmarkRunStore{db: db}
}

// Compile-time interface check.
var _ storage.BenchmarkRunStore = (*BenchmarkRunStore)(nil)

const benchmarkRunColumns = `
	run_id, started_at, finished_at, seed, config,
	requested, completed, failed, skipped
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *BenchmarkRunStore) Insert(ctx context.Context, r *domain.BenchmarkRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	config := r.Config
	if config == nil {
		config = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO benchmark_runs (`+benchmarkRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(), seedToDB(r.Seed), config,
		r.Requested, r.Completed, r.Failed, r.Skipped,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert benchmark run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BenchmarkRunStore) GetByID(ctx context.Context, runID string) (*domain.BenchmarkRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+benchmarkRunColumns+` FROM benchmark_runs WHERE run_id = ?`, runID)
	r, err := scanBenchmarkRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get benchmark run: %w", err)
	}
	return r, nil
}

// List retrieves all runs, ordered by started_at ASC, run_id ASC.
func (s *BenchmarkRunStore) List(ctx context.Context) ([]*domain.BenchmarkRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+benchmarkRunColumns+` FROM benchmark_runs ORDER BY started_at ASC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list benchmark runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.BenchmarkRun
	for rows.Next() {
		r, err := scanBenchmarkRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan benchmark run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate benchmark runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBenchmarkRun(row scanner) (*domain.BenchmarkRun, error) {
	var (
		r                 domain.BenchmarkRun
		started, finished int64
		seed              int64
	)
	err := row.Scan(
		&r.RunID, &started, &finished, &seed, &r.Config,
		&r.Requested, &r.Completed, &r.Failed, &r.Skipped,
	)
	if err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	r.FinishedAt = time.Unix(0, finished).UTC()
	r.Seed = seedFromDB(seed)
	return &r, nil
}
