package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// BenchmarkRunStore implements storage.BenchmarkRunStore using PostgreSQL.
type BenchmarkRunStore struct {
	pool *Pool
}

// NewBenchmarkRunStore creates a new BenchmarkRunStore.
func NewBenchmarkRunStore(pool *Pool) *BenchmarkRunStore {
	return &BenchmarkRunStore{pool: pool}
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

	query := `INSERT INTO benchmark_runs (` + benchmarkRunColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	config := r.Config
	if config == nil {
		config = []byte{}
	}
	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.StartedAt, r.FinishedAt, seedToDB(r.Seed), config,
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
	query := `SELECT ` + benchmarkRunColumns + ` FROM benchmark_runs WHERE run_id = $1`

	r, err := scanBenchmarkRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get benchmark run: %w", err)
	}
	return r, nil
}

// List retrieves all runs, ordered by started_at ASC, run_id ASC.
func (s *BenchmarkRunStore) List(ctx context.Context) ([]*domain.BenchmarkRun, error) {
	query := `SELECT ` + benchmarkRunColumns + ` FROM benchmark_runs ORDER BY started_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
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

func scanBenchmarkRun(row pgx.Row) (*domain.BenchmarkRun, error) {
	var r domain.BenchmarkRun
	var seed int64
	err := row.Scan(
		&r.RunID, &r.StartedAt, &r.FinishedAt, &seed, &r.Config,
		&r.Requested, &r.Completed, &r.Failed, &r.Skipped,
	)
	if err != nil {
		return nil, err
	}
	r.Seed = seedFromDB(seed)
	return &r, nil
}
