package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// ReplicaResultStore implements storage.ReplicaResultStore using PostgreSQL.
type ReplicaResultStore struct {
	pool *Pool
}

// NewReplicaResultStore creates a new ReplicaResultStore.
func NewReplicaResultStore(pool *Pool) *ReplicaResultStore {
	return &ReplicaResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReplicaResultStore = (*ReplicaResultStore)(nil)

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *ReplicaResultStore) InsertBulk(ctx context.Context, results []*domain.ReplicaResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO replica_results (
			run_id, replica_index, replica_id, seed, rounds, winner, agents, duration_ns
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, r := range results {
		if r == nil || r.RunID == "" || r.Index < 0 {
			return storage.ErrInvalidInput
		}
		agents, err := json.Marshal(r.Agents)
		if err != nil {
			return fmt.Errorf("encode agents: %w", err)
		}
		batch.Queue(query,
			r.RunID, r.Index, r.ReplicaID, seedToDB(r.Seed), r.Rounds, r.Winner, agents, r.Duration.Nanoseconds(),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range results {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert replica result in bulk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves all results for a run, ordered by replica index ASC.
func (s *ReplicaResultStore) GetByRun(ctx context.Context, runID string) ([]*domain.ReplicaResult, error) {
	query := `
		SELECT run_id, replica_index, replica_id, seed, rounds, winner, agents, duration_ns
		FROM replica_results
		WHERE run_id = $1
		ORDER BY replica_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query replica results: %w", err)
	}
	defer rows.Close()

	var results []*domain.ReplicaResult
	for rows.Next() {
		var (
			r        domain.ReplicaResult
			seed     int64
			agents   []byte
			duration int64
		)
		if err := rows.Scan(&r.RunID, &r.Index, &r.ReplicaID, &seed, &r.Rounds, &r.Winner, &agents, &duration); err != nil {
			return nil, fmt.Errorf("scan replica result: %w", err)
		}
		if err := json.Unmarshal(agents, &r.Agents); err != nil {
			return nil, fmt.Errorf("decode agents for replica %d: %w", r.Index, err)
		}
		r.Seed = seedFromDB(seed)
		r.Duration = time.Duration(duration)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replica results: %w", err)
	}
	return results, nil
}
