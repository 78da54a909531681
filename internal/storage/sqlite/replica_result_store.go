package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// ReplicaResultStore implements storage.ReplicaResultStore using SQLite.
type ReplicaResultStore struct {
	db *DB
}

// NewReplicaResultStore creates a new ReplicaResultStore.
func NewReplicaResultStore(db *DB) *ReplicaResultStore {
	return &ReplicaResultStore{db: db}
}

// Compile-time interface check.
var _ storage.ReplicaResultStore = (*ReplicaResultStore)(nil)

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *ReplicaResultStore) InsertBulk(ctx context.Context, results []*domain.ReplicaResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO replica_results (
			run_id, replica_index, replica_id, seed, rounds, winner, agents, duration_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		rollback(tx)
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if r == nil || r.RunID == "" || r.Index < 0 {
			rollback(tx)
			return storage.ErrInvalidInput
		}
		agents, err := json.Marshal(r.Agents)
		if err != nil {
			rollback(tx)
			return fmt.Errorf("encode agents: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			r.RunID, r.Index, r.ReplicaID, seedToDB(r.Seed), r.Rounds, r.Winner, string(agents), r.Duration.Nanoseconds(),
		)
		if err != nil {
			rollback(tx)
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert replica result in bulk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves all results for a run, ordered by replica index ASC.
func (s *ReplicaResultStore) GetByRun(ctx context.Context, runID string) ([]*domain.ReplicaResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, replica_index, replica_id, seed, rounds, winner, agents, duration_ns
		FROM replica_results
		WHERE run_id = ?
		ORDER BY replica_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query replica results: %w", err)
	}
	defer rows.Close()

	var results []*domain.ReplicaResult
	for rows.Next() {
		var (
			r        domain.ReplicaResult
			seed     int64
			agents   string
			duration int64
		)
		if err := rows.Scan(&r.RunID, &r.Index, &r.ReplicaID, &seed, &r.Rounds, &r.Winner, &agents, &duration); err != nil {
			return nil, fmt.Errorf("scan replica result: %w", err)
		}
		if err := json.Unmarshal([]byte(agents), &r.Agents); err != nil {
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
