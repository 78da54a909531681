package sqlite

import (
	"context"
	"fmt"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// AgentMetricStore implements storage.AgentMetricStore using SQLite.
type AgentMetricStore struct {
	db *DB
}

// NewAgentMetricStore creates a new AgentMetricStore.
func NewAgentMetricStore(db *DB) *AgentMetricStore {
	return &AgentMetricStore{db: db}
}

// Compile-time interface check.
var _ storage.AgentMetricStore = (*AgentMetricStore)(nil)

const agentMetricColumns = `
	run_id, replica_id, replica_index, seed, strategy,
	final_coin, profit_per_round, time_per_round_ms, efficiency, failures, winner
`

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *AgentMetricStore) InsertBulk(ctx context.Context, rows []*domain.AgentReplicaMetric) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO agent_replica_metrics (`+agentMetricColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		rollback(tx)
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Strategy == "" || r.ReplicaIndex < 0 {
			rollback(tx)
			return storage.ErrInvalidInput
		}
		_, err := stmt.ExecContext(ctx,
			r.RunID, r.ReplicaID, r.ReplicaIndex, seedToDB(r.Seed), r.Strategy,
			r.FinalCoin, r.ProfitPerRound, r.TimePerRoundMs, r.Efficiency, r.Failures, r.Winner,
		)
		if err != nil {
			rollback(tx)
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert agent metric in bulk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByStrategy retrieves a strategy's rows for a run, ordered by replica index ASC.
func (s *AgentMetricStore) GetByStrategy(ctx context.Context, runID, strategy string) ([]*domain.AgentReplicaMetric, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+agentMetricColumns+` FROM agent_replica_metrics
		WHERE run_id = ? AND strategy = ?
		ORDER BY replica_index ASC`, runID, strategy)
	if err != nil {
		return nil, fmt.Errorf("query agent metrics: %w", err)
	}
	defer rows.Close()

	var out []*domain.AgentReplicaMetric
	for rows.Next() {
		var (
			m    domain.AgentReplicaMetric
			seed int64
		)
		err := rows.Scan(
			&m.RunID, &m.ReplicaID, &m.ReplicaIndex, &seed, &m.Strategy,
			&m.FinalCoin, &m.ProfitPerRound, &m.TimePerRoundMs, &m.Efficiency, &m.Failures, &m.Winner,
		)
		if err != nil {
			return nil, fmt.Errorf("scan agent metric row: %w", err)
		}
		m.Seed = seedFromDB(seed)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent metric rows: %w", err)
	}
	return out, nil
}
