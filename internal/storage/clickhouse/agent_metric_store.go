package clickhouse

import (
	"context"
	"fmt"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// AgentMetricStore implements storage.AgentMetricStore using ClickHouse.
type AgentMetricStore struct {
	conn *Conn
}

// NewAgentMetricStore creates a new AgentMetricStore.
func NewAgentMetricStore(conn *Conn) *AgentMetricStore {
	return &AgentMetricStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AgentMetricStore = (*AgentMetricStore)(nil)

const agentMetricColumns = `
	run_id, replica_id, replica_index, seed, strategy,
	final_coin, profit_per_round, time_per_round_ms, efficiency, failures, winner
`

type agentMetricKey struct {
	index    int64
	strategy string
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *AgentMetricStore) InsertBulk(ctx context.Context, rows []*domain.AgentReplicaMetric) error {
	if len(rows) == 0 {
		return nil
	}

	batchKeys := make(map[string]map[agentMetricKey]struct{})
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Strategy == "" {
			return storage.ErrInvalidInput
		}
		keys, ok := batchKeys[r.RunID]
		if !ok {
			keys = make(map[agentMetricKey]struct{})
			batchKeys[r.RunID] = keys
		}
		key := agentMetricKey{int64(r.ReplicaIndex), r.Strategy}
		if _, exists := keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		keys[key] = struct{}{}
	}

	// One lookup per run rather than per row.
	for runID, keys := range batchKeys {
		existing, err := s.keysForRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for key := range keys {
			if _, exists := existing[key]; exists {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO agent_replica_metrics (`+agentMetricColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.RunID, r.ReplicaID, int64(r.ReplicaIndex), r.Seed, r.Strategy,
			r.FinalCoin, r.ProfitPerRound, r.TimePerRoundMs, r.Efficiency, int64(r.Failures), r.Winner,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByStrategy retrieves a strategy's rows for a run, ordered by replica index ASC.
func (s *AgentMetricStore) GetByStrategy(ctx context.Context, runID, strategy string) ([]*domain.AgentReplicaMetric, error) {
	query := `SELECT ` + agentMetricColumns + ` FROM agent_replica_metrics FINAL
		WHERE run_id = ? AND strategy = ?
		ORDER BY replica_index ASC`

	rows, err := s.conn.Query(ctx, query, runID, strategy)
	if err != nil {
		return nil, fmt.Errorf("query by strategy: %w", err)
	}
	defer rows.Close()

	return scanAgentMetrics(rows)
}

func (s *AgentMetricStore) keysForRun(ctx context.Context, runID string) (map[agentMetricKey]struct{}, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT replica_index, strategy FROM agent_replica_metrics FINAL WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[agentMetricKey]struct{})
	for rows.Next() {
		var key agentMetricKey
		if err := rows.Scan(&key.index, &key.strategy); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func scanAgentMetrics(rows chRows) ([]*domain.AgentReplicaMetric, error) {
	var result []*domain.AgentReplicaMetric

	for rows.Next() {
		var r domain.AgentReplicaMetric
		var index, failures int64
		err := rows.Scan(
			&r.RunID, &r.ReplicaID, &index, &r.Seed, &r.Strategy,
			&r.FinalCoin, &r.ProfitPerRound, &r.TimePerRoundMs, &r.Efficiency, &failures, &r.Winner,
		)
		if err != nil {
			return nil, fmt.Errorf("scan agent metric row: %w", err)
		}
		r.ReplicaIndex = int(index)
		r.Failures = int(failures)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent metric rows: %w", err)
	}
	return result, nil
}
