package clickhouse

import (
	"context"
	"fmt"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// StrategyAggregateStore implements storage.StrategyAggregateStore using ClickHouse.
type StrategyAggregateStore struct {
	conn *Conn
}

// NewStrategyAggregateStore creates a new StrategyAggregateStore.
func NewStrategyAggregateStore(conn *Conn) *StrategyAggregateStore {
	return &StrategyAggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)

const strategyAggregateColumns = `
	run_id, strategy,
	replicas, wins, win_rate,
	mean_final_coin, mean_profit_per_round, mean_time_per_round_ms, mean_efficiency,
	efficiency_median, efficiency_p10, efficiency_p90, efficiency_stddev,
	total_failures, rank, pareto_optimal
`

// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
// ReplacingMergeTree would silently replace rows, so duplicates are checked first.
func (s *StrategyAggregateStore) InsertBulk(ctx context.Context, aggregates []*domain.StrategyAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(aggregates))
	for _, a := range aggregates {
		if a == nil || a.RunID == "" || a.Strategy == "" {
			return storage.ErrInvalidInput
		}
		key := a.RunID + "|" + a.Strategy
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, a := range aggregates {
		exists, err := s.exists(ctx, a.RunID, a.Strategy)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO strategy_aggregates (`+strategyAggregateColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range aggregates {
		err = batch.Append(
			a.RunID, a.Strategy,
			int64(a.Replicas), int64(a.Wins), a.WinRate,
			a.MeanFinalCoin, a.MeanProfitPerRound, a.MeanTimePerRoundMs, a.MeanEfficiency,
			a.EfficiencyMedian, a.EfficiencyP10, a.EfficiencyP90, a.EfficiencyStddev,
			int64(a.TotalFailures), int64(a.Rank), a.ParetoOptimal,
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

// GetByKey retrieves an aggregate by run and strategy.
func (s *StrategyAggregateStore) GetByKey(ctx context.Context, runID, strategy string) (*domain.StrategyAggregate, error) {
	query := `SELECT ` + strategyAggregateColumns + ` FROM strategy_aggregates FINAL
		WHERE run_id = ? AND strategy = ?
		LIMIT 1`

	rows, err := s.conn.Query(ctx, query, runID, strategy)
	if err != nil {
		return nil, fmt.Errorf("query by key: %w", err)
	}
	defer rows.Close()

	aggregates, err := scanStrategyAggregates(rows)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, storage.ErrNotFound
	}
	return aggregates[0], nil
}

// GetByRun retrieves all aggregates for a run, ordered by rank ASC.
func (s *StrategyAggregateStore) GetByRun(ctx context.Context, runID string) ([]*domain.StrategyAggregate, error) {
	query := `SELECT ` + strategyAggregateColumns + ` FROM strategy_aggregates FINAL
		WHERE run_id = ?
		ORDER BY rank ASC, strategy ASC`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	return scanStrategyAggregates(rows)
}

// GetByStrategy retrieves the aggregates of a strategy across runs, ordered by run_id ASC.
func (s *StrategyAggregateStore) GetByStrategy(ctx context.Context, strategy string) ([]*domain.StrategyAggregate, error) {
	query := `SELECT ` + strategyAggregateColumns + ` FROM strategy_aggregates FINAL
		WHERE strategy = ?
		ORDER BY run_id ASC`

	rows, err := s.conn.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("query by strategy: %w", err)
	}
	defer rows.Close()

	return scanStrategyAggregates(rows)
}

func (s *StrategyAggregateStore) exists(ctx context.Context, runID, strategy string) (bool, error) {
	query := `SELECT count(*) FROM strategy_aggregates FINAL WHERE run_id = ? AND strategy = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, strategy).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanStrategyAggregates scans multiple rows into a slice.
func scanStrategyAggregates(rows chRows) ([]*domain.StrategyAggregate, error) {
	var aggregates []*domain.StrategyAggregate

	for rows.Next() {
		var a domain.StrategyAggregate
		var replicas, wins, totalFailures, rank int64
		err := rows.Scan(
			&a.RunID, &a.Strategy,
			&replicas, &wins, &a.WinRate,
			&a.MeanFinalCoin, &a.MeanProfitPerRound, &a.MeanTimePerRoundMs, &a.MeanEfficiency,
			&a.EfficiencyMedian, &a.EfficiencyP10, &a.EfficiencyP90, &a.EfficiencyStddev,
			&totalFailures, &rank, &a.ParetoOptimal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		a.Replicas = int(replicas)
		a.Wins = int(wins)
		a.TotalFailures = int(totalFailures)
		a.Rank = int(rank)
		aggregates = append(aggregates, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}

	return aggregates, nil
}
