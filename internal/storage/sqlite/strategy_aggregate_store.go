package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// StrategyAggregateStore implements storage.StrategyAggregateStore using SQLite.
type StrategyAggregateStore struct {
	db *DB
}

// NewStrategyAggregateStore creates a new StrategyAggregateStore.
func NewStrategyAggregateStore(db *DB) *StrategyAggregateStore {
	return &StrategyAggregateStore{db: db}
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
func (s *StrategyAggregateStore) InsertBulk(ctx context.Context, aggregates []*domain.StrategyAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO strategy_aggregates (`+strategyAggregateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		rollback(tx)
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range aggregates {
		if a == nil || a.RunID == "" || a.Strategy == "" {
			rollback(tx)
			return storage.ErrInvalidInput
		}
		_, err := stmt.ExecContext(ctx,
			a.RunID, a.Strategy,
			a.Replicas, a.Wins, a.WinRate,
			a.MeanFinalCoin, a.MeanProfitPerRound, a.MeanTimePerRoundMs, a.MeanEfficiency,
			a.EfficiencyMedian, a.EfficiencyP10, a.EfficiencyP90, a.EfficiencyStddev,
			a.TotalFailures, a.Rank, a.ParetoOptimal,
		)
		if err != nil {
			rollback(tx)
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert aggregate in bulk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByKey retrieves an aggregate by run and strategy.
func (s *StrategyAggregateStore) GetByKey(ctx context.Context, runID, strategy string) (*domain.StrategyAggregate, error) {
	aggs, err := s.query(ctx, `WHERE run_id = ? AND strategy = ?`, runID, strategy)
	if err != nil {
		return nil, err
	}
	if len(aggs) == 0 {
		return nil, storage.ErrNotFound
	}
	return aggs[0], nil
}

// GetByRun retrieves all aggregates for a run, ordered by rank ASC.
func (s *StrategyAggregateStore) GetByRun(ctx context.Context, runID string) ([]*domain.StrategyAggregate, error) {
	return s.query(ctx, `WHERE run_id = ? ORDER BY rank ASC, strategy ASC`, runID)
}

// GetByStrategy retrieves the aggregates of a strategy across runs, ordered by run_id ASC.
func (s *StrategyAggregateStore) GetByStrategy(ctx context.Context, strategy string) ([]*domain.StrategyAggregate, error) {
	return s.query(ctx, `WHERE strategy = ? ORDER BY run_id ASC`, strategy)
}

func (s *StrategyAggregateStore) query(ctx context.Context, where string, args ...any) ([]*domain.StrategyAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+strategyAggregateColumns+` FROM strategy_aggregates `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query aggregates: %w", err)
	}
	defer rows.Close()
	return scanStrategyAggregates(rows)
}

func scanStrategyAggregates(rows *sql.Rows) ([]*domain.StrategyAggregate, error) {
	var aggregates []*domain.StrategyAggregate
	for rows.Next() {
		var a domain.StrategyAggregate
		err := rows.Scan(
			&a.RunID, &a.Strategy,
			&a.Replicas, &a.Wins, &a.WinRate,
			&a.MeanFinalCoin, &a.MeanProfitPerRound, &a.MeanTimePerRoundMs, &a.MeanEfficiency,
			&a.EfficiencyMedian, &a.EfficiencyP10, &a.EfficiencyP90, &a.EfficiencyStddev,
			&a.TotalFailures, &a.Rank, &a.ParetoOptimal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		aggregates = append(aggregates, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}
	return aggregates, nil
}
