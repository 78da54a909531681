// Package sqlite stores a complete benchmark run in a single local SQLite
// file, for machines without PostgreSQL or ClickHouse.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ekon-lab/internal/storage"
)

// DB wraps a SQLite database holding every benchmark table.
type DB struct {
	*sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", storage.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; also keeps pragmas on the only connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("apply %s: %w", p, err)
		}
	}
	return nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS benchmark_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			seed        INTEGER NOT NULL,
			config      BLOB NOT NULL,
			requested   INTEGER NOT NULL,
			completed   INTEGER NOT NULL,
			failed      INTEGER NOT NULL,
			skipped     INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_benchmark_runs_started_at ON benchmark_runs (started_at, run_id);`,
		`CREATE TABLE IF NOT EXISTS replica_results (
			run_id        TEXT NOT NULL REFERENCES benchmark_runs (run_id),
			replica_index INTEGER NOT NULL,
			replica_id    TEXT NOT NULL UNIQUE,
			seed          INTEGER NOT NULL,
			rounds        INTEGER NOT NULL,
			winner        TEXT NOT NULL,
			agents        TEXT NOT NULL,
			duration_ns   INTEGER NOT NULL,
			PRIMARY KEY (run_id, replica_index)
		);`,
		`CREATE TABLE IF NOT EXISTS strategy_aggregates (
			run_id                 TEXT NOT NULL,
			strategy               TEXT NOT NULL,
			replicas               INTEGER NOT NULL,
			wins                   INTEGER NOT NULL,
			win_rate               REAL NOT NULL,
			mean_final_coin        REAL NOT NULL,
			mean_profit_per_round  REAL NOT NULL,
			mean_time_per_round_ms REAL NOT NULL,
			mean_efficiency        REAL NOT NULL,
			efficiency_median      REAL NOT NULL,
			efficiency_p10         REAL NOT NULL,
			efficiency_p90         REAL NOT NULL,
			efficiency_stddev      REAL NOT NULL,
			total_failures         INTEGER NOT NULL,
			rank                   INTEGER NOT NULL,
			pareto_optimal         INTEGER NOT NULL,
			PRIMARY KEY (run_id, strategy)
		);`,
		`CREATE TABLE IF NOT EXISTS agent_replica_metrics (
			run_id            TEXT NOT NULL,
			replica_id        TEXT NOT NULL,
			replica_index     INTEGER NOT NULL,
			seed              INTEGER NOT NULL,
			strategy          TEXT NOT NULL,
			final_coin        INTEGER NOT NULL,
			profit_per_round  REAL NOT NULL,
			time_per_round_ms REAL NOT NULL,
			efficiency        REAL NOT NULL,
			failures          INTEGER NOT NULL,
			winner            INTEGER NOT NULL,
			PRIMARY KEY (run_id, replica_index, strategy)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

// Stores returns all four benchmark stores backed by db.
func (db *DB) Stores() storage.Stores {
	return storage.Stores{
		Runs:         NewBenchmarkRunStore(db),
		Replicas:     NewReplicaResultStore(db),
		Aggregates:   NewStrategyAggregateStore(db),
		AgentMetrics: NewAgentMetricStore(db),
	}
}

// isDuplicateKeyError checks if error is a primary key or unique violation.
func isDuplicateKeyError(err error) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	switch sqErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

// Seeds are uint64 but INTEGER is signed; they are stored by bit pattern.
func seedToDB(seed uint64) int64 { return int64(seed) }

func seedFromDB(v int64) uint64 { return uint64(v) }

// rollback ends tx after a failed batch; the caller returns its own error.
func rollback(tx *sql.Tx) { _ = tx.Rollback() }
