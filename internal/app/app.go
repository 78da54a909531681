// Package app holds the wiring shared by the commands: logger construction,
// store selection and environment loading.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ekon-lab/internal/config"
	"ekon-lab/internal/storage"
	chstore "ekon-lab/internal/storage/clickhouse"
	"ekon-lab/internal/storage/memory"
	"ekon-lab/internal/storage/migrations"
	pgstore "ekon-lab/internal/storage/postgres"
	sqlitestore "ekon-lab/internal/storage/sqlite"
)

// ErrInvalidLogConfig is returned for an unknown log level or format.
var ErrInvalidLogConfig = errors.New("invalid log config")

// NewLogger builds a text or JSON slog handler on w.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("%w: level %q", ErrInvalidLogConfig, cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: format %q", ErrInvalidLogConfig, cfg.Format)
	}
}

// OpenStores connects to the configured databases, runs their migrations and
// returns the benchmark stores. Tables without a configured backend are kept
// in memory. The returned cleanup closes every connection opened.
func OpenStores(ctx context.Context, cfg config.StorageConfig, rec storage.QueryRecorder) (storage.Stores, func(), error) {
	stores := storage.Stores{
		Runs:         memory.NewBenchmarkRunStore(),
		Replicas:     memory.NewReplicaResultStore(),
		Aggregates:   memory.NewStrategyAggregateStore(),
		AgentMetrics: memory.NewAgentMetricStore(),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.SQLitePath != "" {
		db, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage.Stores{}, nil, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		stores = storage.Instrument(db.Stores(), "sqlite", rec)
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return storage.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return storage.Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pg := storage.Instrument(storage.Stores{
			Runs:     pgstore.NewBenchmarkRunStore(pool),
			Replicas: pgstore.NewReplicaResultStore(pool),
		}, "postgres", rec)
		stores.Runs, stores.Replicas = pg.Runs, pg.Replicas
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return storage.Stores{}, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		ch := storage.Instrument(storage.Stores{
			Aggregates:   chstore.NewStrategyAggregateStore(conn),
			AgentMetrics: chstore.NewAgentMetricStore(conn),
		}, "clickhouse", rec)
		stores.Aggregates, stores.AgentMetrics = ch.Aggregates, ch.AgentMetrics
	}

	return stores, cleanup, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// LoadEnvFile sets variables from a KEY=VALUE file without overriding ones
// already present. A missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Getenv returns the variable or def when unset or empty.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadConfig reads path over preset, or returns the preset when path is empty.
// Storage settings left empty in the file default to POSTGRES_DSN,
// CLICKHOUSE_DSN and SQLITE_PATH.
func LoadConfig(path, preset string) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Preset(preset)
	} else {
		cfg, err = config.Load(path, preset)
	}
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = os.Getenv("POSTGRES_DSN")
	}
	if cfg.Storage.ClickhouseDSN == "" {
		cfg.Storage.ClickhouseDSN = os.Getenv("CLICKHOUSE_DSN")
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = os.Getenv("SQLITE_PATH")
	}
	return cfg, nil
}

// SplitList splits a comma-separated flag value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
