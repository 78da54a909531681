// Package config loads simulation and benchmark settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"ekon-lab/internal/strategy"
	"ekon-lab/internal/world"
)

// ErrInvalidConfig is returned for settings that cannot run.
var ErrInvalidConfig = errors.New("invalid config")

// ErrUnknownPreset is returned by Preset for an unrecognised name.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset names.
const (
	PresetClassic   = "classic"
	PresetBenchmark = "benchmark"
)

// Config holds everything a benchmark or single simulation needs.
type Config struct {
	World world.Config `yaml:"world"`

	StartingCoin int64    `yaml:"starting_coin"`
	Rounds       int      `yaml:"rounds"`
	Replicas     int      `yaml:"replicas"`
	Workers      int      `yaml:"workers"`
	Seed         uint64   `yaml:"seed"`
	Strategies   []string `yaml:"strategies"`

	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig names the optional result stores. A SQLite file holds every
// table; PostgreSQL and ClickHouse DSNs take over their tables from it.
type StorageConfig struct {
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// LogConfig selects the slog handler built by the commands.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the benchmark preset.
func Default() Config {
	return Config{
		World:        world.DefaultConfig(),
		StartingCoin: 1000,
		Rounds:       200,
		Replicas:     100,
		Workers:      runtime.NumCPU(),
		Seed:         1,
		Strategies:   strategy.Names(),
		Log:          LogConfig{Level: "info", Format: "text"},
	}
}

// Preset returns a named configuration.
func Preset(name string) (Config, error) {
	cfg := Default()
	switch name {
	case PresetBenchmark, "":
	case PresetClassic:
		cfg.World.NodeCount = 10
		cfg.World.Complete = true
		cfg.World.EdgeRatio = 0
		cfg.Rounds = 20
		cfg.Replicas = 1
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg, nil
}

// Load reads path and decodes it over the named preset.
func Load(path, preset string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, preset)
}

// Parse decodes YAML over the named preset and validates the result.
// Unknown keys are rejected.
func Parse(data []byte, preset string) (Config, error) {
	cfg, err := Preset(preset)
	if err != nil {
		return Config{}, err
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration. World errors also match world.ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.World.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.StartingCoin < 0 {
		return fmt.Errorf("%w: starting_coin %d < 0", ErrInvalidConfig, c.StartingCoin)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("%w: rounds %d < 1", ErrInvalidConfig, c.Rounds)
	}
	if c.Replicas < 1 {
		return fmt.Errorf("%w: replicas %d < 1", ErrInvalidConfig, c.Replicas)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d < 1", ErrInvalidConfig, c.Workers)
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("%w: no strategies", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Strategies))
	for _, name := range c.Strategies {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty strategy name", ErrInvalidConfig)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate strategy %q", ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Only narrows Strategies to the given names, keeping configuration order.
// Every name must already be configured.
func (c Config) Only(names []string) (Config, error) {
	if len(names) == 0 {
		return c, nil
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var kept []string
	for _, s := range c.Strategies {
		if _, ok := want[s]; ok {
			kept = append(kept, s)
			delete(want, s)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for _, n := range names {
			if _, ok := want[n]; ok {
				missing = append(missing, n)
			}
		}
		return c, fmt.Errorf("%w: --only names unconfigured strategies %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	c.Strategies = kept
	return c, nil
}

// Marshal renders the configuration as YAML, without storage DSNs.
func (c Config) Marshal() ([]byte, error) {
	c.Storage = StorageConfig{}
	return yaml.Marshal(c)
}
