package world

import (
	"errors"
	"fmt"

	"ekon-lab/internal/domain"
)

// ErrInvalidConfig is returned for world configurations that cannot be generated.
var ErrInvalidConfig = errors.New("invalid world config")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Config controls world generation.
type Config struct {
	NodeCount int     `yaml:"node_count"`
	EdgeRatio float64 `yaml:"edge_ratio"` // share of non-tree pairs added as extra edges
	Complete  bool    `yaml:"complete"`   // link every pair, ignoring EdgeRatio

	Resources   []string `yaml:"resources"`
	PriceMin    int64    `yaml:"price_min"`
	PriceMax    int64    `yaml:"price_max"`
	QuantityMin int64    `yaml:"quantity_min"`
	QuantityMax int64    `yaml:"quantity_max"`

	// EnforceSpread raises SellPrice to BuyPrice where needed, ruling out
	// riskless single-node arbitrage.
	EnforceSpread bool `yaml:"enforce_spread"`
}

// DefaultConfig returns the 400-node benchmark world.
func DefaultConfig() Config {
	return Config{
		NodeCount:     400,
		EdgeRatio:     0.02,
		Resources:     append([]string(nil), domain.DefaultResources...),
		PriceMin:      5,
		PriceMax:      25,
		QuantityMin:   10,
		QuantityMax:   1000,
		EnforceSpread: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NodeCount < 1 {
		return invalidf("node_count %d < 1", c.NodeCount)
	}
	if c.EdgeRatio < 0 || c.EdgeRatio > 1 {
		return invalidf("edge_ratio %v outside [0, 1]", c.EdgeRatio)
	}
	if len(c.Resources) == 0 {
		return invalidf("resource vocabulary is empty")
	}
	seen := make(map[string]struct{}, len(c.Resources))
	for _, r := range c.Resources {
		if r == "" {
			return invalidf("empty resource name")
		}
		if _, dup := seen[r]; dup {
			return invalidf("duplicate resource %q", r)
		}
		seen[r] = struct{}{}
	}
	if c.PriceMin < 0 || c.PriceMax < c.PriceMin {
		return invalidf("price range [%d, %d] is invalid", c.PriceMin, c.PriceMax)
	}
	if c.QuantityMin < 0 || c.QuantityMax < c.QuantityMin {
		return invalidf("quantity range [%d, %d] is invalid", c.QuantityMin, c.QuantityMax)
	}
	return nil
}
