package world

import (
	"math/rand/v2"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/market"
)

// World is the immutable graph plus the mutable markets of one replica.
type World struct {
	Graph   *Graph
	Markets *market.Book
}

// New pairs a graph with one market per node.
func New(g *Graph, markets []*market.Market) (*World, error) {
	if g == nil {
		return nil, invalidf("nil graph")
	}
	if len(markets) != g.NodeCount() {
		return nil, invalidf("%d markets for %d nodes", len(markets), g.NodeCount())
	}
	for i, m := range markets {
		if m == nil {
			return nil, invalidf("missing market for node %d", i)
		}
		for _, res := range m.Resources() {
			l, _ := m.Listing(res)
			if l.BuyPrice < 0 || l.SellPrice < 0 || l.Quantity < 0 {
				return nil, invalidf("node %d: negative price or quantity for %q", i, res)
			}
		}
	}
	return &World{Graph: g, Markets: market.NewBook(markets)}, nil
}

// Generate builds a connected world from cfg using rng as the only source of randomness.
func Generate(cfg Config, rng *rand.Rand) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var g *Graph
	if cfg.Complete {
		g = completeGraph(cfg.NodeCount)
	} else {
		g = randomGraph(cfg.NodeCount, cfg.EdgeRatio, rng)
	}

	markets := make([]*market.Market, cfg.NodeCount)
	for node := range markets {
		markets[node] = stockMarket(cfg, rng)
	}
	return New(g, markets)
}

// randomGraph builds a random spanning tree, then adds floor(ratio * remaining)
// extra edges chosen uniformly from the pairs the tree did not use.
func randomGraph(n int, ratio float64, rng *rand.Rand) *Graph {
	g := newGraph(n)
	for node := 1; node < n; node++ {
		g.addEdge(node, rng.IntN(node))
	}

	if ratio > 0 && n > 2 {
		remaining := make([][2]int, 0, n*(n-1)/2-g.edges)
		for a := 0; a < n; a++ {
			for b := a + 1; b < n; b++ {
				if !g.Adjacent(a, b) {
					remaining = append(remaining, [2]int{a, b})
				}
			}
		}
		k := int(ratio * float64(len(remaining)))
		// Partial Fisher-Yates: the first k entries become a uniform sample.
		for i := 0; i < k; i++ {
			j := i + rng.IntN(len(remaining)-i)
			remaining[i], remaining[j] = remaining[j], remaining[i]
			g.addEdge(remaining[i][0], remaining[i][1])
		}
	}
	return g.freeze()
}

func completeGraph(n int) *Graph {
	g := newGraph(n)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			g.addEdge(a, b)
		}
	}
	return g.freeze()
}

// stockMarket samples a non-empty subset of the vocabulary and prices each resource.
func stockMarket(cfg Config, rng *rand.Rand) *market.Market {
	count := 1 + rng.IntN(len(cfg.Resources))
	order := rng.Perm(len(cfg.Resources))

	listings := make(map[string]domain.Listing, count)
	for _, idx := range order[:count] {
		l := domain.Listing{
			BuyPrice:  between(rng, cfg.PriceMin, cfg.PriceMax),
			SellPrice: between(rng, cfg.PriceMin, cfg.PriceMax),
			Quantity:  between(rng, cfg.QuantityMin, cfg.QuantityMax),
		}
		if cfg.EnforceSpread && l.SellPrice < l.BuyPrice {
			l.SellPrice = l.BuyPrice
		}
		listings[cfg.Resources[idx]] = l
	}
	return market.New(listings)
}

// between returns a uniform integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int64) int64 {
	return lo + rng.Int64N(hi-lo+1)
}

// NodeCount returns the number of nodes.
func (w *World) NodeCount() int {
	return w.Graph.NodeCount()
}

// Neighbours returns the sorted neighbours of node.
func (w *World) Neighbours(node int) []int {
	return w.Graph.Neighbours(node)
}

// Market returns a read-only view of the market at node, or nil for an unknown node.
func (w *World) Market(node int) market.View {
	if !w.Graph.Has(node) {
		return nil
	}
	return market.ReadOnly(w.Markets.At(node))
}
