package market

import (
	"fmt"

	"ekon-lab/internal/domain"
)

// Book holds the markets of every node, indexed by node id.
type Book struct {
	markets []*Market
}

// NewBook creates a book from markets ordered by node id.
func NewBook(markets []*Market) *Book {
	return &Book{markets: markets}
}

// At returns the market at node. It panics on an unknown node.
func (b *Book) At(node int) *Market {
	if node < 0 || node >= len(b.markets) {
		panic(fmt.Sprintf("market: unknown node %d", node))
	}
	return b.markets[node]
}

// Len returns the number of markets.
func (b *Book) Len() int {
	return len(b.markets)
}

// Snapshot copies every market's listings keyed by node.
func (b *Book) Snapshot() map[int]map[string]domain.Listing {
	out := make(map[int]map[string]domain.Listing, len(b.markets))
	for node, m := range b.markets {
		out[node] = m.Snapshot()
	}
	return out
}

// Totals returns the per-resource quantity held by all markets.
func (b *Book) Totals() map[string]int64 {
	totals := make(map[string]int64)
	for _, m := range b.markets {
		for res, l := range m.listings {
			totals[res] += l.Quantity
		}
	}
	return totals
}
