// Package market models the per-node resource markets of a world.
package market

import (
	"errors"
	"sort"

	"ekon-lab/internal/domain"
)

// Market errors
var (
	ErrNotTraded            = errors.New("resource not traded at this market")
	ErrInsufficientQuantity = errors.New("insufficient market quantity")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
)

// View is the read-only face of a market handed to strategies.
type View interface {
	// Listing returns the listing for resource and whether the market trades it.
	Listing(resource string) (domain.Listing, bool)

	// Resources returns the traded resources in ascending order.
	Resources() []string

	// Len returns the number of traded resources.
	Len() int
}

// Market is the mutable state of one node's market.
// Prices never change after construction; Take and Put only move quantity.
type Market struct {
	listings  map[string]domain.Listing
	resources []string // sorted, fixed at construction
}

// New creates a market from listings. The map is copied.
func New(listings map[string]domain.Listing) *Market {
	m := &Market{
		listings:  make(map[string]domain.Listing, len(listings)),
		resources: make([]string, 0, len(listings)),
	}
	for res, l := range listings {
		m.listings[res] = l
		m.resources = append(m.resources, res)
	}
	sort.Strings(m.resources)
	return m
}

// Listing returns the current listing for resource.
func (m *Market) Listing(resource string) (domain.Listing, bool) {
	l, ok := m.listings[resource]
	return l, ok
}

// Trades reports whether the market trades resource.
func (m *Market) Trades(resource string) bool {
	_, ok := m.listings[resource]
	return ok
}

// Resources returns the traded resources in ascending order.
func (m *Market) Resources() []string {
	out := make([]string, len(m.resources))
	copy(out, m.resources)
	return out
}

// Len returns the number of traded resources.
func (m *Market) Len() int {
	return len(m.resources)
}

// Take removes qty units of resource from the market (an agent buys them).
func (m *Market) Take(resource string, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	l, ok := m.listings[resource]
	if !ok {
		return ErrNotTraded
	}
	if l.Quantity < qty {
		return ErrInsufficientQuantity
	}
	l.Quantity -= qty
	m.listings[resource] = l
	return nil
}

// Put adds qty units of resource to the market (an agent sells them).
func (m *Market) Put(resource string, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	l, ok := m.listings[resource]
	if !ok {
		return ErrNotTraded
	}
	l.Quantity += qty
	m.listings[resource] = l
	return nil
}

// Snapshot returns a copy of all listings.
func (m *Market) Snapshot() map[string]domain.Listing {
	out := make(map[string]domain.Listing, len(m.listings))
	for res, l := range m.listings {
		out[res] = l
	}
	return out
}

// readOnly hides the mutators of a Market behind View.
type readOnly struct {
	m *Market
}

// ReadOnly returns a View of m that cannot be converted back to *Market.
func ReadOnly(m *Market) View {
	return readOnly{m: m}
}

func (r readOnly) Listing(resource string) (domain.Listing, bool) { return r.m.Listing(resource) }
func (r readOnly) Resources() []string                            { return r.m.Resources() }
func (r readOnly) Len() int                                       { return r.m.Len() }

// Ensure Market implements View
var _ View = (*Market)(nil)
