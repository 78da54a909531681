package domain

// ActionBundle is a strategy's proposal for one turn.
// Quantities are proposals and are floored to whole units during settlement.
type ActionBundle struct {
	Sell   map[string]float64 `json:"sell,omitempty"`    // resource -> units to sell to the market
	Buy    map[string]float64 `json:"buy,omitempty"`     // resource -> units to buy from the market
	MoveTo *int               `json:"move_to,omitempty"` // nil means stay in place
}

// Stay returns a bundle that does nothing.
func Stay() *ActionBundle {
	return &ActionBundle{}
}

// MoveTo returns a pointer to node for use in ActionBundle.MoveTo.
func MoveTo(node int) *int {
	return &node
}

// ActionType identifies a sub-action reported to observers.
type ActionType string

// ActionType constants.
const (
	ActionSell  ActionType = "sell"
	ActionBuy   ActionType = "buy"
	ActionMove  ActionType = "move"
	ActionError ActionType = "error" // strategy invocation failed
)

// Reject reasons for sub-actions that were not applied.
const (
	RejectNegativeQuantity  = "negative quantity"
	RejectInvalidQuantity   = "invalid quantity"
	RejectNotTraded         = "resource not traded at this market"
	RejectInsufficientHeld  = "insufficient holdings"
	RejectInsufficientStock = "insufficient market quantity"
	RejectInsufficientCoin  = "insufficient coin"
	RejectNotAdjacent       = "destination not adjacent"
)

// ActionEvent describes the outcome of one sub-action (or a failed turn).
type ActionEvent struct {
	Round    int        `json:"round"`
	Agent    string     `json:"agent"`
	Type     ActionType `json:"type"`
	Resource string     `json:"resource,omitempty"`
	Quantity int64      `json:"quantity,omitempty"`
	Price    int64      `json:"price,omitempty"` // unit price applied (or that would have applied)
	From     int        `json:"from"`
	To       int        `json:"to"`
	Accepted bool       `json:"accepted"`
	Reason   string     `json:"reason,omitempty"`
}

// Total returns Quantity * Price.
func (e ActionEvent) Total() int64 {
	return e.Quantity * e.Price
}
