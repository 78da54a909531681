package domain

// Listing is one resource entry of a node market.
// Prices are fixed when the world is generated; only Quantity changes during play.
type Listing struct {
	BuyPrice  int64 `json:"buy"`      // paid by the market per unit sold to it
	SellPrice int64 `json:"sell"`     // charged by the market per unit bought from it
	Quantity  int64 `json:"quantity"` // units currently held by the market
}

// Spread returns SellPrice - BuyPrice. A negative spread allows
// single-node arbitrage.
func (l Listing) Spread() int64 {
	return l.SellPrice - l.BuyPrice
}

// DefaultResources is the vocabulary used by the stock configuration.
var DefaultResources = []string{"GOLD", "SILVER", "NANOCHIPS", "CAKE", "AZURE_INSTANCES"}
