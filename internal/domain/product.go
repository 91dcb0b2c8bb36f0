package domain

import "math"

// PersistedProduct is the subset of a stored product row reconciliation reads and writes.
// Spec is the quantity divisor and is never written here.
type PersistedProduct struct {
	PID       string  `json:"pid"`
	Price     int64   `json:"price"`
	Spec      float64 `json:"spec"`
	PriceUnit float64 `json:"price_unit"`
	Channel   string  `json:"channel"`
}

// PriceUpdate is a pending overwrite of price and price_unit on an existing row.
type PriceUpdate struct {
	PID       string  `json:"pid"`
	Channel   string  `json:"channel"`
	OldPrice  int64   `json:"old_price"`
	Price     int64   `json:"price"`
	PriceUnit float64 `json:"price_unit"`
}

// PriceUnit divides price by spec and rounds to 4 decimal places, halves to even.
func PriceUnit(price int64, spec float64) float64 {
	return math.RoundToEven(float64(price)/spec*1e4) / 1e4
}
