package models

import (
	"github.com/google/uuid"
)

// StockRecord is the inventory state of a catalog item that opts into
// tracking. Untracked items are implicitly always available.
type StockRecord struct {
	ItemID      uuid.UUID `json:"item_id"`
	Name        string    `json:"name"`
	TrackStock  bool      `json:"track_stock"`
	Quantity    int       `json:"stock_quantity"`
	Threshold   int       `json:"low_stock_threshold"`
	IsAvailable bool      `json:"is_available"`
}

// ClampQuantity clamps stock quantities and thresholds to zero.
func ClampQuantity(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// ApplyDecrement returns the record after a clamped decrement.
// Quantity changed, so availability is recomputed.
func (r StockRecord) ApplyDecrement(n int) StockRecord {
	r.Quantity = ClampQuantity(r.Quantity - n)
	r.IsAvailable = r.Quantity > r.Threshold
	return r
}

// StockUpdate is an admin-side partial update of a stock record. Nil
// fields are left untouched.
type StockUpdate struct {
	TrackStock  *bool `json:"track_stock,omitempty"`
	Quantity    *int  `json:"stock_quantity,omitempty"`
	Threshold   *int  `json:"low_stock_threshold,omitempty"`
	IsAvailable *bool `json:"is_available,omitempty"`
}

// Apply merges the update into a record. Availability is recomputed
// only when quantity, threshold or tracking actually change; an
// availability value set by an earlier manual override survives updates
// that touch nothing stock-related. An explicit IsAvailable in the same
// update wins over the recomputation — it is the manual override path.
func (u StockUpdate) Apply(r StockRecord) StockRecord {
	out := r
	if u.TrackStock != nil {
		out.TrackStock = *u.TrackStock
	}
	if u.Quantity != nil {
		out.Quantity = ClampQuantity(*u.Quantity)
	}
	if u.Threshold != nil {
		out.Threshold = ClampQuantity(*u.Threshold)
	}

	stockChanged := out.TrackStock != r.TrackStock ||
		out.Quantity != r.Quantity ||
		out.Threshold != r.Threshold
	if stockChanged {
		out.IsAvailable = out.Quantity > out.Threshold
	}
	if u.IsAvailable != nil {
		out.IsAvailable = *u.IsAvailable
	}

	return out
}
