package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry as reported by the inventory service. Stock is
// the live available quantity at the time of the last refresh; it is a cached
// observation, never a local source of truth.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// InStock reports whether the cached stock permits starting an add-to-cart.
// A non-positive stock fails the local precondition before any network call.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// DisplayPrice renders the price rounded to two decimal places. Rounding
// happens only at presentation; arithmetic keeps full precision.
func (p Product) DisplayPrice() string {
	return p.Price.StringFixed(2)
}
