package domain

import "github.com/shopspring/decimal"

// Cart is the session-scoped shopping cart mirrored from the inventory
// service. It is replaced wholesale on every refresh, never mutated locally.
type Cart struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Items     []LineItem `json:"items"`
}

// LineItem is a single cart line. The embedded product snapshot carries the
// price used for totals; quantity is always at least 1 on the service side.
type LineItem struct {
	ID       string  `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price times quantity at full precision.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ItemCount returns the sum of quantities across all lines, not the number
// of distinct lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Total sums every line's subtotal at full decimal precision. Rounding to
// two places is the caller's presentation concern.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// DisplayTotal renders the total rounded to two decimal places.
func (c *Cart) DisplayTotal() string {
	return c.Total().StringFixed(2)
}

// FindItem returns the line item with the given ID, or nil.
func (c *Cart) FindItem(itemID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// FindItemByProduct returns the line item holding the given product, or nil.
func (c *Cart) FindItemByProduct(productID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// EmptyCart returns a cart with no items for the given session. Used when
// the inventory service reports no cart exists yet.
func EmptyCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Items: []LineItem{}}
}
