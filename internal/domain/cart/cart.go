// Package cart implements the per-session shopping cart: an ordered set of
// catalog variations keyed by id, with quantities and a derived subtotal.
package cart

import (
	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/money"
)

// Item is one cart row. ID is the catalog variation id.
type Item struct {
	ID            string
	Name          string
	VariationName string
	Price         money.Money
	Quantity      int
	ImageURL      string
}

// Validate checks the row invariants: an id, a positive quantity and a
// non-negative price.
func (it Item) Validate() error {
	switch {
	case it.ID == "":
		return failure.Invalid("id", "item id is required")
	case it.Quantity <= 0:
		return failure.Invalid("quantity", "quantity must be greater than 0")
	case it.Price.IsNegative():
		return failure.Invalid("price", "price must not be negative")
	}
	return nil
}

// Snapshot is a read-only view of a cart.
type Snapshot struct {
	Items     []Item
	ItemCount int
	Subtotal  money.Money
}

// Cart holds rows in insertion order. The zero value is an empty cart.
type Cart struct {
	items []Item
}

// New returns a cart holding items. Rows are assumed valid.
func New(items []Item) *Cart {
	return &Cart{items: append([]Item(nil), items...)}
}

// Add inserts item or, when its id is already present, adds its quantity to
// the existing row. A merge must carry the row's price; a different price or
// currency is rejected and the cart is left unchanged.
func (c *Cart) Add(item Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	for i := range c.items {
		if c.items[i].ID != item.ID {
			continue
		}
		if !c.items[i].Price.Equal(item.Price) {
			return failure.Invalid("price", "price does not match the item already in the cart")
		}
		c.items[i].Quantity += item.Quantity
		return nil
	}
	if len(c.items) > 0 && !c.items[0].Price.SameCurrency(item.Price) {
		return failure.Invalid("price", "all items must share one currency")
	}
	c.items = append(c.items, item)
	return nil
}

// Remove drops the row with id. Missing ids are ignored.
func (c *Cart) Remove(id string) {
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// SetQuantity replaces the quantity of id. A quantity of zero or less removes
// the row.
func (c *Cart) SetQuantity(id string, qty int) {
	if qty <= 0 {
		c.Remove(id)
		return
	}
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = qty
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the rows.
func (c *Cart) Items() []Item {
	return append([]Item(nil), c.items...)
}

// Snapshot returns rows, total quantity and the subtotal in minor units.
func (c *Cart) Snapshot() Snapshot {
	s := Snapshot{
		Items:    c.Items(),
		Subtotal: money.Zero(money.DefaultCurrency),
	}
	if len(c.items) > 0 && c.items[0].Price.Currency != "" {
		s.Subtotal.Currency = c.items[0].Price.Currency
	}
	for _, it := range c.items {
		s.ItemCount += it.Quantity
		s.Subtotal = s.Subtotal.Add(it.Price.Mul(it.Quantity))
	}
	if s.Items == nil {
		s.Items = []Item{}
	}
	return s
}
