// Package cart defines the shopping cart model evaluated by coupon rules.
package cart

// Item is a single cart line.
type Item struct {
	ProductID int
	Quantity  int
	Price     float64
	// TotalDiscount is written only when a coupon is applied.
	TotalDiscount float64
}

// Cart holds the line items to evaluate. A nil Items slice means the items
// were absent from the request, while an empty slice means an empty cart.
type Cart struct {
	Items []Item
}

// LineTotal returns price * quantity.
func (i Item) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Subtotal returns the sum of price * quantity across all items.
func Subtotal(items []Item) float64 {
	var sum float64
	for _, item := range items {
		sum += item.LineTotal()
	}
	return sum
}

// Clone returns a copy of items that can be mutated without affecting the
// caller's slice. A nil input yields an empty, non-nil slice.
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
