package coupon

import "github.com/xenking/kart-coupons/internal/domain/cart"

// cartWiseStrategy takes a percentage off the whole subtotal. The discount is
// reported at cart level only and never attributed to a line.
type cartWiseStrategy struct{}

func (cartWiseStrategy) CalculateDiscount(c Coupon, items []cart.Item) float64 {
	d, ok := c.Details.(CartWiseDetails)
	if !ok || len(items) == 0 {
		return 0
	}
	if d.Threshold <= 0 || d.Discount <= 0 {
		return 0
	}

	total := cart.Subtotal(items)
	if total < d.Threshold {
		return 0
	}
	return total * (d.Discount / 100)
}

func (cartWiseStrategy) ApplyCoupon(_ Coupon, items []cart.Item) []cart.Item {
	out := cart.Clone(items)
	resetDiscounts(out)
	return out
}

func resetDiscounts(items []cart.Item) {
	for i := range items {
		items[i].TotalDiscount = 0
	}
}
