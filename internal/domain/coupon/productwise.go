package coupon

import "github.com/xenking/kart-coupons/internal/domain/cart"

// productWiseStrategy takes a percentage off every line of one product.
// Lines of other products are never written.
type productWiseStrategy struct{}

func (productWiseStrategy) params(c Coupon) (productID int, rate float64, ok bool) {
	d, ok := c.Details.(ProductWiseDetails)
	if !ok || d.ProductID == nil || d.Discount == nil {
		return 0, 0, false
	}
	return *d.ProductID, *d.Discount / 100, true
}

func (s productWiseStrategy) CalculateDiscount(c Coupon, items []cart.Item) float64 {
	productID, rate, ok := s.params(c)
	if !ok || len(items) == 0 {
		return 0
	}

	var sum float64
	for _, item := range items {
		if item.ProductID == productID {
			sum += item.LineTotal() * rate
		}
	}
	return sum
}

func (s productWiseStrategy) ApplyCoupon(c Coupon, items []cart.Item) []cart.Item {
	out := cart.Clone(items)
	productID, rate, ok := s.params(c)
	if !ok {
		return out
	}
	for i := range out {
		if out[i].ProductID == productID {
			out[i].TotalDiscount = out[i].LineTotal() * rate
		}
	}
	return out
}
