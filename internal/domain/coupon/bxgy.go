package coupon

import "github.com/xenking/kart-coupons/internal/domain/cart"

// bxgyStrategy grants free units of the get product for every multiple of
// the buy product in the cart. Only the first buy and get entries count.
type bxgyStrategy struct{}

// freeUnits returns the number of free get-product units and the index of
// the first cart line carrying the get product, or -1.
func (bxgyStrategy) freeUnits(c Coupon, items []cart.Item) (qty, line int) {
	d, ok := c.Details.(BxGyDetails)
	if !ok || len(items) == 0 || len(d.BuyProducts) == 0 || len(d.GetProducts) == 0 {
		return 0, -1
	}
	buy, get := d.BuyProducts[0], d.GetProducts[0]
	if buy.Quantity <= 0 {
		return 0, -1
	}

	var bought int
	for _, item := range items {
		if item.ProductID == buy.ProductID {
			bought += item.Quantity
		}
	}
	if bought < buy.Quantity {
		return 0, -1
	}

	repetitions := min(bought/buy.Quantity, d.RepetitionLimit)
	if repetitions <= 0 {
		return 0, -1
	}

	for i, item := range items {
		if item.ProductID == get.ProductID {
			return repetitions * get.Quantity, i
		}
	}
	return 0, -1
}

func (s bxgyStrategy) CalculateDiscount(c Coupon, items []cart.Item) float64 {
	qty, line := s.freeUnits(c, items)
	if line < 0 {
		return 0
	}
	return float64(qty) * items[line].Price
}

func (s bxgyStrategy) ApplyCoupon(c Coupon, items []cart.Item) []cart.Item {
	out := cart.Clone(items)
	resetDiscounts(out)

	qty, line := s.freeUnits(c, out)
	if line < 0 || qty <= 0 {
		return out
	}
	out[line].Quantity += qty
	out[line].TotalDiscount = float64(qty) * out[line].Price
	return out
}
