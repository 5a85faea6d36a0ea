package coupon

import "github.com/xenking/kart-coupons/internal/domain/cart"

// Strategy evaluates one coupon type against cart items.
//
// Implementations are stateless. CalculateDiscount never modifies items and
// ApplyCoupon returns a new slice, so both are safe for concurrent use on
// shared carts. Missing or mismatched details degrade to no discount.
type Strategy interface {
	// CalculateDiscount returns the discount amount c grants on items.
	CalculateDiscount(c Coupon, items []cart.Item) float64
	// ApplyCoupon returns a copy of items with per-line discount bookkeeping
	// for c.
	ApplyCoupon(c Coupon, items []cart.Item) []cart.Item
}

var (
	cartWise    Strategy = cartWiseStrategy{}
	productWise Strategy = productWiseStrategy{}
	bxgy        Strategy = bxgyStrategy{}
)

// StrategyFor returns the strategy for t. The lookup is exact, tags must
// already be normalized.
func StrategyFor(t Type) (Strategy, error) {
	switch t {
	case TypeCartWise:
		return cartWise, nil
	case TypeProductWise:
		return productWise, nil
	case TypeBxGy:
		return bxgy, nil
	}
	return nil, t.Validate()
}
