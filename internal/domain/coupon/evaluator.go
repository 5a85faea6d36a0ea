package coupon

import (
	"github.com/go-faster/errors"

	"github.com/xenking/kart-coupons/internal/domain/cart"
)

// Applicable is a coupon that grants a positive discount on a cart.
type Applicable struct {
	ID       int64
	Type     Type
	Discount float64
}

// Result is a cart after one coupon has been applied.
type Result struct {
	Items      []cart.Item
	Subtotal   float64
	Discount   float64
	FinalPrice float64
}

// ListApplicable evaluates every coupon against c and returns those with a
// positive discount, in input order.
func ListApplicable(c cart.Cart, coupons []Coupon) ([]Applicable, error) {
	out := make([]Applicable, 0, len(coupons))
	for _, cp := range coupons {
		s, err := StrategyFor(cp.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "coupon %d", cp.ID)
		}
		discount := s.CalculateDiscount(cp, c.Items)
		if discount > 0 {
			out = append(out, Applicable{ID: cp.ID, Type: cp.Type, Discount: discount})
		}
	}
	return out, nil
}

// Apply evaluates cp against c. The subtotal is taken from the items before
// the coupon rewrites them, and c itself is never modified. A nil cart or a
// cart without items yields a zero result.
func Apply(cp Coupon, c *cart.Cart) (Result, error) {
	if c == nil || c.Items == nil {
		return Result{Items: []cart.Item{}}, nil
	}
	s, err := StrategyFor(cp.Type)
	if err != nil {
		return Result{}, errors.Wrapf(err, "coupon %d", cp.ID)
	}

	discount := s.CalculateDiscount(cp, c.Items)
	subtotal := cart.Subtotal(c.Items)
	return Result{
		Items:      s.ApplyCoupon(cp, c.Items),
		Subtotal:   subtotal,
		Discount:   discount,
		FinalPrice: subtotal - discount,
	}, nil
}
