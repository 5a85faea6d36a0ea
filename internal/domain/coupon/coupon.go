package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Type is the tag selecting a coupon's discount strategy.
type Type string

const (
	// TypeCartWise is a percentage off the whole cart, gated by a threshold.
	TypeCartWise Type = "cart-wise"
	// TypeProductWise is a percentage off the lines of one product.
	TypeProductWise Type = "product-wise"
	// TypeBxGy awards free units of one product for buying another.
	TypeBxGy Type = "bxgy"
)

// Types lists every supported coupon type.
var Types = []Type{TypeCartWise, TypeProductWise, TypeBxGy}

var (
	// ErrNotFound is returned when no coupon exists for an id.
	ErrNotFound = errors.New("coupon not found")
	// ErrInvalidCouponType is returned for a missing or empty type tag.
	ErrInvalidCouponType = errors.New("coupon type is required")
	// ErrUnknownCouponType is returned for a type tag outside the supported set.
	ErrUnknownCouponType = errors.New("unknown coupon type")
	// ErrDetailsRequired is returned when a coupon is stored without details.
	ErrDetailsRequired = errors.New("coupon details are required")
	// ErrMalformedDetails is returned when details cannot be decoded for a type.
	ErrMalformedDetails = errors.New("malformed coupon details")
)

// Coupon is a stored discount rule.
type Coupon struct {
	ID      int64
	Type    Type
	Details Details

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParseType normalizes a raw type tag (trim, lowercase) and checks it
// against the supported set.
func ParseType(raw string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

// Validate reports whether t is one of the supported tags. It performs no
// normalization.
func (t Type) Validate() error {
	switch t {
	case "":
		return ErrInvalidCouponType
	case TypeCartWise, TypeProductWise, TypeBxGy:
		return nil
	default:
		return errors.Wrapf(ErrUnknownCouponType, "%q", string(t))
	}
}

func (t Type) String() string { return string(t) }

// Repository provides persistence of coupon records.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	List(ctx context.Context) ([]Coupon, error)
	Get(ctx context.Context, id int64) (*Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id int64) error
	// Upsert stores c under its own id, replacing any existing record.
	Upsert(ctx context.Context, c *Coupon) error
}
