package coupon

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Details holds the type-specific parameters of a coupon. The set of
// implementations is closed: CartWiseDetails, ProductWiseDetails and
// BxGyDetails.
type Details interface {
	// Type returns the coupon type the parameters belong to.
	Type() Type
	details()
}

// CartWiseDetails discounts Discount percent off the cart subtotal once it
// reaches Threshold. Both values must be positive for the rule to apply.
type CartWiseDetails struct {
	Threshold float64
	Discount  float64
}

// ProductWiseDetails discounts Discount percent off every line of ProductID.
// A nil field means the parameter was not configured.
type ProductWiseDetails struct {
	ProductID *int
	Discount  *float64
}

// BxGyProduct is a product id with a quantity.
type BxGyProduct struct {
	ProductID int
	Quantity  int
}

// BxGyDetails awards GetProducts for every multiple of BuyProducts, at most
// RepetitionLimit times. Only the first entry of each list is evaluated.
type BxGyDetails struct {
	BuyProducts     []BxGyProduct
	GetProducts     []BxGyProduct
	RepetitionLimit int
}

func (CartWiseDetails) Type() Type    { return TypeCartWise }
func (ProductWiseDetails) Type() Type { return TypeProductWise }
func (BxGyDetails) Type() Type        { return TypeBxGy }

func (CartWiseDetails) details()    {}
func (ProductWiseDetails) details() {}
func (BxGyDetails) details()        {}

// DecodeDetails reads the JSON parameters for a coupon of type t. A JSON
// null decodes to nil details. Unknown fields are skipped.
func DecodeDetails(t Type, d *jx.Decoder) (Details, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if d.Next() == jx.Null {
		if err := d.Null(); err != nil {
			return nil, errors.Wrap(err, "null")
		}
		return nil, nil
	}
	if d.Next() != jx.Object {
		return nil, errors.Wrapf(ErrMalformedDetails, "%s: expected object, got %s", t, d.Next())
	}

	var (
		out Details
		err error
	)
	switch t {
	case TypeCartWise:
		out, err = decodeCartWise(d)
	case TypeProductWise:
		out, err = decodeProductWise(d)
	case TypeBxGy:
		out, err = decodeBxGy(d)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedDetails, "%s: %v", t, err)
	}
	return out, nil
}

// ParseDetails is DecodeDetails over a byte slice.
func ParseDetails(t Type, data []byte) (Details, error) {
	return DecodeDetails(t, jx.DecodeBytes(data))
}

func decodeCartWise(d *jx.Decoder) (Details, error) {
	var out CartWiseDetails
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "threshold":
			v, ok, err := optFloat(d)
			if err != nil {
				return errors.Wrap(err, "threshold")
			}
			if ok {
				out.Threshold = v
			}
		case "discount":
			v, ok, err := optFloat(d)
			if err != nil {
				return errors.Wrap(err, "discount")
			}
			if ok {
				out.Discount = v
			}
		default:
			return d.Skip()
		}
		return nil
	})
	return out, err
}

func decodeProductWise(d *jx.Decoder) (Details, error) {
	var out ProductWiseDetails
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, ok, err := optInt(d)
			if err != nil {
				return errors.Wrap(err, "product_id")
			}
			if ok {
				out.ProductID = &v
			}
		case "discount":
			v, ok, err := optFloat(d)
			if err != nil {
				return errors.Wrap(err, "discount")
			}
			if ok {
				out.Discount = &v
			}
		default:
			return d.Skip()
		}
		return nil
	})
	return out, err
}

func decodeBxGy(d *jx.Decoder) (Details, error) {
	var out BxGyDetails
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "buy_products":
			list, err := decodeProducts(d)
			if err != nil {
				return errors.Wrap(err, "buy_products")
			}
			out.BuyProducts = list
		case "get_products":
			list, err := decodeProducts(d)
			if err != nil {
				return errors.Wrap(err, "get_products")
			}
			out.GetProducts = list
		case "repetition_limit":
			v, ok, err := optInt(d)
			if err != nil {
				return errors.Wrap(err, "repetition_limit")
			}
			if ok {
				out.RepetitionLimit = v
			}
		default:
			return d.Skip()
		}
		return nil
	})
	return out, err
}

func decodeProducts(d *jx.Decoder) ([]BxGyProduct, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var list []BxGyProduct
	err := d.Arr(func(d *jx.Decoder) error {
		var p BxGyProduct
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "product_id":
				v, _, err := optInt(d)
				p.ProductID = v
				return err
			case "quantity":
				v, _, err := optInt(d)
				p.Quantity = v
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		list = append(list, p)
		return nil
	})
	return list, err
}

// optFloat reads a number or null. ok is false for null.
func optFloat(d *jx.Decoder) (v float64, ok bool, err error) {
	if d.Next() == jx.Null {
		return 0, false, d.Null()
	}
	v, err = d.Float64()
	return v, err == nil, err
}

// optInt reads an integer or null. ok is false for null.
func optInt(d *jx.Decoder) (v int, ok bool, err error) {
	if d.Next() == jx.Null {
		return 0, false, d.Null()
	}
	v, err = d.Int()
	return v, err == nil, err
}

// EncodeDetails writes d as JSON. Nil details encode as null.
func EncodeDetails(e *jx.Encoder, d Details) {
	switch v := d.(type) {
	case CartWiseDetails:
		e.Obj(func(e *jx.Encoder) {
			e.Field("threshold", func(e *jx.Encoder) { e.Float64(v.Threshold) })
			e.Field("discount", func(e *jx.Encoder) { e.Float64(v.Discount) })
		})
	case ProductWiseDetails:
		e.Obj(func(e *jx.Encoder) {
			if v.ProductID != nil {
				e.Field("product_id", func(e *jx.Encoder) { e.Int(*v.ProductID) })
			}
			if v.Discount != nil {
				e.Field("discount", func(e *jx.Encoder) { e.Float64(*v.Discount) })
			}
		})
	case BxGyDetails:
		e.Obj(func(e *jx.Encoder) {
			e.Field("buy_products", func(e *jx.Encoder) { EncodeProducts(e, v.BuyProducts) })
			e.Field("get_products", func(e *jx.Encoder) { EncodeProducts(e, v.GetProducts) })
			e.Field("repetition_limit", func(e *jx.Encoder) { e.Int(v.RepetitionLimit) })
		})
	default:
		e.Null()
	}
}

// EncodeProducts writes a BxGy product list as a JSON array.
func EncodeProducts(e *jx.Encoder, list []BxGyProduct) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range list {
			e.Obj(func(e *jx.Encoder) {
				e.Field("product_id", func(e *jx.Encoder) { e.Int(p.ProductID) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(p.Quantity) })
			})
		}
	})
}

// DecodeProducts parses a JSON array of BxGy products.
func DecodeProducts(data []byte) ([]BxGyProduct, error) {
	return decodeProducts(jx.DecodeBytes(data))
}
