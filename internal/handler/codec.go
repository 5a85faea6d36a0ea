package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-coupons/internal/domain/cart"
	"github.com/xenking/kart-coupons/internal/domain/coupon"
)

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

func malformed(err error) error {
	return errors.Wrapf(errMalformedJSON, "%v", err)
}

// decodeCouponInput reads {"type": ..., "details": {...}}. Details are kept
// raw and decoded by the service once the type is known.
func decodeCouponInput(data []byte) (coupon.Input, error) {
	var in coupon.Input
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "type":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "type")
			}
			in.Type = v
		case "details":
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "details")
			}
			in.Details = append([]byte(nil), raw...)
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return coupon.Input{}, malformed(err)
	}
	return in, nil
}

// decodeCart reads {"items":[{"product_id","quantity","price"}]}. A JSON
// null body yields a nil cart and a missing items key a nil Items slice.
// Client supplied total_discount values are ignored.
func decodeCart(data []byte) (*cart.Cart, error) {
	d := jx.DecodeBytes(data)
	if d.Next() == jx.Null {
		if err := d.Null(); err != nil {
			return nil, malformed(err)
		}
		return nil, nil
	}

	c := &cart.Cart{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		c.Items = make([]cart.Item, 0)
		return d.Arr(func(d *jx.Decoder) error {
			item, err := decodeItem(d)
			if err != nil {
				return err
			}
			c.Items = append(c.Items, item)
			return nil
		})
	})
	if err != nil {
		return nil, malformed(err)
	}
	return c, nil
}

func decodeItem(d *jx.Decoder) (cart.Item, error) {
	var item cart.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "product_id":
			item.ProductID, err = d.Int()
		case "quantity":
			item.Quantity, err = d.Int()
		case "price":
			item.Price, err = d.Float64()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return item, err
}

func encodeCoupon(e *jx.Encoder, c coupon.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
		e.Field("type", func(e *jx.Encoder) { e.Str(c.Type.String()) })
		e.Field("details", func(e *jx.Encoder) { coupon.EncodeDetails(e, c.Details) })
		if !c.CreatedAt.IsZero() {
			e.Field("created_at", func(e *jx.Encoder) { e.Str(c.CreatedAt.UTC().Format(time.RFC3339)) })
		}
		if !c.UpdatedAt.IsZero() {
			e.Field("updated_at", func(e *jx.Encoder) { e.Str(c.UpdatedAt.UTC().Format(time.RFC3339)) })
		}
	})
}

func encodeApplicable(e *jx.Encoder, list []coupon.Applicable) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("applicable_coupons", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, a := range list {
					e.Obj(func(e *jx.Encoder) {
						e.Field("coupon_id", func(e *jx.Encoder) { e.Int64(a.ID) })
						e.Field("type", func(e *jx.Encoder) { e.Str(a.Type.String()) })
						e.Field("discount", func(e *jx.Encoder) { e.Float64(a.Discount) })
					})
				}
			})
		})
	})
}

func encodeResult(e *jx.Encoder, res coupon.Result) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("updated_cart", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("items", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, item := range res.Items {
							e.Obj(func(e *jx.Encoder) {
								e.Field("product_id", func(e *jx.Encoder) { e.Int(item.ProductID) })
								e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
								e.Field("price", func(e *jx.Encoder) { e.Float64(item.Price) })
								e.Field("total_discount", func(e *jx.Encoder) { e.Float64(item.TotalDiscount) })
							})
						}
					})
				})
				e.Field("total_price", func(e *jx.Encoder) { e.Float64(res.Subtotal) })
				e.Field("total_discount", func(e *jx.Encoder) { e.Float64(res.Discount) })
				e.Field("final_price", func(e *jx.Encoder) { e.Float64(res.FinalPrice) })
			})
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
