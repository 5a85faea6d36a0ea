package cache

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-coupons/internal/domain/coupon"
)

func encodeList(list []coupon.Coupon) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, c := range list {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
				e.Field("type", func(e *jx.Encoder) { e.Str(c.Type.String()) })
				e.Field("details", func(e *jx.Encoder) { coupon.EncodeDetails(e, c.Details) })
				e.Field("created_at", func(e *jx.Encoder) { e.Str(c.CreatedAt.Format(time.RFC3339Nano)) })
				e.Field("updated_at", func(e *jx.Encoder) { e.Str(c.UpdatedAt.Format(time.RFC3339Nano)) })
			})
		}
	})
	return e.Bytes()
}

func decodeList(data []byte) ([]coupon.Coupon, error) {
	list := make([]coupon.Coupon, 0)
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var (
			c       coupon.Coupon
			details []byte
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				c.ID, err = d.Int64()
			case "type":
				var s string
				s, err = d.Str()
				c.Type = coupon.Type(s)
			case "details":
				var raw jx.Raw
				raw, err = d.Raw()
				details = append([]byte(nil), raw...)
			case "created_at":
				c.CreatedAt, err = decodeTime(d)
			case "updated_at":
				c.UpdatedAt, err = decodeTime(d)
			default:
				return d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return err
		}

		dt, err := coupon.ParseDetails(c.Type, details)
		if err != nil {
			return errors.Wrapf(err, "coupon %d", c.ID)
		}
		c.Details = dt
		list = append(list, c)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode coupon list")
	}
	return list, nil
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}
