package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-coupons/internal/domain/coupon"
)

const (
	couponColumns = `id, type, threshold, discount, product_id,
		buy_products, get_products, repetition_limit, created_at, updated_at`

	insertCouponSQL = `INSERT INTO coupons
		(type, threshold, discount, product_id, buy_products, get_products, repetition_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY id`

	getCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	updateCouponSQL = `UPDATE coupons SET
		type = $2, threshold = $3, discount = $4, product_id = $5,
		buy_products = $6, get_products = $7, repetition_limit = $8,
		updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	upsertCouponSQL = `INSERT INTO coupons
		(id, type, threshold, discount, product_id, buy_products, get_products, repetition_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
		type = EXCLUDED.type, threshold = EXCLUDED.threshold, discount = EXCLUDED.discount,
		product_id = EXCLUDED.product_id, buy_products = EXCLUDED.buy_products,
		get_products = EXCLUDED.get_products, repetition_limit = EXCLUDED.repetition_limit,
		updated_at = now()
		RETURNING created_at, updated_at`

	// Keeps BIGSERIAL ahead of ids written explicitly by Upsert.
	syncCouponSeqSQL = `SELECT setval(pg_get_serial_sequence('coupons', 'id'),
		GREATEST((SELECT MAX(id) FROM coupons), 1))`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Details are stored in typed columns; the columns used depend on the
// coupon type.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create inserts c and fills in its id and timestamps.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	p, err := paramsFor(c)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, insertCouponSQL,
		p.typ, p.threshold, p.discount, p.productID, p.buyProducts, p.getProducts, p.repetitionLimit,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating %s coupon: %w", c.Type, err)
	}
	return nil
}

// List returns all coupons ordered by id.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return list, nil
}

// Get returns the coupon with the given id or coupon.ErrNotFound.
func (r *CouponRepository) Get(ctx context.Context, id int64) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %d: %w", id, err)
	}
	return &c, nil
}

// Update overwrites the type and details of an existing coupon.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	p, err := paramsFor(c)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, updateCouponSQL,
		c.ID, p.typ, p.threshold, p.discount, p.productID, p.buyProducts, p.getProducts, p.repetitionLimit,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrNotFound
		}
		return fmt.Errorf("updating coupon %d: %w", c.ID, err)
	}
	return nil
}

// Delete removes the coupon with the given id.
func (r *CouponRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Upsert writes c under its own id and advances the id sequence past it.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	p, err := paramsFor(c)
	if err != nil {
		return err
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertCouponSQL,
			c.ID, p.typ, p.threshold, p.discount, p.productID, p.buyProducts, p.getProducts, p.repetitionLimit,
		).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, syncCouponSeqSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting coupon %d: %w", c.ID, err)
	}
	return nil
}

// couponParams is the column form of a coupon's details.
type couponParams struct {
	typ             string
	threshold       decimal.NullDecimal
	discount        decimal.NullDecimal
	productID       *int32
	buyProducts     []byte
	getProducts     []byte
	repetitionLimit *int32
}

func paramsFor(c *coupon.Coupon) (couponParams, error) {
	p := couponParams{typ: c.Type.String()}
	switch d := c.Details.(type) {
	case coupon.CartWiseDetails:
		p.threshold = nullDecimal(&d.Threshold)
		p.discount = nullDecimal(&d.Discount)
	case coupon.ProductWiseDetails:
		p.discount = nullDecimal(d.Discount)
		if d.ProductID != nil {
			id, err := toInt32("product_id", *d.ProductID)
			if err != nil {
				return p, err
			}
			p.productID = &id
		}
	case coupon.BxGyDetails:
		p.buyProducts = encodeProducts(d.BuyProducts)
		p.getProducts = encodeProducts(d.GetProducts)
		limit, err := toInt32("repetition_limit", d.RepetitionLimit)
		if err != nil {
			return p, err
		}
		p.repetitionLimit = &limit
	case nil:
	default:
		return p, errors.Errorf("unsupported details %T", d)
	}
	if c.Details != nil && c.Details.Type() != c.Type {
		return p, errors.Wrapf(coupon.ErrMalformedDetails, "%s details for %s coupon", c.Details.Type(), c.Type)
	}
	return p, nil
}

// toInt32 narrows a details field to its INTEGER column.
func toInt32(field string, v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errors.Wrapf(coupon.ErrMalformedDetails, "%s %d out of range", field, v)
	}
	return int32(v), nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c               coupon.Coupon
		typ             string
		threshold       decimal.NullDecimal
		discount        decimal.NullDecimal
		productID       *int32
		buyProducts     []byte
		getProducts     []byte
		repetitionLimit *int32
		createdAt       time.Time
		updatedAt       time.Time
	)
	if err := row.Scan(
		&c.ID, &typ, &threshold, &discount, &productID,
		&buyProducts, &getProducts, &repetitionLimit, &createdAt, &updatedAt,
	); err != nil {
		return c, err
	}
	c.Type = coupon.Type(typ)
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt

	switch c.Type {
	case coupon.TypeCartWise:
		c.Details = coupon.CartWiseDetails{
			Threshold: floatOrZero(threshold),
			Discount:  floatOrZero(discount),
		}
	case coupon.TypeProductWise:
		d := coupon.ProductWiseDetails{}
		if productID != nil {
			id := int(*productID)
			d.ProductID = &id
		}
		if discount.Valid {
			v := discount.Decimal.InexactFloat64()
			d.Discount = &v
		}
		c.Details = d
	case coupon.TypeBxGy:
		d := coupon.BxGyDetails{}
		var err error
		if d.BuyProducts, err = decodeProducts(buyProducts); err != nil {
			return c, fmt.Errorf("coupon %d buy_products: %w", c.ID, err)
		}
		if d.GetProducts, err = decodeProducts(getProducts); err != nil {
			return c, fmt.Errorf("coupon %d get_products: %w", c.ID, err)
		}
		if repetitionLimit != nil {
			d.RepetitionLimit = int(*repetitionLimit)
		}
		c.Details = d
	}
	return c, nil
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}

func floatOrZero(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return 0
	}
	return d.Decimal.InexactFloat64()
}

func encodeProducts(list []coupon.BxGyProduct) []byte {
	var e jx.Encoder
	coupon.EncodeProducts(&e, list)
	return e.Bytes()
}

func decodeProducts(data []byte) ([]coupon.BxGyProduct, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return coupon.DecodeProducts(data)
}
