// Package cache keeps the coupon list in a key-value store so that cart
// evaluation does not hit PostgreSQL on every request.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-coupons/internal/domain/coupon"
)

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is the subset of a key-value store used by the cache. Incr
// treats a missing key as zero and stores the result as a decimal string.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// The cached list lives under a key suffixed with the current generation.
// Writes bump the generation instead of deleting the key, so a List that
// read the database before a write can only fill an abandoned key.
const generationKey = "coupons:list:gen"

func listKey(gen int64) string {
	return "coupons:list:v1:" + strconv.FormatInt(gen, 10)
}

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository serves List from the store and delegates everything else
// to the wrapped repository. Every successful write retires the cached list.
// Store failures are logged and never fail the call.
type CouponRepository struct {
	next  coupon.Repository
	store Store
	ttl   time.Duration
}

// NewCouponRepository wraps next. Cached lists expire after ttl.
func NewCouponRepository(next coupon.Repository, store Store, ttl time.Duration) *CouponRepository {
	return &CouponRepository{next: next, store: store, ttl: ttl}
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	lg := zctx.From(ctx)

	gen, err := r.generation(ctx)
	if err != nil {
		lg.Warn("Coupon cache generation read failed", zap.Error(err))
		return r.next.List(ctx)
	}
	key := listKey(gen)

	data, err := r.store.Get(ctx, key)
	switch {
	case err == nil:
		list, derr := decodeList(data)
		if derr == nil {
			return list, nil
		}
		lg.Warn("Dropping undecodable coupon cache entry", zap.Error(derr))
	case !errors.Is(err, ErrMiss):
		lg.Warn("Coupon cache read failed", zap.Error(err))
	}

	list, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.store.Set(ctx, key, encodeList(list), r.ttl); err != nil {
		lg.Warn("Coupon cache write failed", zap.Error(err))
	}
	return list, nil
}

func (r *CouponRepository) Get(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return r.next.Get(ctx, id)
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if err := r.next.Create(ctx, c); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	if err := r.next.Update(ctx, c); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	if err := r.next.Upsert(ctx, c); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CouponRepository) generation(ctx context.Context) (int64, error) {
	data, err := r.store.Get(ctx, generationKey)
	if errors.Is(err, ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse generation %q", data)
	}
	return gen, nil
}

func (r *CouponRepository) invalidate(ctx context.Context) {
	if _, err := r.store.Incr(ctx, generationKey); err != nil {
		zctx.From(ctx).Warn("Coupon cache invalidation failed", zap.Error(err))
	}
}
