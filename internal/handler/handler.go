// Package handler serves the coupon HTTP API.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/kart-coupons/internal/domain/cart"
	"github.com/xenking/kart-coupons/internal/domain/coupon"
)

// CouponService is the domain API used by the handlers.
type CouponService interface {
	Create(ctx context.Context, in coupon.Input) (*coupon.Coupon, error)
	List(ctx context.Context) ([]coupon.Coupon, error)
	Get(ctx context.Context, id int64) (*coupon.Coupon, error)
	Update(ctx context.Context, id int64, in coupon.Input) (*coupon.Coupon, error)
	Delete(ctx context.Context, id int64) error
	Applicable(ctx context.Context, c cart.Cart) ([]coupon.Applicable, error)
	ApplyByID(ctx context.Context, id int64, c *cart.Cart) (*coupon.Result, error)
}

var _ CouponService = (*coupon.Service)(nil)

// Handler serves the coupon CRUD and evaluation endpoints.
type Handler struct {
	coupons CouponService
}

// NewHandler constructs a Handler backed by coupons.
func NewHandler(coupons CouponService) *Handler {
	return &Handler{coupons: coupons}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})
	r.Post("/applicable-coupons", h.ApplicableCoupons)
	r.Post("/apply-coupon/{id}", h.ApplyCoupon)
}

var errInvalidID = errors.New("invalid coupon id")

func couponID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errInvalidID
	}
	return id, nil
}
