package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-coupons/internal/domain/coupon"
)

// CreateCoupon handles POST /coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	in, err := h.readInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.coupons.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCoupon(&e, *c)
	writeJSON(w, http.StatusCreated, &e)
}

// ListCoupons handles GET /coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.coupons.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, c := range list {
			encodeCoupon(e, c)
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// GetCoupon handles GET /coupons/{id}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := couponID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.coupons.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCoupon(&e, *c)
	writeJSON(w, http.StatusOK, &e)
}

// UpdateCoupon handles PUT /coupons/{id}.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := couponID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := h.readInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.coupons.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCoupon(&e, *c)
	writeJSON(w, http.StatusOK, &e)
}

// DeleteCoupon handles DELETE /coupons/{id}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := couponID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.coupons.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("message", func(e *jx.Encoder) { e.Str("Coupon deleted successfully.") })
	})
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) readInput(r *http.Request) (coupon.Input, error) {
	data, err := readBody(r)
	if err != nil {
		return coupon.Input{}, err
	}
	return decodeCouponInput(data)
}
