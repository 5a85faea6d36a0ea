package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-coupons/internal/domain/cart"
)

// ApplicableCoupons handles POST /applicable-coupons.
func (h *Handler) ApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	c, err := readCart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in cart.Cart
	if c != nil {
		in = *c
	}

	list, err := h.coupons.Applicable(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeApplicable(&e, list)
	writeJSON(w, http.StatusOK, &e)
}

// ApplyCoupon handles POST /apply-coupon/{id}.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := couponID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := readCart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.coupons.ApplyByID(r.Context(), id, c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeResult(&e, *res)
	writeJSON(w, http.StatusOK, &e)
}

func readCart(r *http.Request) (*cart.Cart, error) {
	data, err := readBody(r)
	if err != nil {
		return nil, err
	}
	return decodeCart(data)
}
