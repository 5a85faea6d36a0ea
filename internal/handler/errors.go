package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-coupons/internal/domain/coupon"
	"github.com/xenking/kart-coupons/pkg/httpmiddleware"
)

var errMalformedJSON = errors.New("malformed JSON request")

// writeError maps domain errors to HTTP statuses. Unexpected errors are
// logged and reported as 500 without their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		httpmiddleware.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, errMalformedJSON):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "Malformed JSON request")
	case errors.Is(err, coupon.ErrNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errInvalidID),
		errors.Is(err, coupon.ErrInvalidCouponType),
		errors.Is(err, coupon.ErrUnknownCouponType),
		errors.Is(err, coupon.ErrDetailsRequired),
		errors.Is(err, coupon.ErrMalformedDetails):
		httpmiddleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
