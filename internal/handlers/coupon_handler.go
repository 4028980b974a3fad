package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/service"
)

// CouponHandler handles coupon validation and coupon administration
type CouponHandler struct {
	coupons *service.CouponService
	log     *slog.Logger
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(coupons *service.CouponService, log *slog.Logger) *CouponHandler {
	return &CouponHandler{
		coupons: coupons,
		log:     log,
	}
}

// ValidateCoupon handles POST /api/coupons/validate.
// A coupon that does not apply is answered with 200 and valid=false.
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.ValidateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	res, err := h.coupons.Validate(r.Context(), principalFrom(r), req)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, res, h.log)
}

// ListCoupons handles GET /api/admin/coupons
func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context(), principalFrom(r))
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, coupons, h.log)
}

// GetCoupon handles GET /api/admin/coupons/{code}
func (h *CouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Get(r.Context(), principalFrom(r), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, c, h.log)
}

// CreateCoupon handles POST /api/admin/coupons
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.CouponInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	c, err := h.coupons.Create(r.Context(), principalFrom(r), req)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusCreated, c, h.log)
}

// UpdateCoupon handles PATCH /api/admin/coupons/{code}
func (h *CouponHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.CouponPatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	c, err := h.coupons.Update(r.Context(), principalFrom(r), chi.URLParam(r, "code"), req)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, c, h.log)
}

// DeleteCoupon handles DELETE /api/admin/coupons/{code}
func (h *CouponHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), principalFrom(r), chi.URLParam(r, "code")); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
