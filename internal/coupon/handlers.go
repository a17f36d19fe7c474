package coupon

import (
	"errors"
	"net/http"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/respond"
	"github.com/antonminaichev/storefront/internal/types/coupon"

	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req coupon.ApplyRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Apply(r.Context(), req.Code, req.CartAmount)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidCoupon), errors.Is(err, ErrCouponExhausted):
			respond.Error(w, http.StatusBadRequest, err.Error())
		default:
			logger.Log.Error("apply coupon", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"discount": res.Discount, "couponId": res.CouponID})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req coupon.CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrCouponExists):
			respond.Error(w, http.StatusConflict, err.Error())
		default:
			logger.Log.Error("create coupon", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"coupon": c})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.svc.List(r.Context())
	if err != nil {
		logger.Log.Error("list coupons", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"coupons": coupons})
}
