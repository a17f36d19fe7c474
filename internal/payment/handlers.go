package payment

import (
	"errors"
	"net/http"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/middleware"
	orders "github.com/antonminaichev/storefront/internal/order"
	"github.com/antonminaichev/storefront/internal/respond"
	"github.com/antonminaichev/storefront/internal/types/payment"

	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req payment.CreateOrderRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	gwOrder, err := h.svc.CreateOrder(r.Context(), req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			respond.Error(w, http.StatusBadRequest, err.Error())
		default:
			logger.Log.Error("create gateway order", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, ErrGatewayUnavailable.Error())
		}
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"order": gwOrder})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	var req payment.VerifyRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := h.svc.VerifyAndRecord(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSignatureMismatch):
			logger.Log.Warn("payment signature mismatch",
				zap.String("user_id", userID),
				zap.String("gateway_order_id", req.GatewayOrderID),
			)
			respond.Error(w, http.StatusBadRequest, "Payment verification failed")
		case errors.Is(err, ErrValidation), errors.Is(err, orders.ErrValidation), errors.Is(err, orders.ErrCouponRejected):
			respond.Error(w, http.StatusBadRequest, err.Error())
		default:
			logger.Log.Error("record paid order", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"message": "Payment verified", "order": o})
}
