package order

import (
	"errors"
	"net/http"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/middleware"
	"github.com/antonminaichev/storefront/internal/respond"
	"github.com/antonminaichev/storefront/internal/types/order"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	var req order.PlaceOrderRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := h.svc.PlaceOrder(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"message": "Order placed", "order": o})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	orders, err := h.svc.ListOrders(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"orders": nonNil(orders)})
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListAllOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"orders": nonNil(orders)})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status order.OrderStatus `json:"status"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"message": "Status updated"})
}

func (h *Handler) RetryFulfillment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RetryFulfillment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]any{"message": "Fulfillment queued"})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrCouponRejected):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyShipped):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrQueueFull):
		respond.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Log.Error("order request failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func nonNil(orders []order.Order) []order.Order {
	if orders == nil {
		return []order.Order{}
	}
	return orders
}
