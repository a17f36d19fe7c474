package shipping

import (
	"errors"
	"net/http"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/respond"
	"github.com/antonminaichev/storefront/internal/types/shipping"

	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CheckPincode(w http.ResponseWriter, r *http.Request) {
	var req shipping.CheckRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Check(r.Context(), req.Pincode)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidPincode):
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	default:
		logger.Log.Warn("serviceability check failed", zap.String("pincode", req.Pincode), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, ErrServiceUnavailable.Error())
		return
	}

	body := map[string]any{"available": res.Available}
	if res.Available {
		body["delivery_range"] = res.DeliveryRange
		body["min_charges"] = res.MinCharges
	}
	respond.JSON(w, http.StatusOK, body)
}
