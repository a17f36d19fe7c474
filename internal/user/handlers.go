package user

import (
	"errors"
	"net/http"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/respond"

	"go.uber.org/zap"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrNameRequired):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUserExists):
			respond.Error(w, http.StatusConflict, err.Error())
		default:
			logger.Log.Error("register user", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}

	token, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		logger.Log.Error("login after registration", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "authorization failed after registration")
		return
	}
	writeToken(w, http.StatusCreated, token)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeToken(w, http.StatusOK, token)
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.svc.AuthenticateAdmin(req.Email, req.Password)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeToken(w, http.StatusOK, token)
}

func writeToken(w http.ResponseWriter, status int, token string) {
	w.Header().Set("Authorization", "Bearer "+token)
	respond.JSON(w, status, map[string]any{"token": token})
}
