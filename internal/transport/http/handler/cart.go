package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shoplite/shoplite/internal/application/cart"
	"github.com/shoplite/shoplite/internal/domain"
	"github.com/shoplite/shoplite/internal/transport/http/middleware"
)

// CartHandler handles the session cart endpoints.
type CartHandler struct {
	svc cart.Service
}

func NewCartHandler(svc cart.Service) *CartHandler { return &CartHandler{svc: svc} }

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionFromContext(r.Context())
	c, err := h.svc.Get(r.Context(), sid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) SetItem(w http.ResponseWriter, r *http.Request) {
	var req domain.SetCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sid := middleware.SessionFromContext(r.Context())
	item, err := h.svc.SetItem(r.Context(), sid, chi.URLParam(r, "productID"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionFromContext(r.Context())
	if err := h.svc.RemoveItem(r.Context(), sid, chi.URLParam(r, "productID")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "item removed"})
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionFromContext(r.Context())
	if err := h.svc.Clear(r.Context(), sid); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "cart cleared"})
}
