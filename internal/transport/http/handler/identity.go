package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shoplite/shoplite/internal/application/identity"
	"github.com/shoplite/shoplite/internal/domain"
	"github.com/shoplite/shoplite/internal/transport/http/middleware"
)

// IdentityHandler handles the caller's own profile endpoints.
type IdentityHandler struct {
	svc identity.Service
}

func NewIdentityHandler(svc identity.Service) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

func (h *IdentityHandler) Me(w http.ResponseWriter, r *http.Request) {
	identityKey := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		identityKey = claims.IdentityKey
	}
	sid := middleware.SessionFromContext(r.Context())
	ident, err := h.svc.Me(r.Context(), identityKey, sid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

func (h *IdentityHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	verifiedEmail := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		verifiedEmail = claims.Email
	}
	sid := middleware.SessionFromContext(r.Context())
	ident, err := h.svc.UpdateProfile(r.Context(), verifiedEmail, sid, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ident)
}
