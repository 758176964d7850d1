package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shoplite/shoplite/internal/application/verification"
	"github.com/shoplite/shoplite/internal/transport/http/middleware"
)

// VerificationHandler handles the email OTP flow.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

func (h *VerificationHandler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sid := middleware.SessionFromContext(r.Context())
	if err := h.svc.RequestEmailCode(r.Context(), sid, body.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification code sent"})
}

func (h *VerificationHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sid := middleware.SessionFromContext(r.Context())
	res, err := h.svc.VerifyEmailCode(r.Context(), sid, body.Email, body.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyEnvelope{
		Bearer:   res.Bearer,
		Identity: res.Identity,
		Message:  "email verified",
	})
}
