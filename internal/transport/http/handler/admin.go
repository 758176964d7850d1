package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shoplite/shoplite/internal/application/admin"
)

// AdminHandler handles the raw data viewer endpoints.
type AdminHandler struct {
	svc admin.Service
}

func NewAdminHandler(svc admin.Service) *AdminHandler { return &AdminHandler{svc: svc} }

func (h *AdminHandler) ListTables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TablesEnvelope{Tables: h.svc.Tables()})
}

func (h *AdminHandler) ListRows(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")
	rows, next, err := h.svc.ListRows(r.Context(), chi.URLParam(r, "table"), limit, cursor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rows == nil {
		rows = []admin.Row{}
	}
	writeJSON(w, http.StatusOK, TableRowsEnvelope{Rows: rows, NextCursor: next})
}

func (h *AdminHandler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	rowID := chi.URLParam(r, "id")
	if err := h.svc.DeleteRow(r.Context(), table, rowID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "row deleted"})
}
