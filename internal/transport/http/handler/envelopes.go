package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shoplite/shoplite/internal/application/admin"
	"github.com/shoplite/shoplite/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// VerifyEnvelope wraps a successful code verification: the bound identity
// plus a bearer token when token signing is configured.
type VerifyEnvelope struct {
	Bearer   string           `json:"Bearer,omitempty"`
	Identity *domain.Identity `json:"identity,omitempty"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// PaginatedProductsEnvelope wraps cursor-paginated catalog listings.
type PaginatedProductsEnvelope struct {
	Data       []domain.Product `json:"data"`
	NextCursor string           `json:"next_cursor,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// TablesEnvelope wraps the admin viewer's table directory.
type TablesEnvelope struct {
	Tables []string `json:"tables"`
}

// TableRowsEnvelope wraps one page of raw rows from an admin-viewed table.
type TableRowsEnvelope struct {
	Rows       []admin.Row `json:"rows"`
	NextCursor string      `json:"next_cursor,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps service-layer sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrCodeMismatch):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
