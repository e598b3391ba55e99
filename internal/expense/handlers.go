package expense

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Valiantic/purehealth-api/internal/common"
)

// Handler exposes the expense endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /expenses?from=...&to=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.List(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err, "failed to list expenses")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Create handles POST /expenses.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	item, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, "failed to create expense")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

// Delete handles DELETE /expenses/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid expense id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeError(w, err, "failed to delete expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
}
