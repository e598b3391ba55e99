package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Valiantic/purehealth-api/internal/billing"
	"github.com/Valiantic/purehealth-api/internal/common"
)

// Handler exposes the transaction endpoints.
type Handler struct {
	Svc            *Service
	DefaultPerPage int
	MaxPerPage     int
	// OnSaved runs after a successful save, e.g. to invalidate the receipt
	// availability cache for the saved number.
	OnSaved func(mcNo string)
}

// Create handles POST /transactions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "transaction service not configured", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, "failed to create transaction")
		return
	}
	if h.OnSaved != nil {
		h.OnSaved(payload.MCNo)
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": payload})
}

// Update handles PUT /transactions/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "transaction service not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid transaction id", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err, "failed to update transaction")
		return
	}
	if h.OnSaved != nil {
		h.OnSaved(payload.MCNo)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payload})
}

// Get handles GET /transactions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "transaction service not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid transaction id", nil)
		return
	}
	view, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to load transaction")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// List handles GET /transactions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "transaction service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.DefaultPerPage, h.MaxPerPage)
	out, err := h.Svc.List(r.Context(), page, perPage)
	if err != nil {
		writeServiceError(w, err, "failed to list transactions")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "transaction not found", nil)
	case errors.Is(err, ErrUnknownTest),
		errors.Is(err, ErrNoTests),
		errors.Is(err, ErrIDNumberRequired),
		errors.Is(err, billing.ErrLineNotFound),
		errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, billing.ErrDiscountOutOfRange):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, billing.ErrLineRefunded),
		errors.Is(err, billing.ErrLineHasBalance),
		errors.Is(err, billing.ErrRefundFinal):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		common.JSONError(w, http.StatusConflict, "CONFLICT", "receipt number already used", nil)
	default:
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", ve.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}
