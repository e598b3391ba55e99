package testcatalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Valiantic/purehealth-api/internal/common"
)

// Handler exposes the test catalog endpoints.
type Handler struct {
	Svc *Service
}

// ListTests handles GET /tests.
func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.ListTests(r.Context())
	if err != nil {
		writeError(w, err, "failed to list tests")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// CreateTest handles POST /tests.
func (h *Handler) CreateTest(w http.ResponseWriter, r *http.Request) {
	var in TestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	item, err := h.Svc.CreateTest(r.Context(), in)
	if err != nil {
		writeError(w, err, "failed to create test")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

// UpdateTest handles PUT /tests/{id}.
func (h *Handler) UpdateTest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid test id", nil)
		return
	}
	var in TestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	item, err := h.Svc.UpdateTest(r.Context(), id, in)
	if err != nil {
		writeError(w, err, "failed to update test")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// DeleteTest handles DELETE /tests/{id}.
func (h *Handler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid test id", nil)
		return
	}
	if err := h.Svc.DeleteTest(r.Context(), id); err != nil {
		writeError(w, err, "failed to delete test")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDepartments handles GET /departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.ListDepartments(r.Context())
	if err != nil {
		writeError(w, err, "failed to list departments")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// CreateDepartment handles POST /departments.
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	item, err := h.Svc.CreateDepartment(r.Context(), in.Name)
	if err != nil {
		writeError(w, err, "failed to create department")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		common.JSONError(w, http.StatusConflict, "CONFLICT", "name already exists", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
}
