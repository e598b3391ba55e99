package account

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

// Handler exposes the staff account endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /accounts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.List(r.Context())
	if err != nil {
		writeError(w, err, "failed to list accounts")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Create handles POST /accounts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	item, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, "failed to create account")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

// Update handles PUT /accounts/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in struct {
		FullName string `json:"fullName"`
		Role     string `json:"role,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	item, err := h.Svc.Update(r.Context(), id, in.FullName, in.Role)
	if err != nil {
		writeError(w, err, "failed to update account")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// ChangePassword handles PUT /accounts/{id}/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.ChangePassword(r.Context(), id, in.Password); err != nil {
		writeError(w, err, "failed to change password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /accounts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeError(w, err, "failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Login handles POST /accounts/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	item, err := h.Svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
			return
		}
		writeError(w, err, "failed to log in")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid account id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		common.JSONError(w, http.StatusConflict, "CONFLICT", "username already exists", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
}
