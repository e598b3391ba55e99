package receipt

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Valiantic/purehealth-api/internal/common"
)

// Handler exposes the receipt-number availability probe.
type Handler struct {
	Checker *Checker
}

// Check handles GET /transactions/receipt-check?mcNo=...&excludeId=...
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "receipt checker not configured", nil)
		return
	}
	mcNo := r.URL.Query().Get("mcNo")
	var excludeID uuid.NullUUID
	if raw := strings.TrimSpace(r.URL.Query().Get("excludeId")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid excludeId", nil)
			return
		}
		excludeID = uuid.NullUUID{UUID: parsed, Valid: true}
	}
	available, err := h.Checker.Available(r.Context(), mcNo, excludeID)
	if err != nil {
		if errors.Is(err, ErrEmptyReceiptNo) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "mcNo is required", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to check receipt number", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"available": available}})
}
