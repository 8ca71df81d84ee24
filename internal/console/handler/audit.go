package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/xela07ax/spaceai-console/internal/audit"
)

type AuditService interface {
	FetchLogs(ctx context.Context, f audit.Filter) ([]audit.Event, error)
}

type AuditHandler struct {
	service AuditService
}

func NewAuditHandler(s AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// GetLogs возвращает список событий аудита с поддержкой фильтрации
// GET /v1/audit?entity=...&action=...&limit=...
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	logs, err := h.service.FetchLogs(r.Context(), audit.Filter{
		Entity: q.Get("entity"),
		Action: q.Get("action"),
		Limit:  limit,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to fetch audit logs"})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
