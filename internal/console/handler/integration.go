package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/spaceai-console/internal/domain"
	"github.com/xela07ax/spaceai-console/internal/infra/auth"
)

type IntegrationChecker interface {
	CheckNow(ctx context.Context, id string) (domain.Integration, error)
}

// IntegrationHandler - общий REST интеграций плюс внеочередная проверка
type IntegrationHandler struct {
	*EntityHandler[domain.Integration, domain.IntegrationStats]
	checker IntegrationChecker
}

func NewIntegrationHandler(s EntityService[domain.Integration, domain.IntegrationStats], checker IntegrationChecker) *IntegrationHandler {
	return &IntegrationHandler{
		EntityHandler: NewEntityHandler(s),
		checker:       checker,
	}
}

func (h *IntegrationHandler) Routes() chi.Router {
	r := h.EntityHandler.Routes()
	r.With(auth.RequireScope("integrations.write")).Post("/{id}/check", h.Check)
	return r
}

// Check - POST /v1/integrations/{id}/check
func (h *IntegrationHandler) Check(w http.ResponseWriter, r *http.Request) {
	item, err := h.checker.CheckNow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
