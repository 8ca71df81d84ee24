package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/spaceai-console/internal/entity"
	"github.com/xela07ax/spaceai-console/internal/infra/auth"
)

// EntityService описывает, что обработчику нужно от коллекции
type EntityService[T any, S any] interface {
	Name() string
	List(ctx context.Context, f entity.Filter) []T
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, draft T) (T, error)
	Update(ctx context.Context, id string, patch T) (T, error)
	SetStatus(ctx context.Context, id, status string) (T, error)
	Apply(ctx context.Context, id, action string) (T, error)
	Delete(ctx context.Context, id string) (bool, error)
	Summary(ctx context.Context) S
}

// EntityHandler - один и тот же REST для bots, agents, products, metrics, integrations
type EntityHandler[T any, S any] struct {
	service EntityService[T, S]
}

func NewEntityHandler[T any, S any](s EntityService[T, S]) *EntityHandler[T, S] {
	return &EntityHandler[T, S]{service: s}
}

// Routes монтируется в /v1/{kind}. Изменения требуют скоуп "<kind>.write".
func (h *EntityHandler[T, S]) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)           // ?status=&q=
	r.Get("/summary", h.Summary) // Сводка для экрана
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireScope(h.service.Name() + ".write"))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/status", h.SetStatus)
		r.Post("/{id}/actions/{action}", h.Apply)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

func (h *EntityHandler[T, S]) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := h.service.List(r.Context(), entity.Filter{
		Status: q.Get("status"),
		Query:  q.Get("q"),
	})
	writeJSON(w, http.StatusOK, items)
}

func (h *EntityHandler[T, S]) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Summary(r.Context()))
}

func (h *EntityHandler[T, S]) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *EntityHandler[T, S]) Create(w http.ResponseWriter, r *http.Request) {
	var draft T
	if err := decode(w, r, &draft); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *EntityHandler[T, S]) Update(w http.ResponseWriter, r *http.Request) {
	var patch T
	if err := decode(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *EntityHandler[T, S]) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *EntityHandler[T, S]) Apply(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Apply(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete идемпотентен: 204 и для уже удаленной записи
func (h *EntityHandler[T, S]) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
