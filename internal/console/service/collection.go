package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-console/internal/audit"
	"github.com/xela07ax/spaceai-console/internal/broadcast"
	"github.com/xela07ax/spaceai-console/internal/entity"
	"github.com/xela07ax/spaceai-console/internal/infra/auth"
	"github.com/xela07ax/spaceai-console/internal/metrics"
)

// Collection - сервисный слой над entity.Store.
// После каждого успешного изменения: событие аудита, сигнал другим инстансам, метрики.
type Collection[T any, S any] struct {
	store    *entity.Store[T, S]
	auditor  audit.Auditor
	notifier broadcast.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewCollection[T any, S any](
	store *entity.Store[T, S],
	auditor audit.Auditor,
	notifier broadcast.Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Collection[T, S] {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if notifier == nil {
		notifier = broadcast.Nop{}
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	c := &Collection[T, S]{
		store:    store,
		auditor:  auditor,
		notifier: notifier,
		metrics:  m,
		logger:   logger.Named(store.Kind().Name + "-service"),
	}
	c.metrics.Entities.WithLabelValues(c.Name()).Set(float64(store.Len()))
	return c
}

func (c *Collection[T, S]) Name() string { return c.store.Kind().Name }

// Statuses и Actions нужны фронту для выпадающих списков
func (c *Collection[T, S]) Statuses() []string { return c.store.Kind().Statuses }

func (c *Collection[T, S]) Actions() map[string]string { return c.store.Kind().Actions }

func (c *Collection[T, S]) List(_ context.Context, f entity.Filter) []T {
	return c.store.Find(f)
}

func (c *Collection[T, S]) Get(_ context.Context, id string) (T, error) {
	item, ok := c.store.Get(id)
	if !ok {
		return item, fmt.Errorf("%w: %s %s", entity.ErrNotFound, c.Name(), id)
	}
	return item, nil
}

func (c *Collection[T, S]) Summary(context.Context) S {
	return c.store.Aggregate()
}

func (c *Collection[T, S]) Create(ctx context.Context, draft T) (T, error) {
	item, err := c.store.Create(ctx, draft)
	c.done(ctx, audit.ActionCreate, item, nil, err)
	return item, err
}

func (c *Collection[T, S]) SetStatus(ctx context.Context, id, status string) (T, error) {
	item, err := c.store.UpdateStatus(ctx, id, status)
	c.done(ctx, audit.ActionStatus, item, nil, err)
	return item, err
}

// Apply - именованное действие оператора (approve, start...)
func (c *Collection[T, S]) Apply(ctx context.Context, id, action string) (T, error) {
	item, err := c.store.Apply(ctx, id, action)
	c.done(ctx, audit.ActionStatus, item, map[string]any{"action": action}, err)
	return item, err
}

// Update заменяет редактируемые поля записи на поля patch
func (c *Collection[T, S]) Update(ctx context.Context, id string, patch T) (T, error) {
	item, err := c.store.Update(ctx, id, func(cur *T) error {
		*cur = patch
		return nil
	})
	c.done(ctx, audit.ActionUpdate, item, nil, err)
	return item, err
}

// Replace - системное изменение (в т.ч. статуса) от имени action, например проверка интеграции
func (c *Collection[T, S]) Replace(ctx context.Context, id, action string, detail map[string]any, fn func(*T) error) (T, error) {
	item, err := c.store.Replace(ctx, id, fn)
	c.done(ctx, action, item, detail, err)
	return item, err
}

// Delete идемпотентен: удаление отсутствующей записи не ошибка и не событие
func (c *Collection[T, S]) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := c.store.Delete(ctx, id)
	if err != nil || removed {
		var zero T
		c.store.Kind().SetID(&zero, id)
		c.done(ctx, audit.ActionDelete, zero, nil, err)
	}
	return removed, err
}

// Reload вызывается по сигналу от другого инстанса
func (c *Collection[T, S]) Reload(ctx context.Context) error {
	if err := c.store.Reload(ctx); err != nil {
		return err
	}
	c.metrics.Entities.WithLabelValues(c.Name()).Set(float64(c.store.Len()))
	return nil
}

func (c *Collection[T, S]) done(ctx context.Context, action string, item T, detail map[string]any, err error) {
	kind := c.store.Kind()
	c.metrics.Mutations.WithLabelValues(kind.Name, action, resultLabel(err)).Inc()

	if err != nil {
		if isClientError(err) {
			c.logger.Debug("mutation rejected", zap.String("action", action), zap.Error(err))
		} else {
			c.logger.Error("mutation failed", zap.String("action", action), zap.Error(err))
		}
		return
	}

	id := kind.ID(item)
	status := ""
	if kind.Status != nil && action != audit.ActionDelete {
		status = kind.Status(item)
	}

	c.metrics.Entities.WithLabelValues(kind.Name).Set(float64(c.store.Len()))
	c.auditor.Log(audit.Event{
		ID:        uuid.NewString(),
		RequestID: middleware.GetReqID(ctx),
		Actor:     auth.ActorFrom(ctx),
		Entity:    kind.Name,
		EntityID:  id,
		Action:    action,
		Status:    status,
		Detail:    detail,
	})
	c.notifier.Notify(ctx, kind.Name)

	c.logger.Info("collection changed",
		zap.String("action", action),
		zap.String("id", id),
		zap.String("status", status))
}

func isClientError(err error) bool {
	return errors.Is(err, entity.ErrInvalid) ||
		errors.Is(err, entity.ErrInvalidStatus) ||
		errors.Is(err, entity.ErrUnknownAction) ||
		errors.Is(err, entity.ErrNotFound)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, entity.ErrNotFound):
		return "not_found"
	case isClientError(err):
		return "invalid"
	default:
		return "error"
	}
}
