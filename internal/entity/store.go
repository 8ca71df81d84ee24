// Package entity реализует EntityStore - коллекцию однотипных записей в памяти
// с CRUD, переходами статусов и производными сводками.
// Каждое изменение сначала записывается в KV и только потом становится видимым.
package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-console/internal/kv"
)

// Filter - два необязательных поля фильтрации списка
type Filter struct {
	Status string // Точное совпадение статуса
	Query  string // Подстрока SearchText без учета регистра
}

type Option[T any, S any] func(*Store[T, S])

// WithIDGenerator подменяет генератор ID (по умолчанию uuid)
func WithIDGenerator[T any, S any](fn func() string) Option[T, S] {
	return func(s *Store[T, S]) { s.newID = fn }
}

// WithClock подменяет источник времени для Stamp
func WithClock[T any, S any](fn func() time.Time) Option[T, S] {
	return func(s *Store[T, S]) { s.now = fn }
}

type Store[T any, S any] struct {
	kind   Kind[T, S]
	kv     kv.Store
	key    string
	logger *zap.Logger

	newID func() string
	now   func() time.Time

	mu    sync.RWMutex
	items []T
}

// New создает пустую коллекцию. Состояние поднимается через Load.
// Ключ в KV: "<namespace>:<kind>".
func New[T any, S any](kind Kind[T, S], store kv.Store, namespace string, logger *zap.Logger, opts ...Option[T, S]) *Store[T, S] {
	key := kind.Name
	if namespace != "" {
		key = namespace + ":" + kind.Name
	}
	s := &Store[T, S]{
		kind:   kind,
		kv:     store,
		key:    key,
		logger: logger.Named("store").With(zap.String("kind", kind.Name)),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store[T, S]) Kind() Kind[T, S] { return s.kind }

func (s *Store[T, S]) Key() string { return s.key }

// Load читает снапшот из KV. Если ключа нет - записывает Seed как начальное состояние.
func (s *Store[T, S]) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read(ctx)
	if errors.Is(err, kv.ErrNotFound) {
		var seed []T
		if s.kind.Seed != nil {
			seed = s.kind.Seed()
		}
		if err := s.persist(ctx, seed); err != nil {
			return err
		}
		s.items = seed
		s.logger.Info("collection initialized from seed", zap.Int("count", len(seed)))
		return nil
	}
	if err != nil {
		return err
	}

	s.items = items
	s.logger.Debug("collection loaded", zap.Int("count", len(items)))
	return nil
}

// Reload перечитывает снапшот, записанный другим инстансом консоли.
// В отличие от Load, отсутствие ключа не приводит к записи seed.
func (s *Store[T, S]) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read(ctx)
	if errors.Is(err, kv.ErrNotFound) {
		s.items = nil
		return nil
	}
	if err != nil {
		return err
	}
	s.items = items
	return nil
}

// List возвращает копию текущего снапшота в порядке вставки
func (s *Store[T, S]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store[T, S]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Find применяет Filter; пустые поля фильтра не ограничивают выборку
func (s *Store[T, S]) Find(f Filter) []T {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if f.Status != "" && (s.kind.Status == nil || s.kind.Status(item) != f.Status) {
			continue
		}
		if query != "" {
			if s.kind.SearchText == nil || !strings.Contains(strings.ToLower(s.kind.SearchText(item)), query) {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

func (s *Store[T, S]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Create валидирует черновик, присваивает новый ID и статус по умолчанию, добавляет в конец.
// Невалидный черновик не меняет коллекцию.
func (s *Store[T, S]) Create(ctx context.Context, draft T) (T, error) {
	var zero T
	if err := s.validate(draft); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.uniqueID()
	s.kind.SetID(&draft, id)
	if s.kind.SetStatus != nil && s.kind.DefaultStatus != "" {
		s.kind.SetStatus(&draft, s.kind.DefaultStatus)
	}
	if s.kind.Stamp != nil {
		s.kind.Stamp(&draft, s.now().UTC())
	}

	next := make([]T, len(s.items), len(s.items)+1)
	copy(next, s.items)
	next = append(next, draft)

	if err := s.persist(ctx, next); err != nil {
		return zero, err
	}
	s.items = next
	return draft, nil
}

// UpdateStatus меняет только поле статуса и только на член перечисления типа
func (s *Store[T, S]) UpdateStatus(ctx context.Context, id, status string) (T, error) {
	var zero T
	if s.kind.SetStatus == nil || !s.kind.IsStatus(status) {
		return zero, fmt.Errorf("%w: %q for %s", ErrInvalidStatus, status, s.kind.Name)
	}
	return s.mutate(ctx, id, func(item *T) error {
		s.kind.SetStatus(item, status)
		return nil
	})
}

// Apply выполняет именованный переход (approve, start, stop...)
func (s *Store[T, S]) Apply(ctx context.Context, id, action string) (T, error) {
	status, ok := s.kind.ActionTarget(action)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q for %s", ErrUnknownAction, action, s.kind.Name)
	}
	return s.UpdateStatus(ctx, id, status)
}

// Update редактирует запись через fn. ID, статус, время создания и поля Kind.Preserve сохраняются,
// результат проходит ту же валидацию, что и Create.
func (s *Store[T, S]) Update(ctx context.Context, id string, fn func(*T) error) (T, error) {
	return s.mutate(ctx, id, func(item *T) error {
		orig := *item
		if err := fn(item); err != nil {
			return err
		}
		s.kind.SetID(item, s.kind.ID(orig))
		if s.kind.SetStatus != nil && s.kind.Status != nil {
			s.kind.SetStatus(item, s.kind.Status(orig))
		}
		s.keepCreated(item, orig)
		if s.kind.Preserve != nil {
			s.kind.Preserve(item, orig)
		}
		if err := s.validate(*item); err != nil {
			return err
		}
		return nil
	})
}

// Replace как Update, но статус тоже берется из fn (только из перечисления).
// Используется мониторингом интеграций.
func (s *Store[T, S]) Replace(ctx context.Context, id string, fn func(*T) error) (T, error) {
	return s.mutate(ctx, id, func(item *T) error {
		orig := *item
		if err := fn(item); err != nil {
			return err
		}
		s.kind.SetID(item, s.kind.ID(orig))
		s.keepCreated(item, orig)
		if s.kind.Status != nil && !s.kind.IsStatus(s.kind.Status(*item)) {
			return fmt.Errorf("%w: %q for %s", ErrInvalidStatus, s.kind.Status(*item), s.kind.Name)
		}
		return s.validate(*item)
	})
}

// Delete удаляет запись. Повторное удаление - no-op (removed=false, err=nil).
func (s *Store[T, S]) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	next := make([]T, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)

	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.items = next
	return true, nil
}

// Aggregate пересчитывает сводку по текущему списку. Ничего не кэшируется.
func (s *Store[T, S]) Aggregate() S {
	if s.kind.Summarize == nil {
		var zero S
		return zero
	}
	return s.kind.Summarize(s.List())
}

// mutate применяет fn к копии записи, сохраняет новый снапшот и только потом публикует его
func (s *Store[T, S]) mutate(ctx context.Context, id string, fn func(*T) error) (T, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, s.kind.Name, id)
	}

	item := s.items[i]
	if err := fn(&item); err != nil {
		return zero, err
	}

	next := make([]T, len(s.items))
	copy(next, s.items)
	next[i] = item

	if err := s.persist(ctx, next); err != nil {
		return zero, err
	}
	s.items = next
	return item, nil
}

func (s *Store[T, S]) keepCreated(item *T, orig T) {
	if s.kind.Stamp != nil && s.kind.CreatedAt != nil {
		s.kind.Stamp(item, s.kind.CreatedAt(orig))
	}
}

func (s *Store[T, S]) validate(item T) error {
	if s.kind.Validate == nil {
		return nil
	}
	if err := s.kind.Validate(item); err != nil {
		if errors.Is(err, ErrInvalid) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (s *Store[T, S]) indexOf(id string) int {
	for i, item := range s.items {
		if s.kind.ID(item) == id {
			return i
		}
	}
	return -1
}

func (s *Store[T, S]) uniqueID() string {
	for {
		id := s.newID()
		if id != "" && s.indexOf(id) < 0 {
			return id
		}
	}
}

func (s *Store[T, S]) read(ctx context.Context) ([]T, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	if err := s.check(items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return items, nil
}

// check применяет к чужому снапшоту те же правила, что и к локальным записям
func (s *Store[T, S]) check(items []T) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := s.kind.ID(item)
		if id == "" {
			return fmt.Errorf("%w: empty id", ErrInvalid)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalid, id)
		}
		seen[id] = struct{}{}

		if s.kind.Status != nil && len(s.kind.Statuses) > 0 && !s.kind.IsStatus(s.kind.Status(item)) {
			return fmt.Errorf("%w: %s has status %q", ErrInvalid, id, s.kind.Status(item))
		}
		if err := s.validate(item); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}
	return nil
}

func (s *Store[T, S]) persist(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		s.logger.Error("failed to persist collection", zap.Error(err))
		return fmt.Errorf("persist %s: %w", s.key, err)
	}
	return nil
}
