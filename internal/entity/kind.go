package entity

import (
	"slices"
	"time"
)

// Kind описывает, как обобщенный Store обращается с конкретным типом сущности.
// T - запись, S - производная сводка (Aggregate).
type Kind[T any, S any] struct {
	Name          string            // "bots", "agents"... Также часть ключа в KV
	Statuses      []string          // Закрытый набор статусов; пустой - статус не меняется
	DefaultStatus string            // Присваивается при Create
	Actions       map[string]string // approve -> active, stop -> offline

	ID        func(T) string
	SetID     func(*T, string)
	Status    func(T) string
	SetStatus func(*T, string)
	Stamp     func(*T, time.Time)  // Время создания, опционально
	CreatedAt func(T) time.Time    // Парный к Stamp, чтобы Update не затирал время создания
	Preserve  func(dst *T, orig T) // Поля, которые Update не трогает (их пишет только Replace)

	Validate   func(T) error  // Обязательные поля и неотрицательные числа
	SearchText func(T) string // По чему ищет Filter.Query, опционально
	Summarize  func([]T) S    // Сводка, пересчитывается на каждое чтение
	Seed       func() []T     // Начальное состояние, если ключа в KV нет
}

// IsStatus проверяет, что статус входит в перечисление типа
func (k Kind[T, S]) IsStatus(status string) bool {
	return slices.Contains(k.Statuses, status)
}

// ActionTarget возвращает целевой статус для именованного действия
func (k Kind[T, S]) ActionTarget(action string) (string, bool) {
	status, ok := k.Actions[action]
	return status, ok
}
