package audit

import "time"

// Действия, которые журналирует консоль
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionStatus = "status"
	ActionDelete = "delete"
	ActionCheck  = "check" // Проверка доступности интеграции
)

type Event struct {
	ID        string         `json:"id"`         // UUID события
	RequestID string         `json:"request_id"` // X-Request-ID запроса консоли
	Actor     string         `json:"actor"`      // Кто делал (оператор или "system")
	Entity    string         `json:"entity"`     // bots, agents, products...
	EntityID  string         `json:"entity_id"`
	Action    string         `json:"action"`
	Status    string         `json:"status,omitempty"` // Статус сущности после действия
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Filter - два необязательных фильтра журнала и лимит выдачи
type Filter struct {
	Entity string
	Action string
	Limit  int
}

const DefaultLimit = 100

func (f Filter) Matches(e Event) bool {
	if f.Entity != "" && e.Entity != f.Entity {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return true
}

func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return DefaultLimit
	}
	return f.Limit
}
