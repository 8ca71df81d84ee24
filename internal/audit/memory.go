package audit

import (
	"context"
	"sync"
)

// MemorySink хранит последние события в кольцевом буфере.
// Используется, когда Postgres не настроен.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
	max    int
}

func NewMemorySink(max int) *MemorySink {
	if max <= 0 {
		max = 5000
	}
	return &MemorySink{max: max}
}

func (m *MemorySink) WriteBatch(_ context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, events...)
	if over := len(m.events) - m.max; over > 0 {
		m.events = append([]Event(nil), m.events[over:]...)
	}
	return nil
}

// FetchLogs возвращает события от новых к старым
func (m *MemorySink) FetchLogs(_ context.Context, f Filter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := f.EffectiveLimit()
	out := make([]Event, 0)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.Matches(m.events[i]) {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}
