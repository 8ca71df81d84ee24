package domain

import "time"

// MetricSnapshot - срез аналитики за период ("2026-09", "week-41").
// У снапшотов нет статуса.
type MetricSnapshot struct {
	ID             string  `json:"id"`
	Period         string  `json:"period"`
	Revenue        float64 `json:"revenue"`
	Users          int64   `json:"users"`
	Conversations  int64   `json:"conversations"`
	ConversionRate float64 `json:"conversion_rate"` // Процент, 0..100

	CreatedAt time.Time `json:"created_at"`
}
