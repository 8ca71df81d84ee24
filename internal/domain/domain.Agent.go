package domain

import "time"

type AgentStatus string

const (
	AgentPending  AgentStatus = "pending"  // Заявка на подключение, ждет апрува
	AgentActive   AgentStatus = "active"   // Работает с ботами
	AgentInactive AgentStatus = "inactive" // Отключен оператором
)

// Agent - партнер (реселлер), который ведет ботов клиентов.
// BotsManaged не пересчитывается из реальных ботов, это поле из анкеты.
type Agent struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone,omitempty"`
	Region         string      `json:"region,omitempty"`
	Status         AgentStatus `json:"status"`
	BotsManaged    int         `json:"bots_managed"`
	Revenue        float64     `json:"revenue"`
	CommissionRate float64     `json:"commission_rate"` // Процент, 0..100

	CreatedAt time.Time `json:"created_at"`
}
