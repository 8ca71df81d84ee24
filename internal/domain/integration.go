package domain

import "time"

type IntegrationStatus string

const (
	IntegrationOnline   IntegrationStatus = "online"
	IntegrationOffline  IntegrationStatus = "offline"
	IntegrationDegraded IntegrationStatus = "degraded" // Отвечает, но медленнее порога
)

// ProbeKind определяет, как проверять доступность бэкенда
type ProbeKind string

const (
	ProbeGRPC ProbeKind = "grpc" // grpc.health.v1
	ProbeHTTP ProbeKind = "http" // GET, 2xx/3xx
	ProbeMock ProbeKind = "mock" // Имитация для демо-стендов
)

// Integration - внешний бэкенд (CRM, платежи, LLM-провайдер),
// чей статус показывается на экране Backend Integration.
type Integration struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Kind     ProbeKind         `json:"kind"`
	Endpoint string            `json:"endpoint,omitempty"`
	Status   IntegrationStatus `json:"status"`

	LatencyMs int64     `json:"latency_ms"`
	LastCheck time.Time `json:"last_check,omitzero"`
	LastError string    `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
