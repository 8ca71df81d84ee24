package service

import (
	"time"

	"github.com/xela07ax/spaceai-console/internal/domain"
)

// Демо-данные для пустого хранилища (storage.seed_demo).
// ID фиксированы: если два инстанса стартуют одновременно, они запишут одно и то же.

var seedTime = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func DemoBots() []domain.Bot {
	return []domain.Bot{
		{ID: "bot-support", Name: "Support Assistant", Platform: "web", Language: "en",
			WelcomeMessage: "Hi! How can I help?", Owner: "Northwind Partners",
			Status: domain.BotOnline, Messages: 18240, Users: 3120, Revenue: 4200, CreatedAt: seedTime},
		{ID: "bot-sales", Name: "Sales Concierge", Platform: "telegram", Language: "en",
			Owner: "Northwind Partners", Status: domain.BotOnline, Messages: 9650, Users: 1480, Revenue: 7350.5, CreatedAt: seedTime},
		{ID: "bot-booking", Name: "Booking Bot", Platform: "whatsapp", Language: "es",
			Status: domain.BotMaintenance, Messages: 2210, Users: 405, Revenue: 980, CreatedAt: seedTime},
	}
}

func DemoAgents() []domain.Agent {
	return []domain.Agent{
		{ID: "agent-northwind", Name: "Northwind Partners", Email: "ops@northwind.example", Region: "EU",
			Status: domain.AgentActive, BotsManaged: 2, Revenue: 11550.5, CommissionRate: 15, CreatedAt: seedTime},
		{ID: "agent-lumen", Name: "Lumen Digital", Email: "hello@lumen.example", Region: "LATAM",
			Status: domain.AgentPending, CommissionRate: 10, CreatedAt: seedTime},
	}
}

func DemoProducts() []domain.Product {
	return []domain.Product{
		{ID: "product-starter", Name: "Starter Plan", Category: "subscription", SKU: "PLAN-S",
			Status: domain.ProductActive, Price: 29, Stock: 1000, Sales: 212, Revenue: 6148, CreatedAt: seedTime},
		{ID: "product-pro", Name: "Pro Plan", Category: "subscription", SKU: "PLAN-P",
			Status: domain.ProductActive, Price: 99, Stock: 500, Sales: 61, Revenue: 6039, CreatedAt: seedTime},
		{ID: "product-voice", Name: "Voice Add-on", Category: "addon", SKU: "ADD-VOICE",
			Status: domain.ProductPending, Price: 19, CreatedAt: seedTime},
	}
}

func DemoMetrics() []domain.MetricSnapshot {
	return []domain.MetricSnapshot{
		{ID: "metric-2026-08", Period: "2026-08", Revenue: 10420, Users: 4210, Conversations: 25100, ConversionRate: 3.4, CreatedAt: seedTime},
		{ID: "metric-2026-09", Period: "2026-09", Revenue: 12530.5, Users: 5005, Conversations: 30100, ConversionRate: 3.9, CreatedAt: seedTime},
	}
}

func DemoIntegrations() []domain.Integration {
	return []domain.Integration{
		{ID: "integration-crm", Name: "CRM", Kind: domain.ProbeMock, Status: domain.IntegrationOffline, CreatedAt: seedTime},
		{ID: "integration-payments", Name: "Payments", Kind: domain.ProbeMock, Status: domain.IntegrationOffline, CreatedAt: seedTime},
	}
}

// Seeds собирает функции начального состояния; без демо все коллекции стартуют пустыми
type Seeds struct {
	Bots         func() []domain.Bot
	Agents       func() []domain.Agent
	Products     func() []domain.Product
	Metrics      func() []domain.MetricSnapshot
	Integrations func() []domain.Integration
}

func NewSeeds(demo bool) Seeds {
	if !demo {
		return Seeds{}
	}
	return Seeds{
		Bots:         DemoBots,
		Agents:       DemoAgents,
		Products:     DemoProducts,
		Metrics:      DemoMetrics,
		Integrations: DemoIntegrations,
	}
}
