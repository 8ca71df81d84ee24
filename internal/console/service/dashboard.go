package service

import (
	"context"

	"github.com/xela07ax/spaceai-console/internal/domain"
)

// Summarizer - то, что дашборду нужно от коллекции
type Summarizer[S any] interface {
	Summary(ctx context.Context) S
}

type DashboardService struct {
	bots         Summarizer[domain.BotStats]
	agents       Summarizer[domain.AgentStats]
	products     Summarizer[domain.ProductStats]
	metrics      Summarizer[domain.MetricStats]
	integrations Summarizer[domain.IntegrationStats]
}

func NewDashboardService(
	bots Summarizer[domain.BotStats],
	agents Summarizer[domain.AgentStats],
	products Summarizer[domain.ProductStats],
	metrics Summarizer[domain.MetricStats],
	integrations Summarizer[domain.IntegrationStats],
) *DashboardService {
	return &DashboardService{
		bots:         bots,
		agents:       agents,
		products:     products,
		metrics:      metrics,
		integrations: integrations,
	}
}

// GetDashboard собирает сводки всех коллекций на момент запроса, без кэша
func (s *DashboardService) GetDashboard(ctx context.Context) (*domain.UnifiedDashboard, error) {
	d := &domain.UnifiedDashboard{
		Bots:         s.bots.Summary(ctx),
		Agents:       s.agents.Summary(ctx),
		Products:     s.products.Summary(ctx),
		Analytics:    s.metrics.Summary(ctx),
		Integrations: s.integrations.Summary(ctx),
	}
	d.Revenue = domain.RevenueStats{
		Bots:     d.Bots.TotalRevenue,
		Agents:   d.Agents.TotalRevenue,
		Products: d.Products.TotalRevenue,
		Total:    d.Bots.TotalRevenue + d.Products.TotalRevenue,
	}
	d.Pending = d.PendingApprovals()
	return d, nil
}
