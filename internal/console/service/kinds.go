package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/spaceai-console/internal/domain"
	"github.com/xela07ax/spaceai-console/internal/entity"
)

// Имена коллекций: сегмент URL, ключ в KV и поле entity в аудите
const (
	KindBots         = "bots"
	KindAgents       = "agents"
	KindProducts     = "products"
	KindMetrics      = "metrics"
	KindIntegrations = "integrations"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{entity.ErrInvalid}, args...)...)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if v < 0 {
		return invalid("%s must not be negative", field)
	}
	return nil
}

func percent(field string, v float64) error {
	if v < 0 || v > 100 {
		return invalid("%s must be within 0..100", field)
	}
	return nil
}

// validEmail - одна "@" и непустые части по обе стороны
func validEmail(email string) error {
	email = strings.TrimSpace(email)
	local, host, ok := strings.Cut(email, "@")
	if !ok || local == "" || host == "" || strings.Contains(host, "@") {
		return invalid("email %q is malformed", email)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func BotKind(seed func() []domain.Bot) entity.Kind[domain.Bot, domain.BotStats] {
	return entity.Kind[domain.Bot, domain.BotStats]{
		Name:          KindBots,
		Statuses:      []string{string(domain.BotOnline), string(domain.BotOffline), string(domain.BotMaintenance)},
		DefaultStatus: string(domain.BotOffline),
		Actions: map[string]string{
			"start":    string(domain.BotOnline),
			"stop":     string(domain.BotOffline),
			"maintain": string(domain.BotMaintenance),
		},
		ID:        func(b domain.Bot) string { return b.ID },
		SetID:     func(b *domain.Bot, id string) { b.ID = id },
		Status:    func(b domain.Bot) string { return string(b.Status) },
		SetStatus: func(b *domain.Bot, s string) { b.Status = domain.BotStatus(s) },
		Stamp:     func(b *domain.Bot, t time.Time) { b.CreatedAt = t },
		CreatedAt: func(b domain.Bot) time.Time { return b.CreatedAt },
		Validate: func(b domain.Bot) error {
			return firstErr(
				required("name", b.Name),
				nonNegative("messages", float64(b.Messages)),
				nonNegative("users", float64(b.Users)),
				nonNegative("revenue", b.Revenue),
			)
		},
		SearchText: func(b domain.Bot) string {
			return b.Name + " " + b.Description + " " + b.Platform + " " + b.Owner
		},
		Summarize: SummarizeBots,
		Seed:      seed,
	}
}

func SummarizeBots(bots []domain.Bot) domain.BotStats {
	st := domain.BotStats{Total: len(bots)}
	for _, b := range bots {
		switch b.Status {
		case domain.BotOnline:
			st.Online++
		case domain.BotOffline:
			st.Offline++
		case domain.BotMaintenance:
			st.Maintenance++
		}
		st.TotalMessages += b.Messages
		st.TotalUsers += b.Users
		st.TotalRevenue += b.Revenue
	}
	return st
}

func AgentKind(seed func() []domain.Agent) entity.Kind[domain.Agent, domain.AgentStats] {
	return entity.Kind[domain.Agent, domain.AgentStats]{
		Name:          KindAgents,
		Statuses:      []string{string(domain.AgentPending), string(domain.AgentActive), string(domain.AgentInactive)},
		DefaultStatus: string(domain.AgentPending),
		Actions: map[string]string{
			"approve":    string(domain.AgentActive),
			"activate":   string(domain.AgentActive),
			"deactivate": string(domain.AgentInactive),
		},
		ID:        func(a domain.Agent) string { return a.ID },
		SetID:     func(a *domain.Agent, id string) { a.ID = id },
		Status:    func(a domain.Agent) string { return string(a.Status) },
		SetStatus: func(a *domain.Agent, s string) { a.Status = domain.AgentStatus(s) },
		Stamp:     func(a *domain.Agent, t time.Time) { a.CreatedAt = t },
		CreatedAt: func(a domain.Agent) time.Time { return a.CreatedAt },
		Validate: func(a domain.Agent) error {
			if err := firstErr(required("name", a.Name), required("email", a.Email)); err != nil {
				return err
			}
			return firstErr(
				validEmail(a.Email),
				nonNegative("bots_managed", float64(a.BotsManaged)),
				nonNegative("revenue", a.Revenue),
				percent("commission_rate", a.CommissionRate),
			)
		},
		SearchText: func(a domain.Agent) string {
			return a.Name + " " + a.Email + " " + a.Region
		},
		Summarize: SummarizeAgents,
		Seed:      seed,
	}
}

func SummarizeAgents(agents []domain.Agent) domain.AgentStats {
	st := domain.AgentStats{Total: len(agents)}
	for _, a := range agents {
		switch a.Status {
		case domain.AgentActive:
			st.Active++
		case domain.AgentPending:
			st.Pending++
		case domain.AgentInactive:
			st.Inactive++
		}
		st.TotalBotsManaged += a.BotsManaged
		st.TotalRevenue += a.Revenue
		st.TotalCommission += a.Revenue * a.CommissionRate / 100
	}
	return st
}

func ProductKind(seed func() []domain.Product) entity.Kind[domain.Product, domain.ProductStats] {
	return entity.Kind[domain.Product, domain.ProductStats]{
		Name:          KindProducts,
		Statuses:      []string{string(domain.ProductPending), string(domain.ProductActive), string(domain.ProductInactive)},
		DefaultStatus: string(domain.ProductPending),
		Actions: map[string]string{
			"approve":    string(domain.ProductActive),
			"activate":   string(domain.ProductActive),
			"deactivate": string(domain.ProductInactive),
		},
		ID:        func(p domain.Product) string { return p.ID },
		SetID:     func(p *domain.Product, id string) { p.ID = id },
		Status:    func(p domain.Product) string { return string(p.Status) },
		SetStatus: func(p *domain.Product, s string) { p.Status = domain.ProductStatus(s) },
		Stamp:     func(p *domain.Product, t time.Time) { p.CreatedAt = t },
		CreatedAt: func(p domain.Product) time.Time { return p.CreatedAt },
		Validate: func(p domain.Product) error {
			return firstErr(
				required("name", p.Name),
				nonNegative("price", p.Price),
				nonNegative("stock", float64(p.Stock)),
				nonNegative("sales", float64(p.Sales)),
				nonNegative("revenue", p.Revenue),
			)
		},
		SearchText: func(p domain.Product) string {
			return p.Name + " " + p.Description + " " + p.Category + " " + p.SKU
		},
		Summarize: SummarizeProducts,
		Seed:      seed,
	}
}

func SummarizeProducts(products []domain.Product) domain.ProductStats {
	st := domain.ProductStats{Total: len(products)}
	for _, p := range products {
		switch p.Status {
		case domain.ProductActive:
			st.Active++
		case domain.ProductPending:
			st.Pending++
		}
		if p.Stock == 0 {
			st.OutOfStock++
		}
		st.TotalStock += p.Stock
		st.TotalSales += p.Sales
		st.TotalRevenue += p.Revenue
	}
	return st
}

// MetricKind - снапшоты аналитики без статусов: UpdateStatus всегда отклоняется
func MetricKind(seed func() []domain.MetricSnapshot) entity.Kind[domain.MetricSnapshot, domain.MetricStats] {
	return entity.Kind[domain.MetricSnapshot, domain.MetricStats]{
		Name:      KindMetrics,
		ID:        func(m domain.MetricSnapshot) string { return m.ID },
		SetID:     func(m *domain.MetricSnapshot, id string) { m.ID = id },
		Stamp:     func(m *domain.MetricSnapshot, t time.Time) { m.CreatedAt = t },
		CreatedAt: func(m domain.MetricSnapshot) time.Time { return m.CreatedAt },
		Validate: func(m domain.MetricSnapshot) error {
			return firstErr(
				required("period", m.Period),
				nonNegative("revenue", m.Revenue),
				nonNegative("users", float64(m.Users)),
				nonNegative("conversations", float64(m.Conversations)),
				percent("conversion_rate", m.ConversionRate),
			)
		},
		SearchText: func(m domain.MetricSnapshot) string { return m.Period },
		Summarize:  SummarizeMetrics,
		Seed:       seed,
	}
}

func SummarizeMetrics(snaps []domain.MetricSnapshot) domain.MetricStats {
	st := domain.MetricStats{Snapshots: len(snaps)}
	var rate float64
	for _, m := range snaps {
		st.TotalRevenue += m.Revenue
		st.TotalUsers += m.Users
		st.TotalConversations += m.Conversations
		rate += m.ConversionRate
	}
	if len(snaps) > 0 {
		st.AvgConversionRate = rate / float64(len(snaps))
	}
	return st
}

func IntegrationKind(seed func() []domain.Integration) entity.Kind[domain.Integration, domain.IntegrationStats] {
	return entity.Kind[domain.Integration, domain.IntegrationStats]{
		Name: KindIntegrations,
		Statuses: []string{
			string(domain.IntegrationOnline),
			string(domain.IntegrationOffline),
			string(domain.IntegrationDegraded),
		},
		DefaultStatus: string(domain.IntegrationOffline),
		ID:            func(i domain.Integration) string { return i.ID },
		SetID:         func(i *domain.Integration, id string) { i.ID = id },
		Status:        func(i domain.Integration) string { return string(i.Status) },
		SetStatus:     func(i *domain.Integration, s string) { i.Status = domain.IntegrationStatus(s) },
		Stamp:         func(i *domain.Integration, t time.Time) { i.CreatedAt = t },
		CreatedAt:     func(i domain.Integration) time.Time { return i.CreatedAt },
		// Результаты проверок пишет только монитор
		Preserve: func(dst *domain.Integration, orig domain.Integration) {
			dst.LatencyMs = orig.LatencyMs
			dst.LastCheck = orig.LastCheck
			dst.LastError = orig.LastError
		},
		Validate: func(i domain.Integration) error {
			if err := firstErr(required("name", i.Name), required("kind", string(i.Kind))); err != nil {
				return err
			}
			switch i.Kind {
			case domain.ProbeGRPC, domain.ProbeHTTP:
				if strings.TrimSpace(i.Endpoint) == "" {
					return invalid("endpoint is required for %s probes", i.Kind)
				}
			case domain.ProbeMock:
			default:
				return invalid("unknown probe kind %q", i.Kind)
			}
			return nonNegative("latency_ms", float64(i.LatencyMs))
		},
		SearchText: func(i domain.Integration) string {
			return i.Name + " " + string(i.Kind) + " " + i.Endpoint
		},
		Summarize: SummarizeIntegrations,
		Seed:      seed,
	}
}

func SummarizeIntegrations(items []domain.Integration) domain.IntegrationStats {
	st := domain.IntegrationStats{Total: len(items)}
	var latency int64
	var up int
	for _, i := range items {
		switch i.Status {
		case domain.IntegrationOnline:
			st.Online++
		case domain.IntegrationDegraded:
			st.Degraded++
		case domain.IntegrationOffline:
			st.Offline++
			continue
		}
		latency += i.LatencyMs
		up++
	}
	if up > 0 {
		st.AvgLatencyMs = float64(latency) / float64(up)
	}
	return st
}
