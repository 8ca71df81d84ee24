package domain

// UnifiedDashboard - главный экран консоли, собирается из сводок всех коллекций
type UnifiedDashboard struct {
	Revenue      RevenueStats     `json:"revenue"`
	Bots         BotStats         `json:"bots"`
	Agents       AgentStats       `json:"agents"`
	Products     ProductStats     `json:"products"`
	Analytics    MetricStats      `json:"analytics"`
	Integrations IntegrationStats `json:"integrations"`
	Pending      int              `json:"pending_approvals"`
}

type RevenueStats struct {
	Bots     float64 `json:"bots"`
	Agents   float64 `json:"agents"`
	Products float64 `json:"products"`
	Total    float64 `json:"total"` // Bots + Products, агенты продают тех же ботов
}

// PendingApprovals - очередь на экране Dashboard (агенты и товары в статусе pending)
func (d *UnifiedDashboard) PendingApprovals() int {
	return d.Agents.Pending + d.Products.Pending
}
