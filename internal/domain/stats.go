package domain

// Сводки пересчитываются из текущего списка на каждом чтении.

type BotStats struct {
	Total         int     `json:"total"`
	Online        int     `json:"online"`
	Offline       int     `json:"offline"`
	Maintenance   int     `json:"maintenance"`
	TotalMessages int64   `json:"total_messages"`
	TotalUsers    int64   `json:"total_users"`
	TotalRevenue  float64 `json:"total_revenue"`
}

type AgentStats struct {
	Total            int     `json:"total"`
	Active           int     `json:"active"`
	Pending          int     `json:"pending"`
	Inactive         int     `json:"inactive"`
	TotalBotsManaged int     `json:"total_bots_managed"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalCommission  float64 `json:"total_commission"` // Сумма revenue*rate/100
}

type ProductStats struct {
	Total        int     `json:"total"`
	Active       int     `json:"active"`
	Pending      int     `json:"pending"`
	OutOfStock   int     `json:"out_of_stock"`
	TotalStock   int     `json:"total_stock"`
	TotalSales   int     `json:"total_sales"`
	TotalRevenue float64 `json:"total_revenue"`
}

type MetricStats struct {
	Snapshots          int     `json:"snapshots"`
	TotalRevenue       float64 `json:"total_revenue"`
	TotalUsers         int64   `json:"total_users"`
	TotalConversations int64   `json:"total_conversations"`
	AvgConversionRate  float64 `json:"avg_conversion_rate"`
}

type IntegrationStats struct {
	Total        int     `json:"total"`
	Online       int     `json:"online"`
	Degraded     int     `json:"degraded"`
	Offline      int     `json:"offline"`
	AvgLatencyMs float64 `json:"avg_latency_ms"` // Только по online/degraded
}
