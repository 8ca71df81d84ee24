package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-console/internal/audit"
	"github.com/xela07ax/spaceai-console/internal/domain"
	"github.com/xela07ax/spaceai-console/internal/entity"
	"github.com/xela07ax/spaceai-console/internal/metrics"
)

// Integrations - то, что монитору нужно от коллекции интеграций
type Integrations interface {
	List(ctx context.Context, f entity.Filter) []domain.Integration
	Get(ctx context.Context, id string) (domain.Integration, error)
	Replace(ctx context.Context, id, action string, detail map[string]any, fn func(*domain.Integration) error) (domain.Integration, error)
}

// Monitor периодически проверяет все интеграции и пишет статус обратно в коллекцию
type Monitor struct {
	items    Integrations
	checker  *Checker
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewMonitor(items Integrations, checker *Checker, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	return &Monitor{
		items:    items,
		checker:  checker,
		interval: interval,
		metrics:  m,
		logger:   logger.Named("health-monitor"),
	}
}

// Run проверяет всё сразу и затем раз в interval, пока не отменен ctx
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("integration monitor started", zap.Duration("interval", m.interval))
	m.CheckAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("integration monitor stopped")
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

func (m *Monitor) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, in := range m.items.List(ctx, entity.Filter{}) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.check(ctx, in); err != nil && !errors.Is(err, entity.ErrNotFound) {
				m.logger.Error("failed to record integration status", zap.String("id", in.ID), zap.Error(err))
			}
		}()
	}
	wg.Wait()
}

// CheckNow - внеочередная проверка по кнопке оператора
func (m *Monitor) CheckNow(ctx context.Context, id string) (domain.Integration, error) {
	in, err := m.items.Get(ctx, id)
	if err != nil {
		return in, err
	}
	return m.check(ctx, in)
}

func (m *Monitor) check(ctx context.Context, in domain.Integration) (domain.Integration, error) {
	out := m.checker.Check(ctx, in)

	m.metrics.IntegrationChecks.WithLabelValues(string(in.Kind), string(out.Status)).Inc()
	m.metrics.IntegrationLatency.WithLabelValues(string(in.Kind)).Observe(out.Latency.Seconds())

	lastErr := ""
	if out.Err != nil {
		lastErr = out.Err.Error()
		m.logger.Debug("integration probe failed", zap.String("id", in.ID), zap.Error(out.Err))
	}
	detail := map[string]any{"latency_ms": out.Latency.Milliseconds()}
	if lastErr != "" {
		detail["error"] = lastErr
	}

	updated, err := m.items.Replace(ctx, in.ID, audit.ActionCheck, detail, func(cur *domain.Integration) error {
		cur.Status = out.Status
		cur.LatencyMs = out.Latency.Milliseconds()
		cur.LastCheck = time.Now().UTC()
		cur.LastError = lastErr
		return nil
	})
	if errors.Is(err, entity.ErrNotFound) {
		m.checker.Forget(in.ID)
	}
	return updated, err
}
