package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/spaceai-console/internal/audit"
)

type AuditService struct {
	repo audit.Reader
}

func NewAuditService(repo audit.Reader) *AuditService {
	return &AuditService{
		repo: repo,
	}
}

// FetchLogs запрашивает журнал с фильтрацией по типу сущности и действию.
// Пустые фильтры не ограничивают выборку.
func (s *AuditService) FetchLogs(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	logs, err := s.repo.FetchLogs(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch logs: %w", err)
	}
	if logs == nil {
		return []audit.Event{}, nil
	}
	return logs, nil
}
