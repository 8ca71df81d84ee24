package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/spaceai-console/internal/audit"
)

// AuditRepo - Sink и Reader журнала аудита
type AuditRepo struct {
	db *DB
}

func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

var auditColumns = []string{"id", "request_id", "actor", "entity", "entity_id", "action", "status", "detail", "timestamp"}

// WriteBatch пишет пачку через COPY, это быстрее многострочного INSERT
func (r *AuditRepo) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		var detail []byte
		if len(e.Detail) > 0 {
			detail, _ = json.Marshal(e.Detail)
		}
		rows = append(rows, []any{
			e.ID, e.RequestID, e.Actor, e.Entity, e.EntityID, e.Action, e.Status, detail, e.Timestamp,
		})
	}

	_, err := r.db.pool.CopyFrom(ctx, pgx.Identifier{"audit_logs"}, auditColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("postgres: failed to copy audit batch: %w", err)
	}
	return nil
}

// FetchLogs возвращает события от новых к старым; пустые фильтры не ограничивают выборку
func (r *AuditRepo) FetchLogs(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	query := `SELECT id, request_id, actor, entity, entity_id, action, status, detail, timestamp FROM audit_logs`

	var where []string
	var args []any
	if f.Entity != "" {
		args = append(args, f.Entity)
		where = append(where, fmt.Sprintf("entity = $%d", len(args)))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.EffectiveLimit())
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit logs: %w", err)
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	results := make([]audit.Event, 0)
	for rows.Next() {
		var e audit.Event
		var detail []byte
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Actor, &e.Entity, &e.EntityID, &e.Action, &e.Status, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit event: %w", err)
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Detail)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}
