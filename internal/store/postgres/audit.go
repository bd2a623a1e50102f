package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/google/uuid"
)

type auditRepo struct {
	q querier
}

func (r *auditRepo) Append(ctx context.Context, ev domain.AuditEvent) error {
	meta := ev.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal audit meta: %w", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO audit_log (id, organization_id, actor_user_id, action, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.ID, ev.OrganizationID, ev.ActorUserID, ev.Action, metaJSON, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]domain.AuditEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT a.id, a.organization_id, a.actor_user_id, COALESCE(u.email, ''), a.action, a.meta, a.created_at
		FROM audit_log a
		LEFT JOIN users u ON a.actor_user_id = u.id
		WHERE a.organization_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var ev domain.AuditEvent
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.OrganizationID, &ev.ActorUserID, &ev.ActorEmail, &ev.Action, &metaJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &ev.Meta); err != nil {
				return nil, fmt.Errorf("failed to decode audit meta: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *auditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}
