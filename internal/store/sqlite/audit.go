package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/google/uuid"
)

type auditRepo struct {
	q querier
}

func optionalUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
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

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO audit_log (id, organization_id, actor_user_id, action, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.ID.String(), optionalUUID(ev.OrganizationID), optionalUUID(ev.ActorUserID), ev.Action, string(metaJSON), formatTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]domain.AuditEvent, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT a.id, a.organization_id, a.actor_user_id, COALESCE(u.email, ''), a.action, a.meta, a.created_at
		FROM audit_log a
		LEFT JOIN users u ON a.actor_user_id = u.id
		WHERE a.organization_id = ?
		ORDER BY a.created_at DESC
		LIMIT ?
	`, orgID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var (
			ev        domain.AuditEvent
			org       uuid.NullUUID
			actor     uuid.NullUUID
			metaJSON  string
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &org, &actor, &ev.ActorEmail, &ev.Action, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if org.Valid {
			ev.OrganizationID = &org.UUID
		}
		if actor.Valid {
			ev.ActorUserID = &actor.UUID
		}
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &ev.Meta); err != nil {
				return nil, fmt.Errorf("failed to decode audit meta: %w", err)
			}
		}
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *auditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return res.RowsAffected()
}
