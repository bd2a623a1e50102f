package audit

import (
	"context"
	"fmt"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Reader struct {
	log store.AuditLog
}

func NewReader(l store.AuditLog) *Reader {
	return &Reader{log: l}
}

// ListByOrg returns the newest events of an organization. Out-of-range limits
// fall back to DefaultListLimit.
func (r *Reader) ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}

	events, err := r.log.ListByOrg(ctx, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}

	for i := range events {
		if events[i].Meta == nil {
			events[i].Meta = map[string]any{}
		}
	}
	return events, nil
}
