// Package retention holds the periodic housekeeping jobs: moving stale
// pending invites to expired and pruning old audit rows.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/aliuyar1234/propdesk/internal/audit"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/rs/zerolog/log"
)

// InviteExpirer is implemented by invites.Service.
type InviteExpirer interface {
	ExpireStale(ctx context.Context) (map[string]int64, error)
}

// PruneAuditLog deletes audit events older than retentionDays and records the
// deletion itself as an audit event. The function is idempotent.
//
// Returns the number of rows deleted.
func PruneAuditLog(ctx context.Context, auditLog store.AuditLog, auditor *audit.Writer, retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("audit retention must be positive (got: %d)", retentionDays)
	}

	cutoff := now.UTC().AddDate(0, 0, -retentionDays)
	deleted, err := auditLog.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}

	if deleted > 0 && auditor != nil {
		if err := auditor.LogAuditPruned(ctx, deleted, cutoff); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}
	}
	return deleted, nil
}

// Job bundles what one sweep needs.
type Job struct {
	Invites            InviteExpirer
	AuditLog           store.AuditLog
	Auditor            *audit.Writer
	AuditRetentionDays int
	Now                func() time.Time
}

// Run expires stale invites and prunes the audit log, logging the results.
// This is the entry point called by the cron scheduler and the admin CLI.
func (j Job) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	log.Info().
		Int("audit_retention_days", j.AuditRetentionDays).
		Msg("Starting sweep")

	startTime := time.Now()

	expired, err := j.Invites.ExpireStale(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to expire stale invites")
		return fmt.Errorf("invite expiry failed: %w", err)
	}

	pruned, err := PruneAuditLog(ctx, j.AuditLog, j.Auditor, j.AuditRetentionDays, now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune audit log")
		return fmt.Errorf("audit pruning failed: %w", err)
	}

	event := log.Info().
		Int64("audit_events_deleted", pruned).
		Dur("duration", time.Since(startTime))
	for kind, n := range expired {
		event = event.Int64(kind+"_invites_expired", n)
	}
	event.Msg("Sweep completed")

	return nil
}
