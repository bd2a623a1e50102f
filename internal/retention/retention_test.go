package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aliuyar1234/propdesk/internal/audit"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryLog struct {
	events []domain.AuditEvent
}

func (m *memoryLog) Append(_ context.Context, ev domain.AuditEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memoryLog) ListByOrg(context.Context, uuid.UUID, int) ([]domain.AuditEvent, error) {
	return nil, nil
}

func (m *memoryLog) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.AuditEvent
	var deleted int64
	for _, ev := range m.events {
		if ev.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return deleted, nil
}

type stubExpirer struct {
	counts map[string]int64
	err    error
	calls  int
}

func (s *stubExpirer) ExpireStale(context.Context) (map[string]int64, error) {
	s.calls++
	return s.counts, s.err
}

func TestPruneAuditLog(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	l := &memoryLog{events: []domain.AuditEvent{
		{ID: uuid.New(), Action: "old", CreatedAt: now.AddDate(0, 0, -40)},
		{ID: uuid.New(), Action: "recent", CreatedAt: now.AddDate(0, 0, -5)},
	}}

	deleted, err := PruneAuditLog(context.Background(), l, audit.NewWriter(l), 30, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var actions []string
	for _, ev := range l.events {
		actions = append(actions, ev.Action)
	}
	require.Equal(t, []string{"recent", audit.EventAuditLogPruned}, actions)

	deleted, err = PruneAuditLog(context.Background(), l, audit.NewWriter(l), 30, now)
	require.NoError(t, err)
	require.Zero(t, deleted)
	require.Len(t, l.events, 2)
}

func TestPruneAuditLog_RejectsNonPositiveRetention(t *testing.T) {
	_, err := PruneAuditLog(context.Background(), &memoryLog{}, nil, 0, time.Now())
	require.Error(t, err)
}

func TestJobRun(t *testing.T) {
	expirer := &stubExpirer{counts: map[string]int64{"tenant": 2, "staff": 0}}
	job := Job{
		Invites:            expirer,
		AuditLog:           &memoryLog{},
		AuditRetentionDays: 365,
	}

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, expirer.calls)
}

func TestJobRun_ExpiryFailure(t *testing.T) {
	job := Job{
		Invites:            &stubExpirer{err: errors.New("connection reset")},
		AuditLog:           &memoryLog{},
		AuditRetentionDays: 365,
	}

	err := job.Run(context.Background())
	require.ErrorContains(t, err, "invite expiry failed")
}
