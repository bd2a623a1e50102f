package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryLog struct {
	events    []domain.AuditEvent
	appendErr error
	lastLimit int
}

func (m *memoryLog) Append(_ context.Context, ev domain.AuditEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memoryLog) ListByOrg(_ context.Context, orgID uuid.UUID, limit int) ([]domain.AuditEvent, error) {
	m.lastLimit = limit
	var out []domain.AuditEvent
	for _, ev := range m.events {
		if ev.OrganizationID != nil && *ev.OrganizationID == orgID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memoryLog) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestWriter_LogInviteRedeemed(t *testing.T) {
	l := &memoryLog{}
	w := NewWriter(l)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	orgID, userID, inviteID, profileID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, w.LogInviteRedeemed(context.Background(), domain.KindStaff, orgID, userID, inviteID, profileID))

	require.Len(t, l.events, 1)
	ev := l.events[0]
	require.Equal(t, EventInviteRedeemed, ev.Action)
	require.Equal(t, orgID, *ev.OrganizationID)
	require.Equal(t, userID, *ev.ActorUserID)
	require.Equal(t, fixed, ev.CreatedAt)
	require.Equal(t, profileID.String(), ev.Meta["staff_id"])
	require.Equal(t, "staff", ev.Meta["kind"])
}

func TestWriter_PropagatesStoreError(t *testing.T) {
	boom := errors.New("disk full")
	w := NewWriter(&memoryLog{appendErr: boom})
	require.ErrorIs(t, w.LogUserSignup(context.Background(), uuid.New(), "a@example.com"), boom)
}

func TestReader_ClampsLimit(t *testing.T) {
	l := &memoryLog{}
	orgID := uuid.New()
	require.NoError(t, NewWriter(l).LogOrgCreated(context.Background(), orgID, uuid.New(), "acme"))

	r := NewReader(l)
	events, err := r.ListByOrg(context.Background(), orgID, 10_000)
	require.NoError(t, err)
	require.Equal(t, DefaultListLimit, l.lastLimit)
	require.Len(t, events, 1)
	require.Equal(t, "acme", events[0].Meta["slug"])
}
