package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aliuyar1234/propdesk/internal/app"
	"github.com/aliuyar1234/propdesk/internal/auth"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/invites"
	"github.com/aliuyar1234/propdesk/internal/orgs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRunAdmin_Usage(t *testing.T) {
	require.Equal(t, 2, runAdmin(nil))
	require.Equal(t, 2, runAdmin([]string{"bogus"}))
	require.Equal(t, 0, runAdmin([]string{"help"}))
}

func TestRunAdmin_FlagErrors(t *testing.T) {
	t.Setenv("PD_DB_DSN", "")

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing dsn", args: []string{"migrate"}},
		{name: "unknown kind", args: []string{"issue-invite", "--kind", "landlord", "--org", uuid.NewString(), "--issuer", uuid.NewString()}},
		{name: "bad org", args: []string{"issue-invite", "--kind", "tenant", "--org", "nope", "--issuer", uuid.NewString()}},
		{name: "negative ttl", args: []string{"issue-invite", "--kind", "tenant", "--org", uuid.NewString(), "--issuer", uuid.NewString(), "--ttl", "-1h"}},
		{name: "short code", args: []string{"issue-invite", "--kind", "tenant", "--org", uuid.NewString(), "--issuer", uuid.NewString(), "--code-length", "4"}},
		{name: "long code", args: []string{"issue-invite", "--kind", "tenant", "--org", uuid.NewString(), "--issuer", uuid.NewString(), "--code-length", "64"}},
		{name: "missing email", args: []string{"reset-password"}},
		{name: "short password", args: []string{"reset-password", "--email", "a@example.com", "--password", "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, 2, runAdmin(tt.args))
		})
	}
}

func TestRunAdmin_SQLiteLifecycle(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "admin.db")
	t.Setenv("PD_DB_DSN", dsn)

	require.Equal(t, 0, runAdmin([]string{"migrate"}))

	ctx := context.Background()
	st, err := app.OpenStore(ctx, dsn, false)
	require.NoError(t, err)

	now := time.Now().UTC()
	owner := domain.User{ID: uuid.New(), Email: "owner@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Users().Create(ctx, owner))
	org, err := orgs.NewService(st).CreateWithOwner(ctx, "Acme", "acme", owner.ID)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	t.Setenv("PD_INVITE_CODE_LENGTH", "16")
	require.Equal(t, 0, runAdmin([]string{"issue-invite", "--kind", "staff", "--org", org.ID.String(), "--issuer", owner.ID.String()}))
	require.Equal(t, 0, runAdmin([]string{"issue-invite", "--kind", "tenant", "--org", org.ID.String(), "--issuer", owner.ID.String(), "--code-length", "12"}))
	require.Equal(t, 1, runAdmin([]string{"issue-invite", "--kind", "staff", "--org", org.ID.String(), "--issuer", uuid.NewString()}))

	require.Equal(t, 0, runAdmin([]string{"reset-password", "--email", "Owner@Example.com", "--password", "correct-horse"}))
	require.Equal(t, 1, runAdmin([]string{"reset-password", "--email", "nobody@example.com", "--password", "correct-horse"}))

	require.Equal(t, 0, runAdmin([]string{"expire-invites"}))

	st, err = app.OpenStore(ctx, dsn, false)
	require.NoError(t, err)
	defer st.Close()

	u, err := st.Users().GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	require.NoError(t, auth.VerifyPassword(u.PasswordHash, "correct-horse"))

	list, err := st.Invites().ListByOrg(ctx, domain.KindStaff, org.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, domain.InviteStatusPending, list[0].Status)
	require.Len(t, list[0].Code, 16)

	list, err = st.Invites().ListByOrg(ctx, domain.KindTenant, org.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Code, 12)
}

func TestEnvCodeLength(t *testing.T) {
	t.Setenv("PD_INVITE_CODE_LENGTH", "")
	require.Equal(t, invites.DefaultCodeLength, envCodeLength())

	t.Setenv("PD_INVITE_CODE_LENGTH", "20")
	require.Equal(t, 20, envCodeLength())

	t.Setenv("PD_INVITE_CODE_LENGTH", "twenty")
	require.Equal(t, -1, envCodeLength())
	require.Equal(t, 2, runAdmin([]string{"issue-invite", "--kind", "staff", "--org", uuid.NewString(), "--issuer", uuid.NewString()}))
}

func TestGeneratePassword(t *testing.T) {
	pw, err := generatePassword(24)
	require.NoError(t, err)
	require.Len(t, pw, 32)
	require.NoError(t, auth.ValidatePassword(pw))

	short, err := generatePassword(2)
	require.NoError(t, err)
	require.Len(t, short, 11)
}
