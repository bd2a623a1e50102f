package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aliuyar1234/propdesk/internal/audit"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/invites"
	"github.com/aliuyar1234/propdesk/internal/orgs"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, st store.Store) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func setupOrg(t *testing.T, st store.Store) (domain.User, *domain.Organization, *invites.Service) {
	t.Helper()
	owner := createUser(t, st)
	org, err := orgs.NewService(st).CreateWithOwner(context.Background(), "Acme", "acme-"+randomHex(t, 3), owner.ID)
	require.NoError(t, err)

	svc := invites.NewService(st, invites.Options{Auditor: audit.NewWriter(st.Audit())})
	return owner, org, svc
}

func TestIntegration_ConcurrentRedemptionHasOneWinner(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	owner, org, svc := setupOrg(t, st)

	inv, err := svc.Issue(ctx, domain.KindTenant, org.ID, owner.ID, nil)
	require.NoError(t, err)

	const attempts = 16
	users := make([]domain.User, attempts)
	for i := range users {
		users[i] = createUser(t, st)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]*invites.Outcome, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = svc.Redeem(ctx, domain.KindTenant, inv.Code, users[i].ID.String())
		}(i)
	}
	close(start)
	wg.Wait()

	var winner uuid.UUID
	for i, err := range errs {
		if err == nil {
			require.Equal(t, uuid.Nil, winner, "more than one redemption succeeded")
			winner = users[i].ID
			require.Equal(t, org.ID, results[i].OrganizationID)
			continue
		}
		require.ErrorIs(t, err, invites.ErrNotPending)
	}
	require.NotEqual(t, uuid.Nil, winner)

	stored, err := st.Invites().GetByID(ctx, domain.KindTenant, inv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusRedeemed, stored.Status)
	require.Equal(t, winner, *stored.RedeemedBy)

	// Losers were not provisioned.
	var profiles, roles int
	require.NoError(t, st.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&profiles))
	require.NoError(t, st.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM user_roles WHERE role = 'tenant'`).Scan(&roles))
	require.Equal(t, 1, profiles)
	require.Equal(t, 1, roles)
}

func TestIntegration_ConcurrentKindsForOneUserConflict(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	owner, org, svc := setupOrg(t, st)

	tenantInv, err := svc.Issue(ctx, domain.KindTenant, org.ID, owner.ID, nil)
	require.NoError(t, err)
	staffInv, err := svc.Issue(ctx, domain.KindStaff, org.ID, owner.ID, nil)
	require.NoError(t, err)

	user := createUser(t, st)

	var wg sync.WaitGroup
	start := make(chan struct{})
	var tenantErr, staffErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, tenantErr = svc.Redeem(ctx, domain.KindTenant, tenantInv.Code, user.ID.String())
	}()
	go func() {
		defer wg.Done()
		<-start
		_, staffErr = svc.Redeem(ctx, domain.KindStaff, staffInv.Code, user.ID.String())
	}()
	close(start)
	wg.Wait()

	// Exactly one kind wins; the other sees the committed role.
	if tenantErr == nil {
		require.ErrorIs(t, staffErr, invites.ErrRoleConflict)
	} else {
		require.NoError(t, staffErr)
		require.ErrorIs(t, tenantErr, invites.ErrRoleConflict)
	}

	var pending int
	require.NoError(t, st.Pool().QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM tenant_invites WHERE status = 'pending')
		     + (SELECT COUNT(*) FROM staff_invites WHERE status = 'pending')
	`).Scan(&pending))
	require.Equal(t, 1, pending, "the losing invite stays redeemable")
}

func TestIntegration_ExpiredInviteIsNotStored(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	owner, org, svc := setupOrg(t, st)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	inv := domain.Invite{
		ID:             uuid.New(),
		Kind:           domain.KindStaff,
		Code:           "ABC123XY",
		OrganizationID: org.ID,
		Status:         domain.InviteStatusPending,
		ExpiresAt:      &yesterday,
		CreatedBy:      owner.ID,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, st.Invites().Create(ctx, inv))

	user := createUser(t, st)
	_, err := svc.Redeem(ctx, domain.KindStaff, "ABC123XY", user.ID.String())
	require.ErrorIs(t, err, invites.ErrExpired)

	stored, err := st.Invites().GetByID(ctx, domain.KindStaff, inv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusPending, stored.Status)

	counts, err := svc.ExpireStale(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[domain.KindStaff.Name])

	stored, err = st.Invites().GetByID(ctx, domain.KindStaff, inv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusExpired, stored.Status)

	_, err = svc.Redeem(ctx, domain.KindStaff, "ABC123XY", user.ID.String())
	require.ErrorIs(t, err, invites.ErrExpired)
}
