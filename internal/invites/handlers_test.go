package invites

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aliuyar1234/propdesk/internal/apperrors"
	"github.com/aliuyar1234/propdesk/internal/auth"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Handle("/api/v1/invites/tenant/redeem", HandleRedeem(svc, domain.KindTenant))
	r.Handle("/api/v1/invites/staff/redeem", HandleRedeem(svc, domain.KindStaff))
	r.Route("/api/v1/orgs/{org_id}/invites/{kind}", func(r chi.Router) {
		r.Post("/", HandleIssue(svc))
		r.Get("/", HandleList(svc))
		r.Delete("/{invite_id}", HandleRevoke(svc))
	})
	return r
}

func doRequest(h http.Handler, method, path, body string, user uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req = req.WithContext(auth.WithUser(req.Context(), user, auth.AuthMethodBearer))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func redeemBody(code string, userID uuid.UUID) string {
	b, _ := json.Marshal(RedeemRequest{InviteCode: code, UserID: userID.String()})
	return string(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleRedeem_Success(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(f.svc)
	user := createUser(t, f.store)
	inv := f.insertInvite(t, domain.KindTenant, "HTTPCODE", nil)

	rec := doRequest(h, http.MethodPost, "/api/v1/invites/tenant/redeem", redeemBody("HTTPCODE", user.ID), user.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["success"])
	require.Equal(t, f.org.ID.String(), body["organization_id"])
	require.Equal(t, "tenant", body["role"])
	require.Equal(t, inv.ID.String(), body["invite_id"])
	require.NotEmpty(t, body["tenant_id"])
	require.NotContains(t, body, "staff_id")
}

func TestHandleRedeem_StaffResponseShape(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(f.svc)
	user := createUser(t, f.store)
	f.insertInvite(t, domain.KindStaff, "STAFFHTTP", nil)

	rec := doRequest(h, http.MethodPost, "/api/v1/invites/staff/redeem", redeemBody("STAFFHTTP", user.ID), user.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "staff", body["role"])
	require.NotEmpty(t, body["staff_id"])
}

func TestHandleRedeem_RequestErrors(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(f.svc)
	user := createUser(t, f.store)
	other := createUser(t, f.store)
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	f.insertInvite(t, domain.KindTenant, "EXPIRED1", &yesterday)
	used := f.insertInvite(t, domain.KindTenant, "USEDCODE", nil)
	_, err := f.svc.Redeem(context.Background(), domain.KindTenant, used.Code, other.ID.String())
	require.NoError(t, err)

	const path = "/api/v1/invites/tenant/redeem"
	tests := []struct {
		name       string
		method     string
		body       string
		user       uuid.UUID
		wantStatus int
		wantCode   string
	}{
		{"wrong method", http.MethodGet, "", user.ID, http.StatusMethodNotAllowed, "method_not_allowed"},
		{"no session", http.MethodPost, redeemBody("EXPIRED1", user.ID), uuid.Nil, http.StatusUnauthorized, "unauthorized"},
		{"not json", http.MethodPost, "invite_code=X", user.ID, http.StatusBadRequest, "malformed_request"},
		{"missing code", http.MethodPost, `{"user_id":"` + user.ID.String() + `"}`, user.ID, http.StatusBadRequest, "malformed_request"},
		{"missing user", http.MethodPost, `{"invite_code":"EXPIRED1"}`, user.ID, http.StatusBadRequest, "malformed_request"},
		{"other user", http.MethodPost, redeemBody("EXPIRED1", other.ID), user.ID, http.StatusForbidden, "forbidden"},
		{"unknown code", http.MethodPost, redeemBody("NOSUCHCODE", user.ID), user.ID, http.StatusNotFound, "invalid_code"},
		{"expired", http.MethodPost, redeemBody("EXPIRED1", user.ID), user.ID, http.StatusBadRequest, "expired"},
		{"already used", http.MethodPost, redeemBody("USEDCODE", user.ID), user.ID, http.StatusBadRequest, "not_pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, tt.method, path, tt.body, tt.user)
			require.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			require.Equal(t, tt.wantCode, resp.Code)
			require.NotEmpty(t, resp.Error)
		})
	}

	rec := doRequest(h, http.MethodGet, path, "", user.ID)
	require.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestHandleRedeem_RoleConflict(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(f.svc)
	f.insertInvite(t, domain.KindTenant, "CONFLICT", nil)

	// The organization owner already holds the owner role.
	rec := doRequest(h, http.MethodPost, "/api/v1/invites/tenant/redeem", redeemBody("CONFLICT", f.owner.ID), f.owner.ID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "role_conflict", decodeError(t, rec).Code)
}

func TestHandleRedeem_MissingConfiguration(t *testing.T) {
	h := newTestRouter(NewService(nil, Options{}))
	user := uuid.New()

	rec := doRequest(h, http.MethodPost, "/api/v1/invites/tenant/redeem", redeemBody("ABC123XY", user), user)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "missing_configuration", decodeError(t, rec).Code)
}

func TestHandleIssueListRevoke(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(f.svc)
	base := "/api/v1/orgs/" + f.org.ID.String() + "/invites/staff"

	rec := doRequest(h, http.MethodPost, base, "", f.owner.ID)
	require.Equal(t, http.StatusCreated, rec.Code)

	var issued struct {
		RequestID string `json:"request_id"`
		Data      struct {
			Invite InviteResponse `json:"invite"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	require.Len(t, issued.Data.Invite.Code, DefaultCodeLength)
	require.Equal(t, "staff", issued.Data.Invite.Kind)
	require.Equal(t, domain.InviteStatusPending, issued.Data.Invite.Status)

	rec = doRequest(h, http.MethodGet, base, "", f.owner.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data struct {
			Invites []InviteResponse `json:"invites"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data.Invites, 1)
	require.Equal(t, issued.Data.Invite.ID, listed.Data.Invites[0].ID)

	rec = doRequest(h, http.MethodDelete, base+"/"+issued.Data.Invite.ID.String(), "", f.owner.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, http.MethodDelete, base+"/"+issued.Data.Invite.ID.String(), "", f.owner.ID)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decodeError(t, rec).Code)
}

func TestHandleIssue_Errors(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(f.svc)
	outsider := createUser(t, f.store)
	orgPath := "/api/v1/orgs/" + f.org.ID.String()

	rec := doRequest(h, http.MethodPost, orgPath+"/invites/landlord", "", f.owner.ID)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(h, http.MethodPost, "/api/v1/orgs/not-a-uuid/invites/tenant", "", f.owner.ID)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodPost, orgPath+"/invites/tenant", "", outsider.ID)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(h, http.MethodPost, orgPath+"/invites/tenant", `{"expires_at":"2001-01-01T00:00:00Z"}`, f.owner.ID)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodPost, orgPath+"/invites/tenant", `{"expires_at":`, f.owner.ID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
