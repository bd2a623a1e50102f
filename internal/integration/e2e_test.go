package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aliuyar1234/propdesk/internal/app"
	"github.com/aliuyar1234/propdesk/internal/auth"
	"github.com/aliuyar1234/propdesk/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestE2E_IssueAndRedeemStaffInvite(t *testing.T) {
	_, dsn := newTestStore(t)

	cfg := &config.Config{
		Env:                "dev",
		HTTPAddr:           ":0",
		BaseURL:            "http://localhost",
		DBDSN:              dsn,
		JWTSecret:          "test-secret",
		LogLevel:           "error",
		RateLimitRPM:       120,
		RedeemRateLimitRPM: 20,
		SessionDays:        7,
		InviteCodeLength:   10,
		AuditRetentionDays: 365,
		SweepSchedule:      "*/15 * * * *",
	}

	application, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown(context.Background()) })

	srv := httptest.NewServer(application.Router)
	t.Cleanup(srv.Close)

	manager := newBrowser(t, srv.URL)
	manager.postJSON(t, "/api/v1/auth/signup", http.StatusCreated, map[string]any{
		"email":    "manager@example.com",
		"password": "password123",
	})

	orgResp := manager.postJSON(t, "/api/v1/orgs", http.StatusCreated, map[string]any{
		"name": "Acme Property Management",
		"slug": "acme",
	})
	var org struct {
		Org struct {
			ID uuid.UUID `json:"id"`
		} `json:"org"`
	}
	require.NoError(t, json.Unmarshal(orgResp.Data, &org))

	inviteResp := manager.postJSON(t, "/api/v1/orgs/"+org.Org.ID.String()+"/invites/staff", http.StatusCreated, map[string]any{})
	var issued struct {
		Invite struct {
			ID   uuid.UUID `json:"id"`
			Code string    `json:"code"`
		} `json:"invite"`
	}
	require.NoError(t, json.Unmarshal(inviteResp.Data, &issued))
	require.NotEmpty(t, issued.Invite.Code)

	worker := newBrowser(t, srv.URL)
	signupResp := worker.postJSON(t, "/api/v1/auth/signup", http.StatusCreated, map[string]any{
		"email":    "maintenance@example.com",
		"password": "password123",
	})
	var session auth.SessionResponse
	require.NoError(t, json.Unmarshal(signupResp.Data, &session))

	status, body := worker.post(t, "/api/v1/invites/staff/redeem", map[string]any{
		"invite_code": issued.Invite.Code,
		"user_id":     session.UserID.String(),
	})
	require.Equal(t, http.StatusOK, status, "body: %s", string(body))

	var redeemed map[string]any
	require.NoError(t, json.Unmarshal(body, &redeemed))
	require.Equal(t, true, redeemed["success"])
	require.Equal(t, org.Org.ID.String(), redeemed["organization_id"])
	require.Equal(t, "staff", redeemed["role"])
	require.Equal(t, issued.Invite.ID.String(), redeemed["invite_id"])
	require.NotEmpty(t, redeemed["staff_id"])

	status, body = worker.post(t, "/api/v1/invites/staff/redeem", map[string]any{
		"invite_code": issued.Invite.Code,
		"user_id":     session.UserID.String(),
	})
	require.Equal(t, http.StatusBadRequest, status)
	var errResp struct {
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Equal(t, "not_pending", errResp.Code)
	require.NotEmpty(t, errResp.RequestID)

	// Another user's id in the body is refused even with a valid session.
	status, _ = worker.post(t, "/api/v1/invites/staff/redeem", map[string]any{
		"invite_code": issued.Invite.Code,
		"user_id":     uuid.NewString(),
	})
	require.Equal(t, http.StatusForbidden, status)

	require.NoError(t, application.Sweeper().Run(context.Background()))
}

type envelopeResponse struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// browser is a cookie-carrying client that echoes the CSRF cookie in the
// X-CSRF-Token header, like the web console does.
type browser struct {
	client  *http.Client
	jar     *cookiejar.Jar
	baseURL *url.URL
}

func newBrowser(t *testing.T, rawURL string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	baseURL, err := url.Parse(rawURL)
	require.NoError(t, err)
	return &browser{client: &http.Client{Jar: jar}, jar: jar, baseURL: baseURL}
}

func (b *browser) csrfToken() string {
	for _, c := range b.jar.Cookies(b.baseURL) {
		if c.Name == auth.CSRFCookieName {
			return c.Value
		}
	}
	return ""
}

func (b *browser) post(t *testing.T, path string, payload any) (int, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, b.baseURL.String()+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token := b.csrfToken(); token != "" {
		req.Header.Set(auth.CSRFHeaderName, token)
	}

	resp, err := b.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBody
}

func (b *browser) postJSON(t *testing.T, path string, wantStatus int, payload any) envelopeResponse {
	t.Helper()

	status, body := b.post(t, path, payload)
	require.Equal(t, wantStatus, status, "body: %s", string(body))

	var env envelopeResponse
	require.NoError(t, json.Unmarshal(body, &env))
	require.NotEmpty(t, env.RequestID)
	return env
}
