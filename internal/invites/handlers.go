package invites

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aliuyar1234/propdesk/internal/apperrors"
	"github.com/aliuyar1234/propdesk/internal/auth"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/orgs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxRedeemBodyBytes = 16 << 10

// RedeemRequest is the body of POST /api/v1/invites/{kind}/redeem.
type RedeemRequest struct {
	InviteCode string `json:"invite_code"`
	UserID     string `json:"user_id"`
}

// IssueRequest is the body of POST /api/v1/orgs/{org_id}/invites/{kind}.
type IssueRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

type InviteResponse struct {
	ID             uuid.UUID           `json:"id"`
	Kind           string              `json:"kind"`
	Code           string              `json:"code"`
	OrganizationID uuid.UUID           `json:"organization_id"`
	Status         domain.InviteStatus `json:"status"`
	ExpiresAt      *time.Time          `json:"expires_at,omitempty"`
	RedeemedAt     *time.Time          `json:"redeemed_at,omitempty"`
	RedeemedBy     *uuid.UUID          `json:"redeemed_by,omitempty"`
	CreatedBy      uuid.UUID           `json:"created_by"`
	CreatedAt      time.Time           `json:"created_at"`
}

func toInviteResponse(inv domain.Invite) InviteResponse {
	return InviteResponse{
		ID:             inv.ID,
		Kind:           inv.Kind.Name,
		Code:           inv.Code,
		OrganizationID: inv.OrganizationID,
		Status:         inv.Status,
		ExpiresAt:      inv.ExpiresAt,
		RedeemedAt:     inv.RedeemedAt,
		RedeemedBy:     inv.RedeemedBy,
		CreatedBy:      inv.CreatedBy,
		CreatedAt:      inv.CreatedAt,
	}
}

// HandleRedeem handles POST /api/v1/invites/{kind}/redeem for one invite kind.
// Successful responses use the flat body existing clients expect:
//
//	{"success": true, "organization_id": ..., "role": ..., "invite_id": ..., "<kind>_id": ...}
func HandleRedeem(svc *Service, kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			apperrors.WriteMethodNotAllowed(w, r)
			return
		}

		if !svc.Configured() {
			log.Error().Str("kind", kind.Name).Msg("Invite redemption called without storage")
			writeServiceError(w, r, ErrMissingConfiguration)
			return
		}

		sessionUser := auth.GetUserID(r.Context())
		if sessionUser == uuid.Nil {
			apperrors.WriteUnauthorized(w, r, "Authentication required")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRedeemBodyBytes)
		var req RedeemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeServiceError(w, r, ErrMalformedRequest)
			return
		}

		req.InviteCode = strings.TrimSpace(req.InviteCode)
		req.UserID = strings.TrimSpace(req.UserID)
		if req.InviteCode == "" || req.UserID == "" {
			writeServiceError(w, r, ErrMalformedRequest)
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			writeServiceError(w, r, ErrMalformedRequest)
			return
		}
		if userID != sessionUser {
			log.Warn().
				Str("session_user", sessionUser.String()).
				Str("body_user", userID.String()).
				Msg("Invite redemption for another user rejected")
			apperrors.WriteForbidden(w, r, "Invites can only be redeemed for your own account")
			return
		}

		out, err := svc.Redeem(r.Context(), kind, req.InviteCode, req.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		apperrors.WriteJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"organization_id":   out.OrganizationID,
			"role":              out.Role,
			"invite_id":         out.InviteID,
			kind.ProfileIDField: out.ProfileID,
		})
	}
}

// HandleIssue handles POST /api/v1/orgs/{org_id}/invites/{kind}
func HandleIssue(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		kind, ok := parseKind(w, r)
		if !ok {
			return
		}
		orgID, ok := orgs.ParseOrgID(w, r)
		if !ok {
			return
		}

		var req IssueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		inv, err := svc.Issue(ctx, kind, orgID, auth.GetUserID(ctx), req.ExpiresAt)
		if err != nil {
			writeManagementError(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invite": toInviteResponse(*inv),
		})
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/invites/{kind}
func HandleList(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		kind, ok := parseKind(w, r)
		if !ok {
			return
		}
		orgID, ok := orgs.ParseOrgID(w, r)
		if !ok {
			return
		}

		invites, err := svc.List(ctx, kind, orgID, auth.GetUserID(ctx))
		if err != nil {
			writeManagementError(w, r, err)
			return
		}

		resp := make([]InviteResponse, len(invites))
		for i, inv := range invites {
			resp[i] = toInviteResponse(inv)
		}
		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invites": resp,
		})
	}
}

// HandleRevoke handles DELETE /api/v1/orgs/{org_id}/invites/{kind}/{invite_id}
func HandleRevoke(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		kind, ok := parseKind(w, r)
		if !ok {
			return
		}
		orgID, ok := orgs.ParseOrgID(w, r)
		if !ok {
			return
		}
		inviteID, err := uuid.Parse(chi.URLParam(r, "invite_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invite ID")
			return
		}

		if err := svc.Revoke(ctx, kind, orgID, inviteID, auth.GetUserID(ctx)); err != nil {
			writeManagementError(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}

func parseKind(w http.ResponseWriter, r *http.Request) (domain.Kind, bool) {
	kind, ok := domain.KindByName(chi.URLParam(r, "kind"))
	if !ok {
		apperrors.WriteNotFound(w, r, "Unknown invite kind")
		return domain.Kind{}, false
	}
	return kind, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Invite request failed")
	}
	apperrors.WriteError(w, r, status, ErrorCode(err), Message(err))
}

func writeManagementError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, orgs.ErrNotMember) || errors.Is(err, orgs.ErrInsufficientPermissions) {
		orgs.WritePermissionError(w, r, err)
		return
	}
	writeServiceError(w, r, err)
}
