package invites

import (
	"errors"
	"net/http"
)

// Redemption outcomes other than success. Validation errors are returned
// before any write; ErrProvisioningFailure wraps the storage cause and means
// the transaction was rolled back.
var (
	ErrMalformedRequest     = errors.New("invite code and user id are required")
	ErrMissingConfiguration = errors.New("invite storage is not configured")
	ErrInvalidCode          = errors.New("invalid invite code")
	ErrNotPending           = errors.New("invite has already been used or revoked")
	ErrExpired              = errors.New("invite has expired")
	ErrRoleConflict         = errors.New("user already holds a different role")
	ErrProvisioningFailure  = errors.New("failed to provision account")
)

// Management errors.
var (
	ErrInviteNotFound     = errors.New("invite not found")
	ErrInvalidExpiry      = errors.New("expires_at must be in the future")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique invite code")
)

type errorKind struct {
	err    error
	status int
	code   string
}

var errorKinds = []errorKind{
	{ErrMalformedRequest, http.StatusBadRequest, "malformed_request"},
	{ErrMissingConfiguration, http.StatusInternalServerError, "missing_configuration"},
	{ErrInvalidCode, http.StatusNotFound, "invalid_code"},
	{ErrNotPending, http.StatusBadRequest, "not_pending"},
	{ErrExpired, http.StatusBadRequest, "expired"},
	{ErrRoleConflict, http.StatusBadRequest, "role_conflict"},
	{ErrProvisioningFailure, http.StatusInternalServerError, "provisioning_failure"},
	{ErrInviteNotFound, http.StatusNotFound, "not_found"},
	{ErrInvalidExpiry, http.StatusBadRequest, "bad_request"},
}

// ErrorCode returns the machine-readable code of err, "internal_error" for
// anything unrecognized.
func ErrorCode(err error) string {
	code, _ := classify(err)
	return code
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	_, status := classify(err)
	return status
}

// Message returns the client-facing message for err. Causes wrapped inside a
// known error are not exposed.
func Message(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.err.Error()
		}
	}
	return "internal error"
}

func classify(err error) (string, int) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.code, k.status
		}
	}
	return "internal_error", http.StatusInternalServerError
}
