package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

const (
	// CSRFCookieName is the name of the CSRF cookie
	CSRFCookieName = "_csrf"

	// CSRFHeaderName carries the double-submitted token
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFTokenBytes is the number of random bytes for CSRF tokens
	CSRFTokenBytes = 32
)

var (
	ErrCSRFMissingCookie = errors.New("missing CSRF cookie")
	ErrCSRFMissingToken  = errors.New("missing CSRF token in request")
	ErrCSRFMismatch      = errors.New("CSRF token mismatch")
)

// GenerateCSRFToken generates a cryptographically secure CSRF token
// Returns a base64url-encoded 32-byte random token
func GenerateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// SetCSRFCookie sets the CSRF token in a cookie
// Uses double-submit cookie pattern for CSRF protection
func SetCSRFCookie(w http.ResponseWriter, token string, isProduction bool) {
	// Not HttpOnly: the browser client reads it to echo it back.
	http.SetCookie(w, sessionCookie(CSRFCookieName, token, 0, false, isProduction))
}

// GetCSRFCookie reads the CSRF token from the cookie
func GetCSRFCookie(r *http.Request) string {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ValidateCSRF compares the X-CSRF-Token header with the CSRF cookie.
func ValidateCSRF(r *http.Request) error {
	cookieToken := GetCSRFCookie(r)
	if cookieToken == "" {
		return ErrCSRFMissingCookie
	}

	headerToken := r.Header.Get(CSRFHeaderName)
	if headerToken == "" {
		return ErrCSRFMissingToken
	}

	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
		return ErrCSRFMismatch
	}

	return nil
}

// NeedsCSRF reports whether r must carry a CSRF token: mutating requests that
// rely on the ambient session cookie. Bearer-authenticated and anonymous
// requests cannot be forged cross-site through cookies.
func NeedsCSRF(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	return GetAuthMethod(r.Context()) == AuthMethodCookie
}
