package auth

import (
	"net/http"
	"time"
)

// SessionCookieName carries the session JWT for browser clients.
const SessionCookieName = "pd_session"

// lifetime is how long an issued session stays valid.
func (c SessionConfig) lifetime() time.Duration {
	return time.Duration(c.Days) * 24 * time.Hour
}

func sessionCookie(name, value string, maxAge int, httpOnly, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSessionCookie stores token in an HttpOnly cookie that expires with the
// session. Secure is set outside dev.
func SetSessionCookie(w http.ResponseWriter, token string, lifetime time.Duration, secure bool) {
	http.SetCookie(w, sessionCookie(SessionCookieName, token, int(lifetime/time.Second), true, secure))
}

// ClearSessionCookie expires the session cookie and its CSRF companion.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(SessionCookieName, "", -1, true, false))
	http.SetCookie(w, sessionCookie(CSRFCookieName, "", -1, false, false))
}

func GetSessionCookie(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
