package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/aliuyar1234/propdesk/internal/apperrors"
	"github.com/aliuyar1234/propdesk/internal/audit"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionConfig controls how sessions are issued.
type SessionConfig struct {
	Secret       string
	Days         int
	IsProduction bool
}

// Credentials is the signup and login request payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by signup and login. Token is the same JWT that
// is set as the session cookie, for clients that send it as a Bearer token.
type SessionResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Token  string    `json:"token"`
}

// HandleSignup processes user registration
func HandleSignup(users store.Users, auditor *audit.Writer, cfg SessionConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := normalizeEmail(req.Email)
		if !isValidEmail(email) {
			apperrors.WriteBadRequest(w, r, "Invalid email address")
			return
		}
		if err := ValidatePassword(req.Password); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		now := time.Now().UTC()
		user := domain.User{
			ID:           uuid.New(),
			Email:        email,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(r.Context(), user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				apperrors.WriteConflict(w, r, "Email address already registered")
				return
			}
			log.Error().Err(err).Str("email", email).Msg("Failed to insert user")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		if err := auditor.LogUserSignup(r.Context(), user.ID, email); err != nil {
			log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to create audit log")
		}

		token, ok := startSession(w, r, user.ID, cfg)
		if !ok {
			return
		}

		log.Info().
			Str("user_id", user.ID.String()).
			Str("email", email).
			Msg("User signed up successfully")

		apperrors.WriteSuccess(w, r, http.StatusCreated, SessionResponse{
			UserID: user.ID,
			Email:  email,
			Token:  token,
		})
	}
}

// HandleLogin processes user authentication
func HandleLogin(users store.Users, auditor *audit.Writer, cfg SessionConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := normalizeEmail(req.Email)
		if email == "" || req.Password == "" {
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		user, err := users.GetByEmail(r.Context(), email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Debug().Str("email", email).Msg("Login failed: user not found")
				loginFailed(w, r, auditor, email)
				return
			}
			log.Error().Err(err).Str("email", email).Msg("Failed to query user")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		if err := VerifyPassword(user.PasswordHash, req.Password); err != nil {
			log.Debug().Str("email", email).Msg("Login failed: wrong password")
			loginFailed(w, r, auditor, email)
			return
		}

		token, ok := startSession(w, r, user.ID, cfg)
		if !ok {
			return
		}

		log.Info().
			Str("user_id", user.ID.String()).
			Str("email", email).
			Msg("User logged in successfully")

		apperrors.WriteSuccess(w, r, http.StatusOK, SessionResponse{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
	}
}

// HandleLogout clears the session cookies. Bearer tokens stay valid until
// they expire.
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w)

	if userID := GetUserID(r.Context()); userID != uuid.Nil {
		log.Info().Str("user_id", userID.String()).Msg("User logged out")
	}

	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
		"logged_out": true,
	})
}

func startSession(w http.ResponseWriter, r *http.Request, userID uuid.UUID, cfg SessionConfig) (string, bool) {
	token, err := CreateToken(userID, cfg.Secret, cfg.Days)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create token")
		apperrors.WriteInternalError(w, r, "Failed to create session")
		return "", false
	}

	csrfToken, err := GenerateCSRFToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create CSRF token")
		apperrors.WriteInternalError(w, r, "Failed to create session")
		return "", false
	}

	SetSessionCookie(w, token, cfg.lifetime(), cfg.IsProduction)
	SetCSRFCookie(w, csrfToken, cfg.IsProduction)
	return token, true
}

func loginFailed(w http.ResponseWriter, r *http.Request, auditor *audit.Writer, email string) {
	if err := auditor.LogLoginFailed(r.Context(), email, r.RemoteAddr); err != nil {
		log.Error().Err(err).Msg("Failed to log audit event")
	}
	apperrors.WriteUnauthorized(w, r, "Invalid credentials")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isValidEmail validates email format using net/mail (RFC 5322 simplified)
func isValidEmail(email string) bool {
	if email == "" || len(email) > 320 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
