package app

import (
	"net/http"

	"github.com/aliuyar1234/propdesk/internal/apperrors"
	"github.com/aliuyar1234/propdesk/internal/audit"
	"github.com/aliuyar1234/propdesk/internal/auth"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/invites"
	"github.com/aliuyar1234/propdesk/internal/orgs"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/aliuyar1234/propdesk/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const serviceName = "propdesk"

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(a *App) *chi.Mux {
	r := chi.NewRouter()

	cfg := a.Config
	session := auth.SessionConfig{
		Secret:       cfg.JWTSecret,
		Days:         cfg.SessionDays,
		IsProduction: !cfg.IsDev(),
	}
	auditReader := audit.NewReader(a.Store.Audit())

	// Middleware stack
	r.Use(telemetry.HTTPMiddleware(serviceName)) // Request spans
	r.Use(middleware.RealIP)                     // Set RemoteAddr to real IP
	r.Use(apperrors.RequestIDMiddleware)         // Add request ID to context
	r.Use(LoggingMiddleware)                     // Structured request logging
	r.Use(RecoveryMiddleware)                    // Recover from panics
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.CSRFHeaderName, apperrors.RequestIDHeader},
		ExposedHeaders:   []string{apperrors.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.AuthMiddleware(cfg.JWTSecret)) // Resolve session cookie or bearer token

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteNotFound(w, r, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteMethodNotAllowed(w, r)
	})

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(a.Store))

	// API routes - Authentication
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(NoCacheMiddleware)
		r.Use(CSRFMiddleware)

		r.Post("/signup", auth.HandleSignup(a.Store.Users(), a.Auditor, session))

		// Login with rate limiting (10 requests per minute)
		r.With(LoginRateLimitMiddleware()).Post("/login", auth.HandleLogin(a.Store.Users(), a.Auditor, session))

		r.With(auth.RequireAuth).Post("/logout", auth.HandleLogout)
	})

	// API routes - Invite redemption. The handlers own method and session
	// checks so every failure carries the redemption error codes.
	r.Route("/api/v1/invites", func(r chi.Router) {
		r.Use(NoCacheMiddleware)
		r.Use(CSRFMiddleware)
		r.Use(RedeemRateLimitMiddleware(cfg.RedeemRateLimitRPM))

		for _, kind := range domain.Kinds() {
			r.Handle("/"+kind.Name+"/redeem", invites.HandleRedeem(a.Invites, kind))
		}
	})

	// API routes - Organizations (require authentication)
	r.Route("/api/v1/orgs", func(r chi.Router) {
		r.Use(CSRFMiddleware)
		r.Use(auth.RequireAuth)
		r.Use(APIRateLimitMiddleware(cfg.RateLimitRPM))

		r.Post("/", orgs.HandleCreate(a.Orgs, a.Auditor))
		r.Get("/", orgs.HandleList(a.Orgs))

		r.Route("/{org_id}", func(r chi.Router) {
			r.Get("/members", orgs.HandleListMembers(a.Orgs))
			r.Get("/audit", orgs.HandleListAudit(a.Orgs, auditReader))

			// Invites of one kind: /invites/tenant or /invites/staff
			r.Post("/invites/{kind}", invites.HandleIssue(a.Invites))
			r.Get("/invites/{kind}", invites.HandleList(a.Invites))
			r.Delete("/invites/{kind}/{invite_id}", invites.HandleRevoke(a.Invites))
		})
	})

	return r
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
// Returns 200 OK if service is ready to accept traffic, 503 if not
func handleReadyz(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
