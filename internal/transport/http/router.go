package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/pinme-ledger/internal/config"
	"github.com/pinme-ledger/internal/transport/http/handler"
	appmiddleware "github.com/pinme-ledger/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true, // session cookie
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.UserRepo)

	// 5 requests/second, burst of 10 per client IP on the OTP endpoints.
	otpRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authH := handler.NewLedgerAuthHandler(deps.AuthService, deps.JWTProvider, cfg.IsProduction())
	reminderH := handler.NewReminderHandler(deps.ReminderService)
	healthH := handler.NewHealthHandler()

	r.Get("/health", healthH.Health)

	r.Route("/ledger", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.With(otpRL.Limit).Post("/request-otp", authH.RequestOTP)
		r.With(otpRL.Limit).Post("/verify-otp", authH.VerifyOTP)
		r.Post("/logout", authH.Logout)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/check-auth", authH.CheckAuth)
			r.Get("/reminders", reminderH.List)
			r.Post("/reminders", reminderH.Create)
			r.Put("/reminders/{id}", reminderH.Update)
			r.Post("/reminders/{id}/cancel", reminderH.Cancel)
		})
	})

	return r
}
