package http

import (
	"net/http"

	"github.com/atinyakov/rccdash/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the dashboard API.
//
// Routes:
//
//	POST /api/login            → authHandler.Login
//	POST /api/logout           → authHandler.Logout
//	GET  /api/session          → authHandler.Session
//	POST /api/signup           → authHandler.Signup
//	POST /api/password/forgot  → authHandler.ForgotPassword
//	POST /api/password/change  → authHandler.ChangePassword
//	GET  /api/dashboard        → dashHandler.Dashboard (session required)
//	POST /api/meetings         → dashHandler.CreateMeeting (session required)
//
// Every request presenting the active session id in X-Session-ID counts as
// user interaction and postpones the idle timeout.
func NewRouter(
	authHandler *AuthHandler,
	dashHandler *DashboardHandler,
	sessions middleware.SessionSource,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithSession(sessions))

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", authHandler.Session)

		r.Group(func(r chi.Router) {
			// Only allow request bodies with Content-Type: application/json
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/signup", authHandler.Signup)
			r.Post("/password/forgot", authHandler.ForgotPassword)
			r.Post("/password/change", authHandler.ChangePassword)

			r.With(middleware.RequireSession).Post("/meetings", dashHandler.CreateMeeting)
		})

		r.With(middleware.RequireSession).Get("/dashboard", dashHandler.Dashboard)
	})

	return r
}
