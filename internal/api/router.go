package api

import (
	"net/http"
	"time"

	"algoverse/internal/api/handler"
	"algoverse/internal/app/duel"
	"algoverse/internal/app/service"
	"algoverse/internal/common/security"
	"algoverse/internal/realtime"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	problemService *service.ProblemService,
	submissionService *service.SubmissionService,
	hub *realtime.Hub,
	duelManager *duel.Manager,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Websocket endpoint; long-lived, so it stays outside the HTTP timeout.
	wsHandler := handler.NewWSHandler(hub, duelManager)
	r.Route("/ws", wsHandler.RegisterRoutes)

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(chiMiddleware.Timeout(60 * time.Second))
		// JWT Auth Middleware Setup: verifies a bearer token when present
		// and puts claims in context; Authenticator enforces it per-route.
		v1.Use(jwtauth.Verifier(security.TokenAuth))

		// Auth routes (public)
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		// Problem routes (list/get public, create admin)
		problemHandler := handler.NewProblemHandler(problemService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		// Language catalog (public)
		languageHandler := handler.NewLanguageHandler(problemService)
		v1.Route("/languages", languageHandler.RegisterRoutes)

		// Submission routes (authenticated)
		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)
	})

	return r
}
