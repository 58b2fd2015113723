package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studymap-backend/internal/handlers"
	"studymap-backend/internal/middleware"
	"studymap-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	sessionHandler *handlers.SessionHandler,
	presenceHandler *handlers.PresenceHandler,
	userHandler *handlers.UserHandler,
	spaceHandler *handlers.SpaceHandler,
	studyLogHandler *handlers.StudyLogHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/start", sessionHandler.Start)
			r.Get("/active", sessionHandler.Active)
			r.Get("/elapsed", sessionHandler.Elapsed)
			r.Get("/{id}", sessionHandler.Get)
			r.Post("/{id}/join", sessionHandler.Join)
			r.Post("/{id}/leave", sessionHandler.Leave)
			r.Post("/{id}/end", sessionHandler.End)
		})

		// ──── Presence Routes ────
		r.Route("/presence", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", presenceHandler.Publish)
			r.Get("/{userID}", presenceHandler.Last)
		})

		// ──── User & Follow Routes ────
		r.Route("/users", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.Me)
			r.Put("/me", userHandler.UpdateMe)
			r.Get("/", userHandler.List)
			r.Get("/following", userHandler.Following)
			r.Post("/{id}/follow", userHandler.Follow)
			r.Delete("/{id}/follow", userHandler.Unfollow)
		})

		// ──── Study Space Routes ────
		r.Route("/spaces", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", spaceHandler.List)
			r.Post("/", spaceHandler.Create)
			r.Get("/saved", spaceHandler.ListSaved)
			r.Get("/{id}", spaceHandler.Get)
			r.Post("/{id}/save", spaceHandler.Save)
			r.Delete("/{id}/save", spaceHandler.Unsave)
			r.Get("/{id}/reviews", spaceHandler.ListReviews)
			r.Post("/{id}/reviews", spaceHandler.AddReview)
		})

		// ──── Study Log Routes ────
		r.Route("/study-log", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", studyLogHandler.List)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
