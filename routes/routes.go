package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/court-scheduler/docs"
	"github.com/Dosada05/court-scheduler/handlers"
	"github.com/Dosada05/court-scheduler/middleware"
)

type Handlers struct {
	Schedule  *handlers.ScheduleHandler
	WebSocket *handlers.WebSocketHandler
	Hub       *handlers.HubHandler
}

// SetupRoutes mounts the API, the websocket endpoint and the API docs.
func SetupRoutes(router *chi.Mux, auth *middleware.Authenticator, allowedOrigins []string, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/tournaments/{tournamentID}/schedule", func(r chi.Router) {
			r.Get("/", h.Schedule.GetSchedule)
			r.Get("/conflicts", h.Schedule.GetConflicts)
			r.Get("/export", h.Schedule.Export)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)
				r.Use(middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin))

				r.Post("/optimize", h.Schedule.Optimize)
				r.Post("/adjustments", h.Schedule.ApplyAdjustment)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Get("/hub/metrics", h.Hub.Metrics)
		})
	})

	router.With(auth.OptionalAuthenticate).Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
}
