/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in error bodies
  2. Logger:     zap request log (status, bytes, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a browser frontend

  Mutating routes (POST, DELETE) additionally pass through a token-bucket
  limiter and get 429 when it is empty.

ROUTE GROUPS:
  /api/students/*    Roster
  /api/attendance/*  Daily attendance, reports, available dates

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/warp/attendance-engine/logger"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// WriteLimiter throttles POST and DELETE routes. Nil disables throttling.
	WriteLimiter *rate.Limiter
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger.ComponentLogger("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	}))

	limited := writeLimiter(opts.WriteLimiter)

	r.Route("/api", func(r chi.Router) {
		// Roster routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.With(limited).Post("/", h.CreateStudent)
			r.Get("/search", h.SearchStudents)
			r.Get("/{id}", h.GetStudent)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/daily", h.GetDailyAttendance)
			r.With(limited).Post("/save", h.SaveAttendance)
			r.Get("/report", h.GetReport)
			r.Get("/dates", h.ListDates)
			r.With(limited).Delete("/{date}/students/{id}", h.RemoveAttendance)
			r.With(limited).Delete("/{date}", h.DeleteDay)
			r.With(limited).Delete("/students/{id}", h.PurgeStudent)
		})
	})

	return r
}
