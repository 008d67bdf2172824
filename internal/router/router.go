package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"bbb-schedule-sync/internal/handlers"
	"bbb-schedule-sync/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	triggerLimiter *middleware.RateLimiter,
	scheduleHandler *handlers.ScheduleHandler,
	wsHandler http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Schedule Routes ────
		r.Route("/schedule", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.With(triggerLimiter.Middleware).Post("/sync", scheduleHandler.Trigger)
			r.Get("/preview", scheduleHandler.Preview)
			r.Get("/runs", scheduleHandler.History)
			r.Get("/runs/latest", scheduleHandler.Latest)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHandler)
	})

	return r
}
