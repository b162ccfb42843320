package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter wires the HTTP surface: the health check and password gate are
// open, everything else requires a valid session cookie.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.AllowedOrigins),
		middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/session", app.Login)
	r.Delete("/v1/session", app.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Gate(app.Config.SessionSecret))

		r.Get("/v1/state", app.State)
		r.Post("/v1/runs", app.StartRun)
		r.Post("/v1/runs/reroll", app.ReRoll)
		r.Post("/v1/runs/check", app.CheckRun)
		r.Put("/v1/location", app.UpdateLocation)
		r.Get("/v1/location/ip", app.IPLocation)
		r.Get("/v1/events", app.Events)
	})

	return r
}
