package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/middleware"
	"server/internal/orchestrator"
	"server/internal/session"
)

// App bundles the handler dependencies: configuration, logging, the
// per-session orchestration controllers, and the optional GeoIP resolver.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Sessions *session.Store[orchestrator.Controller]
	GeoIP    geoip.PositionResolver

	validate *validator.Validate
}

// NewApp wires the handler container.
func NewApp(cfg *infra.Config, logger infra.Logger, sessions *session.Store[orchestrator.Controller], resolver geoip.PositionResolver) *App {
	return &App{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		GeoIP:    resolver,
		validate: validator.New(),
	}
}

// controller returns the orchestration controller for the request's session.
func (a *App) controller(r *http.Request) *orchestrator.Controller {
	sid := middleware.SessionIDFromContext(r.Context())
	return a.Sessions.Get(sid)
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]string{"code": errCode, "message": msg})
}
