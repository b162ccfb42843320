package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"server/internal/domain"
)

type updateLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Altitude  *float64 `json:"altitude"`
}

// UpdateLocation records a manually-placed map position for the session. The
// place name is resolved best-effort; the position sticks for future runs.
func (a *App) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	snap := a.controller(r).SetManualLocation(r.Context(), domain.Coordinate{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Altitude:  req.Altitude,
	})
	a.json(w, http.StatusOK, snap)
}

// IPLocation returns an approximate position derived from the client IP,
// used as the initial map center before any precise position exists.
func (a *App) IPLocation(w http.ResponseWriter, r *http.Request) {
	if a.GeoIP == nil {
		a.error(w, http.StatusNotFound, "not_found", "ip geolocation unavailable")
		return
	}
	pos, err := a.GeoIP.Position(clientIP(r))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "no position for client address")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"latitude":  pos.Latitude,
		"longitude": pos.Longitude,
		"city":      pos.City,
		"country":   pos.Country,
	})
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if idx := strings.IndexByte(xf, ','); idx >= 0 {
			xf = xf[:idx]
		}
		if ip := strings.TrimSpace(xf); net.ParseIP(ip) != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
