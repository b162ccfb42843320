package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"server/internal/domain"
	"server/internal/orchestrator"
)

type startRunRequest struct {
	Latitude      *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Altitude      *float64 `json:"altitude"`
	Subject       string   `json:"subject" validate:"omitempty,oneof=portrait humans nature custom"`
	CustomSubject string   `json:"custom_subject"`
}

// StartRun kicks off a fresh generation run. Coordinates are optional: absent
// coordinates mean the browser could not provide a position, and the run
// fails immediately unless a manual position was set earlier.
func (a *App) StartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		a.error(w, http.StatusBadRequest, "bad_request", "latitude and longitude must be provided together")
		return
	}

	start := orchestrator.StartRequest{
		CustomSubject: req.CustomSubject,
	}
	if req.Subject != "" {
		start.Subject = domain.NormalizeSubject(req.Subject)
	}
	if req.Latitude != nil && req.Longitude != nil {
		start.Coordinate = &domain.Coordinate{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Altitude:  req.Altitude,
		}
	}

	snap := a.controller(r).StartRun(start)
	a.json(w, http.StatusAccepted, snap)
}

type reRollRequest struct {
	Subject       string `json:"subject" validate:"omitempty,oneof=portrait humans nature custom"`
	CustomSubject string `json:"custom_subject"`
}

// ReRoll regenerates the prompt and submits a new job without re-resolving
// location or weather.
func (a *App) ReRoll(w http.ResponseWriter, r *http.Request) {
	var req reRollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	reroll := orchestrator.ReRollRequest{CustomSubject: req.CustomSubject}
	if req.Subject != "" {
		reroll.Subject = domain.NormalizeSubject(req.Subject)
	}
	snap, err := a.controller(r).ReRoll(reroll)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotReady) {
			a.error(w, http.StatusConflict, "not_ready", "no resolved location and weather yet")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	a.json(w, http.StatusAccepted, snap)
}

// CheckRun runs one immediate status poll for the active job.
func (a *App) CheckRun(w http.ResponseWriter, r *http.Request) {
	snap, err := a.controller(r).CheckNow(r.Context())
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoPollableJob) {
			a.error(w, http.StatusConflict, "no_pollable_job", "no job is awaiting status")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	a.json(w, http.StatusOK, snap)
}

// State returns the current orchestration snapshot for the session.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.controller(r).Snapshot())
}
