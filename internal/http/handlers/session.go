package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"server/internal/middleware"
)

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the submitted password against the gate password and issues a
// signed session cookie.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if !middleware.PasswordMatches(a.Config.GatePassword, req.Password) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "wrong password")
		return
	}

	expiry := time.Now().Add(a.Config.SessionTTL)
	token, err := middleware.SignSession(a.Config.SessionSecret, middleware.SessionClaims{
		SID: uuid.NewString(),
		Exp: expiry.Unix(),
	})
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.AppEnv == "production",
	})
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout clears the session cookie. The in-memory session state ages out via
// the TTL sweep.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
