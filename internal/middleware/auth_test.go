package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignAndVerifySession(t *testing.T) {
	token, err := SignSession("secret", SessionClaims{SID: "sid-1", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("SignSession returned error: %v", err)
	}
	claims, err := VerifySession("secret", token)
	if err != nil {
		t.Fatalf("VerifySession returned error: %v", err)
	}
	if claims.SID != "sid-1" {
		t.Fatalf("SID = %q", claims.SID)
	}
}

func TestVerifySessionRejectsTampering(t *testing.T) {
	token, _ := SignSession("secret", SessionClaims{SID: "sid-1"})
	if _, err := VerifySession("other-secret", token); err == nil {
		t.Fatal("expected signature mismatch")
	}
	if _, err := VerifySession("secret", token+"x"); err == nil {
		t.Fatal("expected error for mangled token")
	}
}

func TestVerifySessionRejectsExpired(t *testing.T) {
	token, _ := SignSession("secret", SessionClaims{SID: "sid-1", Exp: time.Now().Add(-time.Minute).Unix()})
	if _, err := VerifySession("secret", token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestGateMiddleware(t *testing.T) {
	var gotSID string
	handler := Gate("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSID = SessionIDFromContext(r.Context())
	}))

	// No cookie.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/state", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// Valid cookie.
	token, _ := SignSession("secret", SessionClaims{SID: "sid-9", Exp: time.Now().Add(time.Hour).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotSID != "sid-9" {
		t.Fatalf("session id = %q, want sid-9", gotSID)
	}
}

func TestPasswordMatches(t *testing.T) {
	if !PasswordMatches("hunter2", "hunter2") {
		t.Fatal("matching password rejected")
	}
	if PasswordMatches("hunter2", "hunter3") {
		t.Fatal("wrong password accepted")
	}
	if PasswordMatches("", "") {
		t.Fatal("empty configured password must never match")
	}
}
