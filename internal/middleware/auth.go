package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the signed session token issued by
// the password gate.
const SessionCookieName = "postcard_session"

// SessionClaims is the payload of a gate session token.
type SessionClaims struct {
	SID string `json:"sid"`
	Exp int64  `json:"exp"`
}

type sessionKey string

const (
	sessionIDKey sessionKey = "session_id"
)

// PasswordMatches compares the submitted password against the configured gate
// password in constant time.
func PasswordMatches(expected, submitted string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

// SignSession serializes and HMAC-signs the claims into an opaque token.
func SignSession(secret string, claims SessionClaims) (string, error) {
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payloadEnc := base64.RawURLEncoding.EncodeToString(payloadJSON)
	return payloadEnc + "." + hmacSign(secret, payloadEnc), nil
}

func hmacSign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySession validates a token's signature and expiry and returns its
// claims.
func VerifySession(secret, token string) (*SessionClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil, errors.New("invalid token")
	}
	expected := hmacSign(secret, parts[0])
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return nil, errors.New("invalid signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	var claims SessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, err
	}
	if claims.SID == "" {
		return nil, errors.New("missing session id")
	}
	if claims.Exp != 0 && time.Now().Unix() > claims.Exp {
		return nil, errors.New("token expired")
	}
	return &claims, nil
}

// Gate rejects requests without a valid session cookie and injects the
// session ID into the request context.
func Gate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "missing session", http.StatusUnauthorized)
				return
			}
			claims, err := VerifySession(secret, cookie.Value)
			if err != nil {
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), sessionIDKey, claims.SID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the session ID placed by Gate, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithSessionID is a test helper for handlers that read the session ID.
func ContextWithSessionID(ctx context.Context, sid string) context.Context {
	if strings.TrimSpace(sid) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, sid)
}
