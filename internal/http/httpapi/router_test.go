package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/orchestrator"
	"server/internal/providers/image"
	"server/internal/providers/prompt"
	"server/internal/session"
)

type stubGeocoder struct{}

func (stubGeocoder) Reverse(context.Context, domain.Coordinate) (domain.Place, error) {
	return domain.Place{Name: "Porto", Country: "Portugal"}, nil
}

type stubWeather struct{}

func (stubWeather) Current(context.Context, domain.Coordinate) (domain.WeatherSnapshot, error) {
	return domain.WeatherSnapshot{Temperature: "17", Condition: "light rain"}, nil
}

type stubEnhancer struct{}

func (stubEnhancer) Enhance(_ context.Context, req prompt.EnhanceRequest) (string, prompt.Meta, error) {
	return req.BasePrompt, prompt.Meta{}, nil
}

type stubJobs struct{}

func (stubJobs) Submit(context.Context, string) (domain.GenerationJob, error) {
	return domain.GenerationJob{ID: "job-1", Status: domain.JobStatusStarting}, nil
}

func (stubJobs) Status(context.Context, string) (image.StatusResult, error) {
	return image.StatusResult{Status: domain.JobStatusProcessing}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &infra.Config{
		AppEnv:          "test",
		GatePassword:    "open-sesame",
		SessionSecret:   "test-secret",
		SessionTTL:      time.Hour,
		AllowedOrigins:  []string{"*"},
		RateLimitPerMin: 1000,
	}
	sessions := session.New(
		cfg.SessionTTL,
		func() *orchestrator.Controller {
			return orchestrator.NewController(orchestrator.Options{
				Logger:       zerolog.Nop(),
				Geocoder:     stubGeocoder{},
				Weather:      stubWeather{},
				Composer:     prompt.NewComposer(),
				Enhancer:     stubEnhancer{},
				Jobs:         stubJobs{},
				PollInterval: time.Minute,
			})
		},
		func(c *orchestrator.Controller) { c.Close() },
	)
	t.Cleanup(sessions.Shutdown)
	return NewRouter(handlers.NewApp(cfg, zerolog.Nop(), sessions, nil))
}

func loginCookie(t *testing.T, router http.Handler) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/session", strings.NewReader(`{"password":"open-sesame"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func TestHealthzIsOpen(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGateBlocksAnonymousState(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/state", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGateAdmitsLoggedInState(t *testing.T) {
	router := newTestRouter(t)
	cookie := loginCookie(t, router)

	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGateRejectsTamperedCookie(t *testing.T) {
	router := newTestRouter(t)
	cookie := loginCookie(t, router)
	cookie.Value += "x"

	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestEventsStreamsInitialSnapshot(t *testing.T) {
	router := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	cookie := loginCookie(t, router)
	header := http.Header{}
	header.Set("Cookie", cookie.Name+"="+cookie.Value)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap orchestrator.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if snap.Stage != domain.StageIdle {
		t.Errorf("expected idle initial snapshot, got %q", snap.Stage)
	}
}
