package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"server/internal/domain"
)

func TestCurrentParsesConditions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("altitude"); got != "35" {
			t.Errorf("altitude = %q, want 35", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"location": "Bergen", "country": "Norway",
			"weather": {"temperature": 8.4, "symbol": "rain", "windSpeed": 6.1, "cloudCover": 92, "precipitation": 1.2, "creativeDescription": "A damp, moody afternoon."}
		}`))
	}))
	defer srv.Close()

	alt := 35.0
	client := NewClient(srv.URL, srv.Client())
	snap, err := client.Current(context.Background(), domain.Coordinate{Latitude: 60.39, Longitude: 5.32, Altitude: &alt})
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if snap.Temperature != "8.4" {
		t.Fatalf("Temperature = %q, want 8.4", snap.Temperature)
	}
	if snap.Condition != "rain" {
		t.Fatalf("Condition = %q, want rain", snap.Condition)
	}
	if snap.Narrative != "A damp, moody afternoon." {
		t.Fatalf("Narrative = %q", snap.Narrative)
	}
	if !snap.Known() {
		t.Fatal("snapshot should be known")
	}
}

func TestCurrentMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"location":"Nowhere"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	if _, err := client.Current(context.Background(), domain.Coordinate{}); err == nil {
		t.Fatal("expected error for missing weather block")
	}
}

func TestCurrentRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weather":{"temperature": -3.0, "symbol": "snow"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	snap, err := client.Current(context.Background(), domain.Coordinate{})
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if snap.Temperature != "-3.0" {
		t.Fatalf("Temperature = %q, want -3.0", snap.Temperature)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestConditionTextMapsSymbols(t *testing.T) {
	if got := conditionText("PartlyCloudy"); got != "partly cloudy" {
		t.Fatalf("conditionText = %q", got)
	}
	if got := conditionText(""); got != "unknown conditions" {
		t.Fatalf("conditionText empty = %q", got)
	}
	if got := conditionText("drizzle"); got != "drizzle" {
		t.Fatalf("conditionText passthrough = %q", got)
	}
}
