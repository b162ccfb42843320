package image

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"server/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func response(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(rt roundTripFunc) *Client {
	return NewClient(Options{
		BaseURL:    "https://images.test",
		Token:      "token-abc",
		HTTPClient: &http.Client{Transport: rt},
	})
}

func TestSubmitReturnsJob(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost || r.URL.Path != "/jobs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Errorf("Authorization = %q", got)
		}
		return response(201, "application/json", `{"id":"job-1","status":"starting"}`), nil
	})

	job, err := client.Submit(context.Background(), "a prompt")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if job.ID != "job-1" || job.Status != domain.JobStatusStarting {
		t.Fatalf("job = %+v", job)
	}
}

func TestSubmitJSONErrorBody(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return response(422, "application/json", `{"error":"prompt rejected"}`), nil
	})

	_, err := client.Submit(context.Background(), "a prompt")
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if serr.Message != "prompt rejected" || serr.Code != 422 {
		t.Fatalf("serr = %+v", serr)
	}
}

func TestSubmitMalformedContentType(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return response(200, "text/html", `<html>gateway error</html>`), nil
	})

	_, err := client.Submit(context.Background(), "a prompt")
	if err == nil || !strings.Contains(err.Error(), "unexpected content type") {
		t.Fatalf("err = %v, want content-type diagnostic", err)
	}
}

func TestSubmitMissingJobID(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return response(200, "application/json", `{"status":"starting"}`), nil
	})

	if _, err := client.Submit(context.Background(), "a prompt"); err == nil {
		t.Fatal("expected error for missing job id")
	}
}

func TestStatusParsesOutput(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/jobs/job-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		return response(200, "application/json", `{"status":"succeeded","output":["https://x/img.png"]}`), nil
	})

	res, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if res.Status != domain.JobStatusSucceeded || len(res.Output) != 1 || res.Output[0] != "https://x/img.png" {
		t.Fatalf("res = %+v", res)
	}
}

func TestStatusNotFoundIsPermanent(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return response(404, "application/json", `{"error":"no such job"}`), nil
	})

	_, err := client.Status(context.Background(), "job-1")
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if !serr.Permanent() {
		t.Fatal("404 should be permanent")
	}
	if serr.Message != "no such job" {
		t.Fatalf("Message = %q", serr.Message)
	}
}

func TestStatusServerErrorIsTransient(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return response(500, "text/plain", "boom"), nil
	})

	_, err := client.Status(context.Background(), "job-1")
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if serr.Permanent() {
		t.Fatal("500 should not be permanent")
	}
}

func TestStatusMalformedBodyIsPlainError(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return response(200, "application/json", `{"status":`), nil
	})

	_, err := client.Status(context.Background(), "job-1")
	if err == nil {
		t.Fatal("expected decode error")
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		t.Fatal("decode errors must not be StatusError (they are transient)")
	}
}
