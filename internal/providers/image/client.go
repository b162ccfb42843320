package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client talks to the asynchronous image-generation backend: one call to
// submit a job, repeated calls to poll its status.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Options configures a backend client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient builds a generation backend client.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		client:  client,
	}
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

type statusResponse struct {
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
}

// Submit posts the prompt and returns the created job. Any failure here is
// fatal for the run; the error message is what the user will see.
func (c *Client) Submit(ctx context.Context, prompt string) (domain.GenerationJob, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return domain.GenerationJob{}, fmt.Errorf("image backend: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(payload))
	if err != nil {
		return domain.GenerationJob{}, fmt.Errorf("image backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.GenerationJob{}, fmt.Errorf("image backend: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.GenerationJob{}, fmt.Errorf("image backend: read response: %w", err)
	}

	// A malformed content type is reported as such, distinct from a JSON
	// error body, so the status line carries an accurate diagnostic.
	isJSON := jsonContentType(resp.Header.Get("Content-Type"))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if isJSON {
			var parsed submitResponse
			if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
				return domain.GenerationJob{}, &StatusError{Code: resp.StatusCode, Message: parsed.Error}
			}
		}
		return domain.GenerationJob{}, &StatusError{Code: resp.StatusCode}
	}
	if !isJSON {
		return domain.GenerationJob{}, fmt.Errorf("image backend: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.GenerationJob{}, fmt.Errorf("image backend: decode response: %w", err)
	}
	if parsed.Error != "" {
		return domain.GenerationJob{}, fmt.Errorf("image backend: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.ID) == "" {
		return domain.GenerationJob{}, fmt.Errorf("image backend: response missing job id")
	}

	status := domain.JobStatus(strings.ToLower(strings.TrimSpace(parsed.Status)))
	if status == "" {
		status = domain.JobStatusStarting
	}
	return domain.GenerationJob{ID: parsed.ID, Status: status}, nil
}

// Status performs a single poll for the given job id. Non-2xx responses come
// back as *StatusError so the poller can separate permanent 4xx failures from
// transient ones.
func (c *Client) Status(ctx context.Context, id string) (StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+id, nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("image backend: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return StatusResult{}, fmt.Errorf("image backend: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return StatusResult{}, fmt.Errorf("image backend: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{Code: resp.StatusCode}
		var parsed statusResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			serr.Message = parsed.Error
		}
		return StatusResult{}, serr
	}

	var parsed statusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return StatusResult{}, fmt.Errorf("image backend: decode response: %w", err)
	}

	return StatusResult{
		Status:      domain.JobStatus(strings.ToLower(strings.TrimSpace(parsed.Status))),
		Output:      parsed.Output,
		ErrorReason: parsed.Error,
	}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func jsonContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
