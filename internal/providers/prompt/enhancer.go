package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
)

const enhancerDefaultTimeout = 15 * time.Second

// EnhanceRequest carries everything the text-generation collaborator needs to
// refine the base prompt.
type EnhanceRequest struct {
	Location    string                 `json:"location"`
	Country     string                 `json:"country,omitempty"`
	Weather     domain.WeatherSnapshot `json:"weather"`
	Subject     domain.SubjectCategory `json:"subject"`
	Coordinates domain.Coordinate      `json:"coordinates"`
	BasePrompt  string                 `json:"basePrompt"`
}

// Meta is optional scene context returned alongside an enhanced prompt.
type Meta struct {
	TimeOfDay          string `json:"timeOfDay,omitempty"`
	LightingConditions string `json:"lightingConditions,omitempty"`
}

// Enhancer refines a deterministic base prompt. A failed or empty enhancement
// must never abort a run; callers fall back to the base prompt verbatim.
type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (string, Meta, error)
}

// HTTPEnhancer calls the text-generation collaborator over HTTP.
type HTTPEnhancer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPEnhancerOptions configures an HTTPEnhancer.
type HTTPEnhancerOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewHTTPEnhancer builds the collaborator client.
func NewHTTPEnhancer(opts HTTPEnhancerOptions) *HTTPEnhancer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: enhancerDefaultTimeout}
	}
	return &HTTPEnhancer{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		client:  client,
	}
}

type enhanceResponse struct {
	Prompt string `json:"prompt"`
	Meta   *Meta  `json:"meta"`
	Error  string `json:"error"`
}

// Enhance performs a single attempt against the collaborator. No retries: the
// deterministic base prompt is always available as fallback.
func (e *HTTPEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (string, Meta, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", Meta{}, fmt.Errorf("enhancer: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/enhance", bytes.NewReader(payload))
	if err != nil {
		return "", Meta{}, fmt.Errorf("enhancer: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", Meta{}, fmt.Errorf("enhancer: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", Meta{}, fmt.Errorf("enhancer: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", Meta{}, fmt.Errorf("enhancer: status %d", resp.StatusCode)
	}

	var parsed enhanceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", Meta{}, fmt.Errorf("enhancer: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", Meta{}, fmt.Errorf("enhancer: upstream error: %s", parsed.Error)
	}
	prompt := strings.TrimSpace(parsed.Prompt)
	if prompt == "" {
		return "", Meta{}, fmt.Errorf("enhancer: empty prompt in response")
	}

	var meta Meta
	if parsed.Meta != nil {
		meta = *parsed.Meta
	}
	return prompt, meta, nil
}

var _ Enhancer = (*HTTPEnhancer)(nil)
