package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"server/internal/domain"
)

const defaultTimeout = 10 * time.Second

// ErrNoResult is returned when the geocoder answers cleanly but has no name
// for the coordinate.
var ErrNoResult = errors.New("geocode: no result for coordinate")

// Client queries the reverse-geocoding collaborator. Failures here are
// absorbed by the caller: a run continues with an unnamed location.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a reverse-geocoding client against the given base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

type reverseResponse struct {
	Location *struct {
		BestName string `json:"best_name"`
		Country  string `json:"country"`
	} `json:"location"`
	Error string `json:"error"`
}

// Reverse resolves a coordinate to a human-readable place name.
func (c *Client) Reverse(ctx context.Context, coord domain.Coordinate) (domain.Place, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))

	u := fmt.Sprintf("%s/reverse?%s", c.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("geocode: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Place{}, fmt.Errorf("geocode: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Place{}, fmt.Errorf("geocode: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Place{}, fmt.Errorf("geocode: status %d", resp.StatusCode)
	}

	var payload reverseResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Place{}, fmt.Errorf("geocode: decode response: %w", err)
	}
	if payload.Error != "" {
		return domain.Place{}, fmt.Errorf("geocode: upstream error: %s", payload.Error)
	}
	if payload.Location == nil || strings.TrimSpace(payload.Location.BestName) == "" {
		return domain.Place{}, ErrNoResult
	}
	return domain.Place{
		Name:    strings.TrimSpace(payload.Location.BestName),
		Country: strings.TrimSpace(payload.Location.Country),
	}, nil
}
