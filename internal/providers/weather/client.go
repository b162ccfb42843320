package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"server/internal/domain"
)

const defaultTimeout = 10 * time.Second

var (
	errServerError = errors.New("weather: server error")
	errRateLimited = errors.New("weather: rate limited")
)

// BackoffConfig controls retry behaviour for the weather collaborator.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client fetches current conditions from the weather collaborator. The
// collaborator is flaky enough in practice to warrant a circuit breaker;
// callers substitute domain.UnknownWeather on any error.
type Client struct {
	baseURL string
	client  *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient builds a weather client with retry and circuit-breaker defaults.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weather",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: 300 * time.Millisecond,
			MaxInterval:     3 * time.Second,
		},
		circuit: cb,
	}
}

type currentResponse struct {
	Location string `json:"location"`
	Country  string `json:"country"`
	Weather  *struct {
		Temperature         *float64 `json:"temperature"`
		Symbol              string   `json:"symbol"`
		WindSpeed           *float64 `json:"windSpeed"`
		CloudCover          *float64 `json:"cloudCover"`
		Precipitation       *float64 `json:"precipitation"`
		CreativeDescription string   `json:"creativeDescription"`
	} `json:"weather"`
	Error string `json:"error"`
}

// Current returns the conditions at the given coordinate. Altitude is passed
// through when present.
func (c *Client) Current(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	if coord.Altitude != nil {
		values.Set("altitude", strconv.FormatFloat(*coord.Altitude, 'f', -1, 64))
	}
	u := fmt.Sprintf("%s/current?%s", c.baseURL, values.Encode())

	body, err := c.getWithResilience(ctx, u)
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}

	var payload currentResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: decode response: %w", err)
	}
	if payload.Error != "" {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: upstream error: %s", payload.Error)
	}
	if payload.Weather == nil || payload.Weather.Temperature == nil {
		return domain.WeatherSnapshot{}, errors.New("weather: malformed response body")
	}

	snap := domain.WeatherSnapshot{
		Temperature:   strconv.FormatFloat(*payload.Weather.Temperature, 'f', 1, 64),
		Condition:     conditionText(payload.Weather.Symbol),
		CloudCoverPct: payload.Weather.CloudCover,
		WindSpeed:     payload.Weather.WindSpeed,
		Precipitation: payload.Weather.Precipitation,
		Narrative:     strings.TrimSpace(payload.Weather.CreativeDescription),
	}
	return snap, nil
}

// getWithResilience executes the GET with bounded retries, exponential backoff,
// and the circuit breaker.
func (c *Client) getWithResilience(ctx context.Context, u string) ([]byte, error) {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return nil, err
			}
			resp, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, fmt.Errorf("weather: status %d", resp.StatusCode)
			}
			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return nil, fmt.Errorf("weather: read response: %w", err)
			}
			return body, nil
		})
		if err == nil {
			return result.([]byte), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("weather: circuit open: %w", err)
		}

		lastErr = err
		if attempt >= c.backoff.MaxRetries {
			return nil, lastErr
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}

// conditionText maps collaborator weather symbols to prose usable in a prompt.
func conditionText(symbol string) string {
	switch strings.ToLower(strings.TrimSpace(symbol)) {
	case "clearsky", "clear":
		return "clear sky"
	case "fair":
		return "fair weather"
	case "partlycloudy":
		return "partly cloudy"
	case "cloudy":
		return "overcast"
	case "fog":
		return "fog"
	case "rain", "lightrain", "heavyrain":
		return "rain"
	case "sleet":
		return "sleet"
	case "snow", "lightsnow", "heavysnow":
		return "snow"
	case "thunderstorm", "rainandthunder":
		return "a thunderstorm"
	case "":
		return "unknown conditions"
	default:
		return strings.ToLower(strings.TrimSpace(symbol))
	}
}
