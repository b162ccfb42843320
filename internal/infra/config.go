package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	GatePassword     string
	SessionSecret    string
	SessionTTL       time.Duration
	GeocoderBaseURL  string
	WeatherBaseURL   string
	EnhancerBaseURL  string
	EnhancerAPIKey   string
	ImageAPIBaseURL  string
	ImageAPIToken    string
	PollInterval     time.Duration
	GeoIPDBPath      string
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		GatePassword:     os.Getenv("GATE_PASSWORD"),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		SessionTTL:       time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 240)),
		GeocoderBaseURL:  getEnv("GEOCODER_BASE_URL", "https://geocode.internal.example.com"),
		WeatherBaseURL:   getEnv("WEATHER_BASE_URL", "https://weather.internal.example.com"),
		EnhancerBaseURL:  getEnv("ENHANCER_BASE_URL", "https://prompt.internal.example.com"),
		EnhancerAPIKey:   os.Getenv("ENHANCER_API_KEY"),
		ImageAPIBaseURL:  getEnv("IMAGE_API_BASE_URL", "https://images.internal.example.com"),
		ImageAPIToken:    os.Getenv("IMAGE_API_TOKEN"),
		PollInterval:     time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "*")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.GatePassword == "" {
		return nil, fmt.Errorf("GATE_PASSWORD is required")
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
