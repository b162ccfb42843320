package domain

// TemperatureUnknown is the sentinel substituted when the weather collaborator
// cannot be reached or returns garbage.
const TemperatureUnknown = "unknown"

// WeatherSnapshot is the current-conditions view fed into prompt composition.
// Temperature is either a formatted numeric value ("12.3") or
// TemperatureUnknown. Once the weather stage has run a snapshot is always
// present; failure substitutes UnknownWeather instead of leaving it absent.
type WeatherSnapshot struct {
	Temperature   string   `json:"temperature"`
	Condition     string   `json:"condition"`
	CloudCoverPct *float64 `json:"cloud_cover_pct,omitempty"`
	WindSpeed     *float64 `json:"wind_speed,omitempty"`
	Precipitation *float64 `json:"precipitation,omitempty"`
	Narrative     string   `json:"narrative,omitempty"`
}

// UnknownWeather returns the fixed fallback snapshot for absorbed weather
// failures.
func UnknownWeather() WeatherSnapshot {
	return WeatherSnapshot{
		Temperature: TemperatureUnknown,
		Condition:   "unknown conditions",
	}
}

// Known reports whether the snapshot carries real upstream data.
func (w WeatherSnapshot) Known() bool {
	return w.Temperature != TemperatureUnknown
}
