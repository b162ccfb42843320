package domain

// Coordinate is a captured geographic position. A value is immutable once
// captured for a pipeline stage; a new user action (geolocation re-request or
// map drag) replaces it wholesale.
type Coordinate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// Place is the human-readable result of a reverse geocode lookup.
type Place struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// ResolvedLocation couples a coordinate with its resolved place name.
// ManuallySet records provenance (map drag vs device geolocation), not
// validity; it only decides whether a later run re-requests device
// coordinates.
type ResolvedLocation struct {
	Coordinate
	Name        string `json:"name"`
	Country     string `json:"country,omitempty"`
	ManuallySet bool   `json:"is_manually_set"`
}
