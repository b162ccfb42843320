package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// Position is an approximate geographic location derived from an IP address.
// It seeds the initial map view only; it never feeds a generation run.
type Position struct {
	Latitude  float64
	Longitude float64
	City      string
	Country   string
}

// PositionResolver resolves approximate positions from IP addresses.
type PositionResolver interface {
	Position(ip string) (Position, error)
}

// Resolver provides city-level lookups backed by a MaxMind GeoIP2 database.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the GeoIP database at the given path. When the path is empty, nil is returned.
func NewResolver(path string) (PositionResolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// Position returns the approximate coordinates recorded for the provided IP.
func (r *Resolver) Position(ip string) (Position, error) {
	if r == nil || r.reader == nil {
		return Position{}, ErrUnavailable
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Position{}, fmt.Errorf("geoip: invalid ip %q", ip)
	}
	record, err := r.reader.City(parsed)
	if err != nil {
		return Position{}, fmt.Errorf("geoip: lookup city: %w", err)
	}
	if record == nil || (record.Location.Latitude == 0 && record.Location.Longitude == 0) {
		return Position{}, ErrUnavailable
	}
	pos := Position{
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
		Country:   record.Country.IsoCode,
	}
	if name, ok := record.City.Names["en"]; ok {
		pos.City = name
	}
	return pos, nil
}

// Close closes the underlying database reader.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
