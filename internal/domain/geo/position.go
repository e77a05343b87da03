package geo

import (
	"fmt"

	"github.com/parkfinder/service-parking/internal/domain"
)

// Provenance records how a user position was obtained.
type Provenance string

const (
	ProvenanceGPS      Provenance = "gps"
	ProvenanceGeocoded Provenance = "geocoded-search"
)

// IsValid returns true if the provenance is recognized.
func (p Provenance) IsValid() bool {
	return p == ProvenanceGPS || p == ProvenanceGeocoded
}

// Position is the user's current location. It is replaced wholesale, never patched.
type Position struct {
	Point
	Source Provenance `json:"source"`
	// Label is the display name returned by a geocoder, empty for gps fixes.
	Label string `json:"label,omitempty"`
}

// NewPosition validates and builds a Position.
func NewPosition(lat, lng float64, source Provenance) (Position, error) {
	if !source.IsValid() {
		return Position{}, domain.NewValidationError(fmt.Sprintf("invalid position source: %q", source))
	}
	if !IsValidLatLng(lat, lng) {
		return Position{}, domain.NewValidationError(fmt.Sprintf("coordinates out of range: %f,%f", lat, lng))
	}
	return Position{Point: Point{Lat: lat, Lng: lng}, Source: source}, nil
}
