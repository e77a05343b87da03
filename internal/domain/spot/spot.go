package spot

import "github.com/parkfinder/service-parking/internal/domain/geo"

// ParkingSpot is an immutable catalog entry. It is loaded once per catalog
// generation and never mutated afterwards.
type ParkingSpot struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Type      string  `json:"type,omitempty"`

	// PricePerHour is nil when the price is unknown ("Contact owner").
	PricePerHour   *float64 `json:"price_per_hour"`
	TotalSlots     *int     `json:"total_slots,omitempty"`
	AvailableSlots *int     `json:"available_slots,omitempty"`

	Authority string `json:"authority,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Contact   string `json:"contact,omitempty"`
}

// Point returns the spot coordinates.
func (s ParkingSpot) Point() geo.Point {
	return geo.Point{Lat: s.Latitude, Lng: s.Longitude}
}

// HasPrice reports whether an hourly price is known.
func (s ParkingSpot) HasPrice() bool { return s.PricePerHour != nil }

// FindByID returns the spot with the given id.
func FindByID(catalog []ParkingSpot, id string) (ParkingSpot, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return ParkingSpot{}, false
}
