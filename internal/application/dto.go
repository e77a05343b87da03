package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/parkfinder/service-parking/internal/domain/booking"
	"github.com/parkfinder/service-parking/internal/domain/geo"
	"github.com/parkfinder/service-parking/internal/domain/spot"
)

// SetPositionRequest is a gps fix reported by the client.
type SetPositionRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// SearchPositionRequest is a free-text location search.
type SearchPositionRequest struct {
	Query string `json:"query" binding:"required"`
}

// NearbyQuery holds optional ranking overrides.
type NearbyQuery struct {
	RadiusKm *float64
	Cap      *int
}

// SelectSpotRequest picks a spot from the catalog.
type SelectSpotRequest struct {
	SpotID string `json:"spot_id" binding:"required"`
}

// EstimateFareRequest holds the booking times as HH:MM.
type EstimateFareRequest struct {
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

// PositionDTO is the response representation of a user position.
type PositionDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source"`
	Label     string  `json:"label,omitempty"`
}

// SessionDTO is the response representation of a session.
type SessionDTO struct {
	ID          uuid.UUID      `json:"id"`
	Position    *PositionDTO   `json:"position"`
	Interaction InteractionDTO `json:"interaction"`
	CreatedAt   time.Time      `json:"created_at"`
}

// RankedSpotDTO is one nearby spot with its display price.
type RankedSpotDTO struct {
	spot.RankedSpot
	PriceLabel string `json:"price_label"`
}

// NearbyDTO is the ranked nearby list for a session.
type NearbyDTO struct {
	Status      string          `json:"status"`
	RadiusKm    float64         `json:"radius_km"`
	Cap         int             `json:"cap"`
	TotalFound  int             `json:"total_found"`
	CatalogSize int             `json:"catalog_size"`
	Message     string          `json:"message,omitempty"`
	Position    *PositionDTO    `json:"position,omitempty"`
	Spots       []RankedSpotDTO `json:"spots"`
}

// EstimateDTO is the response representation of a fare estimate.
type EstimateDTO struct {
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	DurationHours int      `json:"duration_hours"`
	Fare          *float64 `json:"fare"`
	FareDisplay   string   `json:"fare_display"`
	PriceKnown    bool     `json:"price_known"`
	Clamped       bool     `json:"clamped"`
}

// InteractionDTO is the response representation of a booking interaction.
type InteractionDTO struct {
	ID        uuid.UUID         `json:"id"`
	Status    string            `json:"status"`
	Spot      *spot.ParkingSpot `json:"spot,omitempty"`
	Estimate  *EstimateDTO      `json:"estimate,omitempty"`
	Booking   *booking.Record   `json:"booking,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ClearResultDTO reports a ledger clear.
type ClearResultDTO struct {
	Removed int `json:"removed"`
}

// StatsDTO summarizes service state for operators.
type StatsDTO struct {
	Catalog        CatalogSnapshot `json:"catalog"`
	LedgerSize     int             `json:"ledger_size"`
	ActiveSessions int             `json:"active_sessions"`
}

// ClientConfigDTO is what the map frontend needs to bootstrap.
type ClientConfigDTO struct {
	DefaultLocation PositionDTO `json:"default_location"`
	RadiusOptionsKm []float64   `json:"radius_options_km"`
	DefaultRadiusKm float64     `json:"default_radius_km"`
	ResultCap       int         `json:"result_cap"`
	CurrencySymbol  string      `json:"currency_symbol"`
	MapsKey         string      `json:"maps_key"`
}

func toPositionDTO(p *geo.Position) *PositionDTO {
	if p == nil {
		return nil
	}
	return &PositionDTO{Latitude: p.Lat, Longitude: p.Lng, Source: string(p.Source), Label: p.Label}
}

func toEstimateDTO(est *booking.Estimate, currencySymbol string) *EstimateDTO {
	if est == nil {
		return nil
	}
	dto := &EstimateDTO{
		StartTime:     est.Start.String(),
		EndTime:       est.End.String(),
		DurationHours: est.DurationHours,
		FareDisplay:   est.Fare.Display(currencySymbol),
		PriceKnown:    est.Fare.IsKnown(),
		Clamped:       est.Clamped,
	}
	if amount, ok := est.Fare.Amount(); ok {
		dto.Fare = &amount
	}
	return dto
}

func toInteractionDTO(in *booking.Interaction, currencySymbol string) InteractionDTO {
	dto := InteractionDTO{
		ID:        in.ID(),
		Status:    in.Status().String(),
		Estimate:  toEstimateDTO(in.Estimate(), currencySymbol),
		UpdatedAt: in.UpdatedAt(),
	}
	if s := in.Spot(); s != nil {
		cp := *s
		dto.Spot = &cp
	}
	if r := in.Record(); r != nil {
		cp := *r
		dto.Booking = &cp
	}
	return dto
}
