package application

import (
	"context"
	"fmt"
	"math"

	"github.com/parkfinder/service-parking/internal/domain"
	"github.com/parkfinder/service-parking/internal/domain/booking"
	"github.com/parkfinder/service-parking/internal/domain/geo"
	"github.com/parkfinder/service-parking/internal/domain/spot"
	"github.com/parkfinder/service-parking/internal/geocode"
	"go.uber.org/zap"
)

// RadiusOptionsKm are the search radii offered to the map frontend.
var RadiusOptionsKm = []float64{1, 2, 5, 10}

// DiscoveryDefaults holds ranking and client defaults.
type DiscoveryDefaults struct {
	RadiusKm       float64
	ResultCap      int
	DefaultLat     float64
	DefaultLng     float64
	CurrencySymbol string
	MapsKey        string
}

// DiscoveryService handles sessions, user positions and nearby ranking.
type DiscoveryService struct {
	sessions *SessionStore
	catalog  *CatalogCache
	geocoder geocode.Geocoder
	defaults DiscoveryDefaults
	logger   *zap.Logger
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(
	sessions *SessionStore,
	catalog *CatalogCache,
	geocoder geocode.Geocoder,
	defaults DiscoveryDefaults,
	logger *zap.Logger,
) *DiscoveryService {
	if defaults.RadiusKm <= 0 {
		defaults.RadiusKm = 5
	}
	if defaults.ResultCap <= 0 {
		defaults.ResultCap = spot.DefaultResultCap
	}
	return &DiscoveryService{
		sessions: sessions,
		catalog:  catalog,
		geocoder: geocoder,
		defaults: defaults,
		logger:   logger,
	}
}

// CreateSession starts a session with no position and an idle interaction.
func (s *DiscoveryService) CreateSession(ctx context.Context) (*SessionDTO, error) {
	sess := s.sessions.Create()
	s.logger.Debug("session created", zap.String("session_id", sess.ID().String()))
	return s.toSessionDTO(sess), nil
}

// GetSession returns the current session state.
func (s *DiscoveryService) GetSession(ctx context.Context, sessionID string) (*SessionDTO, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.toSessionDTO(sess), nil
}

// SetPosition replaces the session position with a gps fix. It also
// supersedes any location search still in flight.
func (s *DiscoveryService) SetPosition(ctx context.Context, sessionID string, req SetPositionRequest) (*PositionDTO, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, domain.NewValidationError("latitude and longitude are required")
	}

	pos, err := geo.NewPosition(*req.Latitude, *req.Longitude, geo.ProvenanceGPS)
	if err != nil {
		return nil, err
	}

	token := sess.BeginPositionRequest()
	sess.ResolvePosition(token, pos)
	return toPositionDTO(&pos), nil
}

// SearchPosition geocodes query and, if no newer position request has been
// made meanwhile, makes the first hit the session position. A failed search
// leaves the previous position untouched.
func (s *DiscoveryService) SearchPosition(ctx context.Context, sessionID string, req SearchPositionRequest) (*PositionDTO, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	token := sess.BeginPositionRequest()
	pos, err := s.geocoder.Search(ctx, req.Query)
	if err != nil {
		s.logger.Info("location search failed",
			zap.String("session_id", sessionID),
			zap.String("query", req.Query),
			zap.Error(err),
		)
		return nil, err
	}

	if !sess.ResolvePosition(token, pos) {
		return nil, domain.NewConflictError("location search superseded by a newer position")
	}
	return toPositionDTO(&pos), nil
}

// Nearby ranks the catalog around the session position.
func (s *DiscoveryService) Nearby(ctx context.Context, sessionID string, q NearbyQuery) (*NearbyDTO, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	radius := s.defaults.RadiusKm
	if q.RadiusKm != nil {
		if *q.RadiusKm <= 0 || math.IsNaN(*q.RadiusKm) || math.IsInf(*q.RadiusKm, 0) {
			return nil, domain.NewValidationError("radius_km must be a positive number")
		}
		radius = *q.RadiusKm
	}
	limit := s.defaults.ResultCap
	if q.Cap != nil {
		if *q.Cap <= 0 {
			return nil, domain.NewValidationError("cap must be a positive integer")
		}
		limit = *q.Cap
	}

	catalog := s.catalog.Spots()
	pos := sess.Position()
	result := spot.Rank(catalog, pos, spot.Query{RadiusKm: radius, Cap: limit})

	for _, ex := range result.Excluded {
		s.logger.Warn("spot excluded from ranking",
			zap.String("spot_id", ex.ID),
			zap.String("reason", ex.Reason),
		)
	}

	out := &NearbyDTO{
		Status:      string(result.Status),
		RadiusKm:    radius,
		Cap:         limit,
		TotalFound:  result.TotalFound,
		CatalogSize: len(catalog),
		Position:    toPositionDTO(pos),
		Spots:       make([]RankedSpotDTO, len(result.Spots)),
	}
	for i, rs := range result.Spots {
		out.Spots[i] = RankedSpotDTO{RankedSpot: rs, PriceLabel: s.priceLabel(rs.ParkingSpot)}
	}

	switch {
	case result.Status == spot.StatusAwaitingLocation:
		out.Message = "waiting for your location"
	case len(catalog) == 0:
		out.Message = "no parking data available"
	case result.TotalFound == 0:
		out.Message = fmt.Sprintf("no parking spots within %g km", radius)
	}
	return out, nil
}

// Catalog returns the full loaded catalog.
func (s *DiscoveryService) Catalog(ctx context.Context) []spot.ParkingSpot {
	return s.catalog.Spots()
}

// ClientConfig returns the map frontend bootstrap settings.
func (s *DiscoveryService) ClientConfig() ClientConfigDTO {
	return ClientConfigDTO{
		DefaultLocation: PositionDTO{
			Latitude:  s.defaults.DefaultLat,
			Longitude: s.defaults.DefaultLng,
			Source:    "default",
		},
		RadiusOptionsKm: RadiusOptionsKm,
		DefaultRadiusKm: s.defaults.RadiusKm,
		ResultCap:       s.defaults.ResultCap,
		CurrencySymbol:  s.defaults.CurrencySymbol,
		MapsKey:         s.defaults.MapsKey,
	}
}

func (s *DiscoveryService) priceLabel(p spot.ParkingSpot) string {
	if p.PricePerHour == nil {
		return booking.PriceUnknownLabel
	}
	return booking.KnownFare(*p.PricePerHour).Display(s.defaults.CurrencySymbol) + "/hr"
}

func (s *DiscoveryService) toSessionDTO(sess *Session) *SessionDTO {
	dto := &SessionDTO{ID: sess.ID(), CreatedAt: sess.createdAt}
	sess.read(func(pos *geo.Position, in *booking.Interaction) {
		dto.Position = toPositionDTO(pos)
		dto.Interaction = toInteractionDTO(in, s.defaults.CurrencySymbol)
	})
	return dto
}
