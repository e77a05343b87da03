package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/parkfinder/service-parking/internal/domain/booking"
	"github.com/parkfinder/service-parking/internal/domain/geo"
	"github.com/parkfinder/service-parking/internal/domain/spot"
	"github.com/parkfinder/service-parking/internal/kafka"
	"github.com/parkfinder/service-parking/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Spots around Pune (18.5204, 73.8567). Offsets are in latitude degrees;
// 0.009 deg is roughly 1 km.
const testCatalog = `[
  {"id": "P-NEAR", "name": "Shaniwar Wada Lot", "latitude": 18.5249, "longitude": 73.8567, "pricePerHour": 40},
  {"id": "P-MID", "name": "FC Road Parking", "latitude": "18.5384", "longitude": "73.8567", "pricePerHour": "20"},
  {"id": "P-FREE", "name": "Temple Grounds", "latitude": 18.5294, "longitude": 73.8567, "pricePerHour": 0},
  {"id": "P-ASK", "name": "Private Yard", "latitude": 18.5214, "longitude": 73.8567, "owner": "Mr. Joshi"},
  {"id": "P-FAR", "name": "Hinjewadi Phase 1", "latitude": 18.5913, "longitude": 73.7389, "pricePerHour": 30},
  {"id": "P-BAD", "name": "Broken", "latitude": "n/a", "longitude": 73.85}
]`

var pune = struct{ lat, lng float64 }{18.5204, 73.8567}

type staticSource struct {
	raw []spot.RawSpot
	err error
}

func (s *staticSource) Fetch(context.Context) ([]spot.RawSpot, error) {
	return s.raw, s.err
}

func newStaticSource(t *testing.T, body string) *staticSource {
	t.Helper()
	raw, err := spot.DecodeCatalog([]byte(body))
	require.NoError(t, err)
	return &staticSource{raw: raw}
}

type mockGeocoder struct{ mock.Mock }

func (m *mockGeocoder) Search(ctx context.Context, query string) (geo.Position, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(geo.Position), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishEventWithKey(ctx context.Context, topic, key string, ce *kafka.CloudEvent) error {
	return m.Called(ctx, topic, key, ce).Error(0)
}

func eventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(ce *kafka.CloudEvent) bool { return ce.Type == eventType })
}

// seqIDs hands out ids from a fixed list, then falls back to a counter.
type seqIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (g *seqIDs) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) > 0 {
		id := g.ids[0]
		g.ids = g.ids[1:]
		return id
	}
	g.n++
	return fmt.Sprintf("BK9%05d", g.n)
}

// flakyStore fails writes while failing is set.
type flakyStore struct {
	*repository.MemoryKVStore
	mu      sync.Mutex
	failing bool
}

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	s.failing = v
	s.mu.Unlock()
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return errors.New("quota exceeded")
	}
	return s.MemoryKVStore.Set(ctx, key, value)
}

type fixture struct {
	sessions  *SessionStore
	catalog   *CatalogCache
	store     *flakyStore
	ledger    *booking.Ledger
	ids       *seqIDs
	publisher *mockPublisher
	geocoder  *mockGeocoder
	discovery *DiscoveryService
	bookings  *BookingService
	admin     *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()

	f := &fixture{
		sessions:  NewSessionStore(),
		store:     &flakyStore{MemoryKVStore: repository.NewMemoryKVStore()},
		ids:       &seqIDs{},
		publisher: new(mockPublisher),
		geocoder:  new(mockGeocoder),
	}
	f.catalog = NewCatalogCache(newStaticSource(t, testCatalog), log)
	require.NoError(t, f.catalog.Reload(context.Background()))

	f.ledger = booking.NewLedger(f.store, booking.DefaultLedgerKey)
	f.discovery = NewDiscoveryService(f.sessions, f.catalog, f.geocoder, DiscoveryDefaults{
		RadiusKm:       5,
		ResultCap:      30,
		DefaultLat:     pune.lat,
		DefaultLng:     pune.lng,
		CurrencySymbol: "₹",
	}, log)
	f.bookings = NewBookingService(f.sessions, f.catalog, f.ledger,
		booking.NewHourlyFareEstimator(), f.ids, f.publisher, "₹", log)
	f.admin = NewAdminService(f.sessions, f.catalog, f.ledger, log)
	return f
}

// sessionAtPune creates a session with a gps fix in central Pune.
func (f *fixture) sessionAtPune(t *testing.T) string {
	t.Helper()
	sess, err := f.discovery.CreateSession(context.Background())
	require.NoError(t, err)
	lat, lng := pune.lat, pune.lng
	_, err = f.discovery.SetPosition(context.Background(), sess.ID.String(), SetPositionRequest{Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)
	return sess.ID.String()
}
