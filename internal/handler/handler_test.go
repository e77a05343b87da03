package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parkfinder/service-parking/internal/application"
	"github.com/parkfinder/service-parking/internal/domain"
	"github.com/parkfinder/service-parking/internal/domain/booking"
	"github.com/parkfinder/service-parking/internal/domain/geo"
	"github.com/parkfinder/service-parking/internal/repository"
)

const catalogJSON = `[
  {"ID": "1", "Location": "Deccan Gymkhana", "Latitude": "18.5170", "Longitude": "73.8400", "PricePerHour": "30", "TotalSlots": "50"},
  {"id": "2", "name": "Koregaon Park Lane 5", "latitude": 18.5362, "longitude": 73.8940}
]`

type stubGeocoder struct{}

func (stubGeocoder) Search(_ context.Context, query string) (geo.Position, error) {
	if query == "Deccan" {
		return geo.NewPosition(18.5167, 73.8415, geo.ProvenanceGeocoded)
	}
	return geo.Position{}, domain.NewNotFoundError("Location", query)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	path := filepath.Join(t.TempDir(), "parkings.json")
	require.NoError(t, os.WriteFile(path, []byte(catalogJSON), 0o600))

	catalog := application.NewCatalogCache(repository.NewFileCatalogSource(path), log)
	require.NoError(t, catalog.Reload(context.Background()))

	sessions := application.NewSessionStore()
	ledger := booking.NewLedger(repository.NewMemoryKVStore(), booking.DefaultLedgerKey)

	discovery := application.NewDiscoveryService(sessions, catalog, stubGeocoder{}, application.DiscoveryDefaults{
		RadiusKm: 5, ResultCap: 30, DefaultLat: 18.5204, DefaultLng: 73.8567, CurrencySymbol: "₹",
	}, log)
	bookings := application.NewBookingService(sessions, catalog, ledger,
		booking.NewHourlyFareEstimator(), booking.NewClockIDGenerator(nil), nil, "₹", log)
	admin := application.NewAdminService(sessions, catalog, ledger, log)

	r := gin.New()
	NewDiscoveryHandler(discovery).RegisterRoutes(&r.RouterGroup)
	NewBookingHandler(bookings).RegisterRoutes(&r.RouterGroup)
	NewAdminHandler(admin).RegisterRoutes(&r.RouterGroup)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func createSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return decode[application.SessionDTO](t, env.Data).ID.String()
}

func TestBookingFlow_OverHTTP(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)
	base := "/api/v1/sessions/" + id

	w, env := do(t, r, http.MethodGet, base+"/nearby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "awaiting-location", decode[application.NearbyDTO](t, env.Data).Status)

	w, _ = do(t, r, http.MethodPut, base+"/position", map[string]float64{"latitude": 18.5204, "longitude": 73.8567})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodGet, base+"/nearby?radius_km=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	nearby := decode[application.NearbyDTO](t, env.Data)
	assert.Equal(t, "ranked", nearby.Status)
	require.Len(t, nearby.Spots, 2)
	assert.Equal(t, "1", nearby.Spots[0].ID)
	assert.Equal(t, "Deccan Gymkhana", nearby.Spots[0].Name)
	assert.Equal(t, "₹30/hr", nearby.Spots[0].PriceLabel)

	w, _ = do(t, r, http.MethodPost, base+"/booking/select", map[string]string{"spot_id": "1"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodPost, base+"/booking/estimate", map[string]string{"start_time": "10:00", "end_time": "12:15"})
	require.Equal(t, http.StatusOK, w.Code)
	est := decode[application.InteractionDTO](t, env.Data)
	assert.Equal(t, 3, est.Estimate.DurationHours)
	assert.Equal(t, "₹90", est.Estimate.FareDisplay)

	w, env = do(t, r, http.MethodPost, base+"/booking/confirm", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	confirmed := decode[application.InteractionDTO](t, env.Data)
	assert.Equal(t, "persisted", confirmed.Status)
	require.NotNil(t, confirmed.Booking)
	assert.Regexp(t, `^BK\d{6}$`, confirmed.Booking.ID)

	w, env = do(t, r, http.MethodGet, "/api/v1/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decode[[]map[string]any](t, env.Data)
	require.Len(t, records, 1)
	assert.Equal(t, "Deccan Gymkhana", records[0]["locationName"])
	assert.Equal(t, "₹90", records[0]["amount"])

	w, env = do(t, r, http.MethodDelete, "/api/v1/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[application.ClearResultDTO](t, env.Data).Removed)
}

func TestErrorMapping_OverHTTP(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)
	base := "/api/v1/sessions/" + id

	w, env := do(t, r, http.MethodPost, base+"/booking/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	w, env = do(t, r, http.MethodPost, base+"/booking/select", map[string]string{"spot_id": "404"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w, _ = do(t, r, http.MethodPost, base+"/booking/select", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, base+"/nearby?radius_km=wide", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPut, base+"/position", map[string]float64{"latitude": 95, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/sessions/not-a-uuid/nearby", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/sessions/0b7c1f7e-3a52-4c7e-9d0e-1b2c3d4e5f60", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchPosition_OverHTTP(t *testing.T) {
	r := newTestRouter(t)
	id := createSession(t, r)
	base := "/api/v1/sessions/" + id

	w, env := do(t, r, http.MethodPost, base+"/position/search", map[string]string{"query": "Deccan"})
	require.Equal(t, http.StatusOK, w.Code)
	pos := decode[application.PositionDTO](t, env.Data)
	assert.Equal(t, "geocoded-search", pos.Source)

	w, _ = do(t, r, http.MethodPost, base+"/position/search", map[string]string{"query": "Gotham"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = do(t, r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sess := decode[application.SessionDTO](t, env.Data)
	require.NotNil(t, sess.Position)
	assert.Equal(t, 18.5167, sess.Position.Latitude)
}

func TestCatalogConfigAndAdmin(t *testing.T) {
	r := newTestRouter(t)

	w, _ := do(t, r, http.MethodGet, "/api/parking", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var spots []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spots))
	require.Len(t, spots, 2)
	assert.Equal(t, "Deccan Gymkhana", spots[0]["name"])
	assert.Nil(t, spots[1]["price_per_hour"])

	w, env := do(t, r, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode[application.ClientConfigDTO](t, env.Data)
	assert.Equal(t, []float64{1, 2, 5, 10}, cfg.RadiusOptionsKm)

	w, env = do(t, r, http.MethodPost, "/api/v1/admin/catalog/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(2), decode[application.CatalogSnapshot](t, env.Data).Generation)

	w, env = do(t, r, http.MethodGet, "/api/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[application.StatsDTO](t, env.Data)
	assert.Equal(t, 2, stats.Catalog.Size)
	assert.Equal(t, 0, stats.LedgerSize)
}
