package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/parkfinder/service-parking/internal/domain"
	"github.com/parkfinder/service-parking/internal/domain/geo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Geocoder resolves free text to a position.
type Geocoder interface {
	Search(ctx context.Context, query string) (geo.Position, error)
}

// Config configures a NominatimClient.
type Config struct {
	BaseURL        string
	UserAgent      string
	RequestsPerSec float64
	Timeout        time.Duration
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimClient queries a Nominatim-compatible /search endpoint. Outbound
// requests are throttled; the public instance allows one per second.
type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewNominatimClient creates a NominatimClient.
func NewNominatimClient(cfg Config, log *zap.Logger) *NominatimClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 1
	}
	return &NominatimClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		log:       log,
	}
}

// Search returns the first hit for query as a geocoded-search position.
func (c *NominatimClient) Search(ctx context.Context, query string) (geo.Position, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return geo.Position{}, domain.NewValidationError("search query is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return geo.Position{}, domain.NewUnavailableError("geocoder throttled", err)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return geo.Position{}, fmt.Errorf("invalid geocoder url: %w", err)
	}
	q := u.Query()
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return geo.Position{}, fmt.Errorf("failed to build geocoder request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return geo.Position{}, domain.NewUnavailableError("geocoder request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Position{}, domain.NewUnavailableError("geocoder request failed",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var places []place
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&places); err != nil {
		return geo.Position{}, domain.NewUnavailableError("geocoder returned an invalid response", err)
	}
	if len(places) == 0 {
		return geo.Position{}, domain.NewNotFoundError("Location", query)
	}

	first := places[0]
	lat, latErr := strconv.ParseFloat(first.Lat, 64)
	lng, lngErr := strconv.ParseFloat(first.Lon, 64)
	if latErr != nil || lngErr != nil {
		return geo.Position{}, domain.NewUnavailableError("geocoder returned invalid coordinates",
			fmt.Errorf("lat=%q lon=%q", first.Lat, first.Lon))
	}

	pos, err := geo.NewPosition(lat, lng, geo.ProvenanceGeocoded)
	if err != nil {
		return geo.Position{}, domain.NewUnavailableError("geocoder returned invalid coordinates", err)
	}
	pos.Label = first.DisplayName

	c.log.Debug("geocoded location", zap.String("query", query), zap.Float64("lat", lat), zap.Float64("lng", lng))
	return pos, nil
}
