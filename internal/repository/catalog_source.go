package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/parkfinder/service-parking/internal/domain/spot"
)

// maxCatalogBytes bounds catalog payloads read from disk or the network.
const maxCatalogBytes = 16 << 20

// FileCatalogSource reads the catalog from a JSON file on disk.
type FileCatalogSource struct {
	path string
}

// NewFileCatalogSource creates a FileCatalogSource for path.
func NewFileCatalogSource(path string) *FileCatalogSource {
	return &FileCatalogSource{path: path}
}

// Fetch reads and decodes the file. The file is re-read on every call.
func (s *FileCatalogSource) Fetch(ctx context.Context) ([]spot.RawSpot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return spot.DecodeCatalog(data)
}

// HTTPCatalogSource fetches the catalog from a remote JSON endpoint, such as
// another instance's GET /api/parking.
type HTTPCatalogSource struct {
	url    string
	client *http.Client
}

// NewHTTPCatalogSource creates an HTTPCatalogSource. A zero timeout means 10s.
func NewHTTPCatalogSource(url string, timeout time.Duration) *HTTPCatalogSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCatalogSource{url: url, client: &http.Client{Timeout: timeout}}
}

// Fetch performs a GET and decodes the JSON array body.
func (s *HTTPCatalogSource) Fetch(ctx context.Context) ([]spot.RawSpot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog endpoint returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}
	return spot.DecodeCatalog(data)
}
