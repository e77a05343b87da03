package application

import (
	"context"

	"github.com/parkfinder/service-parking/internal/domain/booking"
	"go.uber.org/zap"
)

// AdminService exposes operator actions over the catalog and ledger.
type AdminService struct {
	sessions *SessionStore
	catalog  *CatalogCache
	ledger   *booking.Ledger
	logger   *zap.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(sessions *SessionStore, catalog *CatalogCache, ledger *booking.Ledger, logger *zap.Logger) *AdminService {
	return &AdminService{sessions: sessions, catalog: catalog, ledger: ledger, logger: logger}
}

// ReloadCatalog refreshes the spot catalog and returns its new state.
func (s *AdminService) ReloadCatalog(ctx context.Context) (*CatalogSnapshot, error) {
	if err := s.catalog.Reload(ctx); err != nil {
		return nil, err
	}
	snap := s.catalog.Snapshot()
	s.logger.Info("catalog reloaded by operator", zap.Int("spots", snap.Size))
	return &snap, nil
}

// Stats summarizes catalog, ledger and session counts.
func (s *AdminService) Stats(ctx context.Context) (*StatsDTO, error) {
	n, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsDTO{
		Catalog:        s.catalog.Snapshot(),
		LedgerSize:     n,
		ActiveSessions: s.sessions.Count(),
	}, nil
}
