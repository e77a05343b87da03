package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/parkfinder/service-parking/internal/domain/spot"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SpotModel is the GORM model for the parking_spots table.
type SpotModel struct {
	ID             string   `gorm:"primaryKey;size:64"`
	Name           string   `gorm:"size:255;not null"`
	Latitude       float64  `gorm:"not null"`
	Longitude      float64  `gorm:"not null"`
	Type           string   `gorm:"size:50"`
	PricePerHour   *float64 `gorm:""`
	TotalSlots     *int     `gorm:""`
	AvailableSlots *int     `gorm:""`
	Authority      string   `gorm:"size:255"`
	Owner          string   `gorm:"size:255"`
	Contact        string   `gorm:"size:100"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for the GORM model.
func (SpotModel) TableName() string { return "parking_spots" }

// GormSpotRepository serves the spot catalog from PostgreSQL.
type GormSpotRepository struct {
	db *gorm.DB
}

// NewGormSpotRepository creates a new GormSpotRepository.
func NewGormSpotRepository(db *gorm.DB) *GormSpotRepository {
	return &GormSpotRepository{db: db}
}

// Fetch returns every stored spot as a raw catalog record.
func (r *GormSpotRepository) Fetch(ctx context.Context) ([]spot.RawSpot, error) {
	var models []SpotModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch parking spots: %w", err)
	}
	raw := make([]spot.RawSpot, len(models))
	for i := range models {
		raw[i] = toRawSpot(&models[i])
	}
	return raw, nil
}

// SaveAll upserts spots by id.
func (r *GormSpotRepository) SaveAll(ctx context.Context, spots []spot.ParkingSpot) error {
	if len(spots) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]SpotModel, len(spots))
	for i, s := range spots {
		models[i] = toSpotModel(s, now)
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "latitude", "longitude", "type", "price_per_hour",
			"total_slots", "available_slots", "authority", "owner", "contact", "updated_at",
		}),
	}).Create(&models).Error
	if err != nil {
		return fmt.Errorf("failed to save parking spots: %w", err)
	}
	return nil
}

// Count returns the number of stored spots.
func (r *GormSpotRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&SpotModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count parking spots: %w", err)
	}
	return n, nil
}

// --- Conversions ---

func toSpotModel(s spot.ParkingSpot, now time.Time) SpotModel {
	return SpotModel{
		ID:             s.ID,
		Name:           s.Name,
		Latitude:       s.Latitude,
		Longitude:      s.Longitude,
		Type:           s.Type,
		PricePerHour:   s.PricePerHour,
		TotalSlots:     s.TotalSlots,
		AvailableSlots: s.AvailableSlots,
		Authority:      s.Authority,
		Owner:          s.Owner,
		Contact:        s.Contact,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func toRawSpot(m *SpotModel) spot.RawSpot {
	raw := spot.RawSpot{
		ID:        spot.NewScalar(m.ID),
		Name:      m.Name,
		Latitude:  spot.NewScalar(formatFloat(m.Latitude)),
		Longitude: spot.NewScalar(formatFloat(m.Longitude)),
		Type:      m.Type,
		Authority: m.Authority,
		Owner:     m.Owner,
		Contact:   m.Contact,
	}
	if m.PricePerHour != nil {
		raw.PricePerHour = spot.NewScalar(formatFloat(*m.PricePerHour))
	}
	if m.TotalSlots != nil {
		raw.TotalSlots = spot.NewScalar(strconv.Itoa(*m.TotalSlots))
	}
	if m.AvailableSlots != nil {
		raw.AvailableSlots = spot.NewScalar(strconv.Itoa(*m.AvailableSlots))
	}
	return raw
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
