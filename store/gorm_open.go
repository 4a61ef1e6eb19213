package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"prospector/models"
)

// GormOpenStore reads the pixel-tracking tables. The dashboard never
// writes them; the pixel service owns every row.
type GormOpenStore struct {
	db *gorm.DB
}

func NewGormOpenStore(db *gorm.DB) *GormOpenStore {
	return &GormOpenStore{db: db}
}

func (s *GormOpenStore) Get(ctx context.Context, pixelID string) (*models.OpenRecord, error) {
	var record models.OpenRecord
	err := s.db.WithContext(ctx).First(&record, "pixel_id = ?", pixelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormOpenStore) ListEvents(ctx context.Context, pixelID string, limit int) ([]models.OpenEvent, error) {
	q := s.db.WithContext(ctx).
		Where("pixel_id = ?", pixelID).
		Order("opened_at DESC NULLS LAST")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var events []models.OpenEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
