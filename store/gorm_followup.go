package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"prospector/models"
)

// GormFollowupStore is the Postgres-backed FollowupStore.
type GormFollowupStore struct {
	db *gorm.DB
}

func NewGormFollowupStore(db *gorm.DB) *GormFollowupStore {
	return &GormFollowupStore{db: db}
}

func (s *GormFollowupStore) Get(ctx context.Context, id string) (*models.Followup, error) {
	var followup models.Followup
	err := s.db.WithContext(ctx).First(&followup, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &followup, nil
}

func (s *GormFollowupStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Followup{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormFollowupStore) ListByDraft(ctx context.Context, draftID string) ([]models.Followup, error) {
	var followups []models.Followup
	err := s.db.WithContext(ctx).
		Where("draft_id = ?", draftID).
		Order("followup_number ASC").
		Find(&followups).Error
	if err != nil {
		return nil, err
	}
	return followups, nil
}

func (s *GormFollowupStore) ListRecent(ctx context.Context, limit int) ([]models.Followup, error) {
	q := s.db.WithContext(ctx).Order("scheduled_for DESC NULLS LAST")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var followups []models.Followup
	if err := q.Find(&followups).Error; err != nil {
		return nil, err
	}
	return followups, nil
}

func (s *GormFollowupStore) ListScheduledByDraft(ctx context.Context, draftID string) ([]models.Followup, error) {
	var followups []models.Followup
	err := s.db.WithContext(ctx).
		Where("draft_id = ? AND status = ?", draftID, models.FollowupStatusScheduled).
		Order("followup_number ASC").
		Find(&followups).Error
	if err != nil {
		return nil, err
	}
	return followups, nil
}
