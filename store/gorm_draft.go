package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"prospector/models"
)

// GormDraftStore is the Postgres-backed DraftStore.
type GormDraftStore struct {
	db *gorm.DB
}

func NewGormDraftStore(db *gorm.DB) *GormDraftStore {
	return &GormDraftStore{db: db}
}

func (s *GormDraftStore) Get(ctx context.Context, id string) (*models.Draft, error) {
	var draft models.Draft
	err := s.db.WithContext(ctx).First(&draft, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (s *GormDraftStore) Create(ctx context.Context, draft *models.Draft) error {
	return s.db.WithContext(ctx).Create(draft).Error
}

func (s *GormDraftStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Draft{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormDraftStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Draft{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormDraftStore) ListByStatus(ctx context.Context, status, orderBy string, limit int) ([]models.Draft, error) {
	if orderBy == "" {
		orderBy = "created_at"
	}
	q := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order(orderBy + " DESC NULLS LAST")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var drafts []models.Draft
	if err := q.Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

func (s *GormDraftStore) ListRecent(ctx context.Context, limit int) ([]models.Draft, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC NULLS LAST")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var drafts []models.Draft
	if err := q.Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

func (s *GormDraftStore) ListPage(ctx context.Context, status string, limit int, cursor string) (*Page, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC NULLS LAST, id DESC").
		Limit(limit + 1)

	if cursor != "" {
		ts, id, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		if ts != nil {
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?) OR created_at IS NULL", ts, ts, id)
		} else {
			q = q.Where("created_at IS NULL AND id < ?", id)
		}
	}

	var drafts []models.Draft
	if err := q.Find(&drafts).Error; err != nil {
		return nil, err
	}

	page := &Page{Drafts: drafts}
	if len(drafts) > limit {
		page.Drafts = drafts[:limit]
		last := page.Drafts[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (s *GormDraftStore) ListGroupPending(ctx context.Context, versionGroupID string) ([]models.Draft, error) {
	var drafts []models.Draft
	err := s.db.WithContext(ctx).
		Where("version_group_id = ? AND status = ?", versionGroupID, models.DraftStatusPending).
		Order("created_at ASC NULLS FIRST").
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func (s *GormDraftStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Draft{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (s *GormDraftStore) DeleteByStatus(ctx context.Context, status string) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&models.Draft{}, "status = ?", status)
	return res.RowsAffected, res.Error
}

func (s *GormDraftStore) ListThreadMessages(ctx context.Context, draftID string) ([]models.ThreadMessage, error) {
	var messages []models.ThreadMessage
	err := s.db.WithContext(ctx).
		Where("draft_id = ?", draftID).
		Order("timestamp ASC NULLS FIRST").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
