package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"prospector/models"
)

// GormInstructionStore is the Postgres-backed InstructionStore.
type GormInstructionStore struct {
	db *gorm.DB
}

func NewGormInstructionStore(db *gorm.DB) *GormInstructionStore {
	return &GormInstructionStore{db: db}
}

func (s *GormInstructionStore) Get(ctx context.Context, id string) (*models.AgentInstruction, error) {
	var instr models.AgentInstruction
	err := s.db.WithContext(ctx).First(&instr, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &instr, nil
}

func (s *GormInstructionStore) Create(ctx context.Context, instr *models.AgentInstruction) error {
	return s.db.WithContext(ctx).Create(instr).Error
}

func (s *GormInstructionStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.AgentInstruction{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormInstructionStore) List(ctx context.Context) ([]models.AgentInstruction, error) {
	var instrs []models.AgentInstruction
	err := s.db.WithContext(ctx).
		Order("followup_number ASC, created_at DESC").
		Find(&instrs).Error
	if err != nil {
		return nil, err
	}
	return instrs, nil
}

func (s *GormInstructionStore) ListByStep(ctx context.Context, followupNumber int) ([]models.AgentInstruction, error) {
	var instrs []models.AgentInstruction
	err := s.db.WithContext(ctx).
		Where("followup_number = ?", followupNumber).
		Order("created_at DESC").
		Find(&instrs).Error
	if err != nil {
		return nil, err
	}
	return instrs, nil
}
