package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AgentInstruction is a named, versioned prompt text for one follow-up
// step. At most one version per step is active at a time; activation is
// last-writer-wins, enforced by the instruction engine.
type AgentInstruction struct {
	ID              string     `gorm:"primaryKey;column:id" json:"id"`
	FollowupNumber  int        `gorm:"column:followup_number;index;not null" json:"followup_number"`
	VersionName     string     `gorm:"column:version_name;not null" json:"version_name"`
	InstructionText string     `gorm:"column:instruction_text;type:text" json:"instruction_text"`
	IsActive        bool       `gorm:"column:is_active;default:false;index" json:"is_active"`
	CreatedAt       *time.Time `gorm:"column:created_at" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`
}

func (AgentInstruction) TableName() string {
	return "agent_instructions"
}

func (ai *AgentInstruction) BeforeCreate(tx *gorm.DB) error {
	if ai.ID == "" {
		ai.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ai.CreatedAt == nil {
		ai.CreatedAt = &now
	}
	if ai.UpdatedAt == nil {
		ai.UpdatedAt = &now
	}
	return nil
}
