package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Follow-up statuses
const (
	FollowupStatusScheduled = "scheduled"
	FollowupStatusSent      = "sent"
	FollowupStatusCancelled = "cancelled"
	FollowupStatusFailed    = "failed"
)

// Followup is one scheduled (or executed) follow-up email tied to an
// initial sent draft. Created by the auto-followup scheduler; the
// dashboard only cancels and retries them.
type Followup struct {
	ID      string `gorm:"primaryKey;column:id" json:"id"`
	DraftID string `gorm:"column:draft_id;index;not null" json:"draft_id"`

	To      string `gorm:"column:to" json:"to"`
	Subject string `gorm:"column:subject" json:"subject"`
	Body    string `gorm:"column:body;type:text" json:"body"`

	Status            string     `gorm:"column:status;default:'scheduled';index" json:"status"`
	FollowupNumber    int        `gorm:"column:followup_number;default:1" json:"followup_number"`
	BusinessDaysAfter int        `gorm:"column:business_days_after;default:0" json:"business_days_after"`
	ScheduledFor      *time.Time `gorm:"column:scheduled_for" json:"scheduled_for,omitempty"`
	SentAt            *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`

	RetryCount   int    `gorm:"column:retry_count;default:0" json:"retry_count"`
	ErrorMessage string `gorm:"column:error_message" json:"error_message,omitempty"`

	CancelledAt     *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancelledReason string     `gorm:"column:cancelled_reason" json:"cancelled_reason,omitempty"`

	CreatedAt *time.Time `gorm:"column:created_at" json:"created_at,omitempty"`

	// Parent draft summary for the timeline view, filled at read time.
	Draft *Draft `gorm:"-" json:"draft,omitempty"`
}

func (Followup) TableName() string {
	return "email_followups"
}

func (f *Followup) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt == nil {
		now := time.Now().UTC()
		f.CreatedAt = &now
	}
	return nil
}
