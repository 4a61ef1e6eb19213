package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Draft lifecycle statuses
const (
	DraftStatusPending     = "pending"
	DraftStatusSent        = "sent"
	DraftStatusRejected    = "rejected"
	DraftStatusError       = "error"
	DraftStatusRegenerated = "regenerated"
)

// Draft represents one candidate outreach email. Column names are the
// contract shared with the writer, sender and notifier services, so they
// stay in the snake_case form those services read and write.
type Draft struct {
	ID string `gorm:"primaryKey;column:id" json:"id"`

	To      string `gorm:"column:to;not null" json:"to"`
	Subject string `gorm:"column:subject" json:"subject"`
	Body    string `gorm:"column:body;type:text" json:"body"`
	Status  string `gorm:"column:status;default:'pending';index" json:"status"`

	CreatedAt  *time.Time `gorm:"column:created_at" json:"created_at,omitempty"`
	SentAt     *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	RejectedAt *time.Time `gorm:"column:rejected_at" json:"rejected_at,omitempty"`

	// Links into the rest of the pipeline
	VersionGroupID string `gorm:"column:version_group_id;index" json:"version_group_id,omitempty"`
	XExternalID    string `gorm:"column:x_external_id" json:"x_external_id,omitempty"`
	OdooID         *int64 `gorm:"column:odoo_id" json:"odoo_id,omitempty"`
	PixelID        string `gorm:"column:pixel_id" json:"pixel_id,omitempty"`
	GmailThreadID  string `gorm:"column:gmail_thread_id" json:"gmail_thread_id,omitempty"`
	MessageID      string `gorm:"column:message_id" json:"message_id,omitempty"`

	// Engagement flags maintained by gmail-notifier
	HasReply        bool       `gorm:"column:has_reply;default:false" json:"has_reply"`
	HasBounce       bool       `gorm:"column:has_bounce;default:false" json:"has_bounce"`
	ReplyReceivedAt *time.Time `gorm:"column:reply_received_at" json:"reply_received_at,omitempty"`
	ReplyMessage    string     `gorm:"column:reply_message;type:text" json:"reply_message,omitempty"`
	FollowupNumber  int        `gorm:"column:followup_number;default:0" json:"followup_number"`

	// Review audit trail
	Notes             string     `gorm:"column:notes;type:text" json:"notes"`
	NotesUpdatedAt    *time.Time `gorm:"column:notes_updated_at" json:"notes_updated_at,omitempty"`
	AutoRejected      bool       `gorm:"column:auto_rejected;default:false" json:"auto_rejected"`
	RejectedReason    string     `gorm:"column:rejected_reason" json:"rejected_reason,omitempty"`
	ManuallyEdited    bool       `gorm:"column:manually_edited;default:false" json:"manually_edited"`
	EditedFromDraftID string     `gorm:"column:edited_from_draft_id" json:"edited_from_draft_id,omitempty"`

	// Bounce-resend trail
	ResentFromBounced      bool       `gorm:"column:resent_from_bounced;default:false" json:"resent_from_bounced"`
	OriginalBouncedDraftID string     `gorm:"column:original_bounced_draft_id" json:"original_bounced_draft_id,omitempty"`
	OriginalBouncedEmail   string     `gorm:"column:original_bounced_email" json:"original_bounced_email,omitempty"`
	ResentDraftID          string     `gorm:"column:resent_draft_id" json:"resent_draft_id,omitempty"`
	ResentAt               *time.Time `gorm:"column:resent_at" json:"resent_at,omitempty"`

	// Recipient-change trail
	EmailChanged     bool       `gorm:"column:email_changed;default:false" json:"email_changed"`
	OriginalEmail    string     `gorm:"column:original_email" json:"original_email,omitempty"`
	EmailChangedAt   *time.Time `gorm:"column:email_changed_at" json:"email_changed_at,omitempty"`
	OriginalTo       string     `gorm:"column:original_to" json:"original_to,omitempty"`
	EmailForwardedAt *time.Time `gorm:"column:email_forwarded_at" json:"email_forwarded_at,omitempty"`

	ContactInfo map[string]string `gorm:"column:contact_info;type:jsonb;serializer:json" json:"contact_info,omitempty"`

	// Derived fields, filled by the grouping engine and the aggregator.
	// Never persisted.
	VersionCount  int      `gorm:"-" json:"version_count,omitempty"`
	AllVersionIDs []string `gorm:"-" json:"all_version_ids,omitempty"`
	VersionNumber int      `gorm:"-" json:"version_number,omitempty"`
	IsCurrent     bool     `gorm:"-" json:"is_current,omitempty"`

	OpenCount     int        `gorm:"-" json:"open_count"`
	FirstOpenedAt *time.Time `gorm:"-" json:"first_opened_at,omitempty"`
	LastOpenedAt  *time.Time `gorm:"-" json:"last_opened_at,omitempty"`

	TotalFollowups     int `gorm:"-" json:"total_followups"`
	ScheduledFollowups int `gorm:"-" json:"scheduled_followups"`
	SentFollowups      int `gorm:"-" json:"sent_followups"`
	CancelledFollowups int `gorm:"-" json:"cancelled_followups"`
	FailedFollowups    int `gorm:"-" json:"failed_followups"`
}

func (Draft) TableName() string {
	return "email_drafts"
}

func (d *Draft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt == nil {
		now := time.Now().UTC()
		d.CreatedAt = &now
	}
	return nil
}

// GroupKey returns the version-group key: the shared group id when the
// draft has one, otherwise the draft is its own singleton group.
func (d *Draft) GroupKey() string {
	if d.VersionGroupID != "" {
		return d.VersionGroupID
	}
	return d.ID
}

// ThreadMessage is one message of a Gmail thread, mirrored by the
// gmail-notifier service. Read-only here.
type ThreadMessage struct {
	ID        string     `gorm:"primaryKey;column:id" json:"id"`
	DraftID   string     `gorm:"column:draft_id;index;not null" json:"draft_id"`
	From      string     `gorm:"column:from" json:"from"`
	To        string     `gorm:"column:to" json:"to"`
	Snippet   string     `gorm:"column:snippet;type:text" json:"snippet"`
	Body      string     `gorm:"column:body;type:text" json:"body"`
	IsReply   bool       `gorm:"column:is_reply;default:false" json:"is_reply"`
	Timestamp *time.Time `gorm:"column:timestamp" json:"timestamp,omitempty"`
}

func (ThreadMessage) TableName() string {
	return "thread_messages"
}
