package models

import "time"

// OpenRecord is the per-pixel open counter written by the pixel-serving
// service. Keyed by pixel id; strictly read-only from the dashboard.
type OpenRecord struct {
	PixelID       string     `gorm:"primaryKey;column:pixel_id" json:"pixel_id"`
	OpenCount     int        `gorm:"column:open_count;default:0" json:"open_count"`
	FirstOpenedAt *time.Time `gorm:"column:first_opened_at" json:"first_opened_at,omitempty"`
	LastOpenedAt  *time.Time `gorm:"column:last_opened_at" json:"last_opened_at,omitempty"`
}

func (OpenRecord) TableName() string {
	return "email_opens"
}

// OpenEvent is one individual beacon fetch under an OpenRecord.
type OpenEvent struct {
	ID        string     `gorm:"primaryKey;column:id" json:"id"`
	PixelID   string     `gorm:"column:pixel_id;index;not null" json:"pixel_id"`
	OpenedAt  *time.Time `gorm:"column:opened_at" json:"opened_at,omitempty"`
	UserAgent string     `gorm:"column:user_agent" json:"user_agent,omitempty"`
	IPAddress string     `gorm:"column:ip_address" json:"ip_address,omitempty"`
}

func (OpenEvent) TableName() string {
	return "email_open_events"
}
