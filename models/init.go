package models

import "gorm.io/gorm"

// Migrate creates or updates all dashboard tables. The drafts, followups
// and open-tracking tables are shared with the sibling services, so the
// column set here must stay in sync with what they write.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Draft{},
		&ThreadMessage{},
		&Followup{},
		&OpenRecord{},
		&OpenEvent{},
		&AgentInstruction{},
	)
}
