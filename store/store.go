// Package store is the data-access layer of the dashboard. Engines and
// controllers depend on the interfaces here, never on gorm directly, so
// tests run against the in-memory implementations.
package store

import (
	"context"
	"errors"

	"prospector/models"
)

// ErrNotFound is returned when a referenced document id does not resolve.
// Callers decide whether absence is exceptional.
var ErrNotFound = errors.New("document not found")

// Page carries the drafts of one listing page plus the cursor for the
// next page. An empty NextCursor means the listing is exhausted.
type Page struct {
	Drafts     []models.Draft
	NextCursor string
}

// DraftStore is the adapter over the drafts collection.
type DraftStore interface {
	Get(ctx context.Context, id string) (*models.Draft, error)
	Create(ctx context.Context, draft *models.Draft) error
	// Update applies a partial field update. Keys are column names
	// (the cross-service contract), values the new field values.
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error

	// ListByStatus returns drafts of one status, newest first by the
	// named timestamp column. A zero limit means no limit.
	ListByStatus(ctx context.Context, status, orderBy string, limit int) ([]models.Draft, error)
	// ListPage is the cursor-paginated variant of ListByStatus ordered
	// by created_at descending.
	ListPage(ctx context.Context, status string, limit int, cursor string) (*Page, error)
	// ListRecent returns the newest drafts across all statuses by
	// created_at. A zero limit means no limit.
	ListRecent(ctx context.Context, limit int) ([]models.Draft, error)
	// ListGroupPending returns the pending members of a version group,
	// oldest first.
	ListGroupPending(ctx context.Context, versionGroupID string) ([]models.Draft, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	DeleteByStatus(ctx context.Context, status string) (int64, error)

	ListThreadMessages(ctx context.Context, draftID string) ([]models.ThreadMessage, error)
}

// FollowupStore is the adapter over the follow-ups collection.
type FollowupStore interface {
	Get(ctx context.Context, id string) (*models.Followup, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// ListByDraft returns a draft's follow-ups ordered by step number.
	ListByDraft(ctx context.Context, draftID string) ([]models.Followup, error)
	// ListRecent returns follow-ups across all drafts, most recently
	// scheduled first.
	ListRecent(ctx context.Context, limit int) ([]models.Followup, error)
	// ListScheduledByDraft returns only the still-scheduled follow-ups
	// of one draft.
	ListScheduledByDraft(ctx context.Context, draftID string) ([]models.Followup, error)
}

// OpenStore reads the open-tracking collection maintained by the pixel
// service.
type OpenStore interface {
	Get(ctx context.Context, pixelID string) (*models.OpenRecord, error)
	// ListEvents returns individual opens, newest first.
	ListEvents(ctx context.Context, pixelID string, limit int) ([]models.OpenEvent, error)
}

// InstructionStore is the adapter over the agent-instructions collection.
type InstructionStore interface {
	Get(ctx context.Context, id string) (*models.AgentInstruction, error)
	Create(ctx context.Context, instr *models.AgentInstruction) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	List(ctx context.Context) ([]models.AgentInstruction, error)
	ListByStep(ctx context.Context, followupNumber int) ([]models.AgentInstruction, error)
}
