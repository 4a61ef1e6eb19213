package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"prospector/models"
)

func TestBuildKanbanBucketsByStatusAndEngagement(t *testing.T) {
	board := BuildKanban([]models.Draft{
		{ID: "p1", Status: models.DraftStatusPending},
		{ID: "s1", Status: models.DraftStatusSent},
		{ID: "s2", Status: models.DraftStatusSent, HasReply: true},
		{ID: "s3", Status: models.DraftStatusSent, HasBounce: true},
		{ID: "r1", Status: models.DraftStatusRejected},
	})

	assert.Len(t, board.Pending, 1)
	assert.Equal(t, "p1", board.Pending[0].ID)
	assert.Len(t, board.Sent, 1)
	assert.Equal(t, "s1", board.Sent[0].ID)
	assert.Len(t, board.Replied, 1)
	assert.Equal(t, "s2", board.Replied[0].ID)
	assert.Len(t, board.Bounced, 1)
	assert.Equal(t, "s3", board.Bounced[0].ID)
}

func TestBuildKanbanBouncePrecedesReply(t *testing.T) {
	board := BuildKanban([]models.Draft{
		{ID: "s1", Status: models.DraftStatusSent, HasReply: true, HasBounce: true},
	})

	assert.Empty(t, board.Replied)
	assert.Len(t, board.Bounced, 1)
	assert.Equal(t, "s1", board.Bounced[0].ID)
}

func TestBuildKanbanEmptyColumnsStayNonNil(t *testing.T) {
	board := BuildKanban(nil)

	assert.NotNil(t, board.Pending)
	assert.NotNil(t, board.Sent)
	assert.NotNil(t, board.Replied)
	assert.NotNil(t, board.Bounced)
}
