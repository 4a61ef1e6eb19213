package engine

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/models"
	"prospector/store"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newStatusFixture() (*StatusEngine, *store.MemoryDraftStore, *store.MemoryFollowupStore) {
	drafts := store.NewMemoryDraftStore()
	followups := store.NewMemoryFollowupStore()
	return NewStatusEngine(drafts, followups, quietLogger()), drafts, followups
}

func TestRejectStampsDraft(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(&models.Draft{ID: "d1", Status: models.DraftStatusPending})

	require.NoError(t, eng.Reject(context.Background(), "d1"))

	got, err := drafts.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusRejected, got.Status)
	assert.NotNil(t, got.RejectedAt)
}

func TestRejectUnknownDraft(t *testing.T) {
	eng, _, _ := newStatusFixture()

	err := eng.Reject(context.Background(), "nope")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "draft", nf.Kind)
}

func TestMarkSentAutoRejectsSiblings(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(
		&models.Draft{ID: "d1", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(0)},
		&models.Draft{ID: "d2", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(10)},
		&models.Draft{ID: "d3", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(20)},
	)

	rejected, err := eng.MarkSent(context.Background(), "d2", SendResult{MessageID: "m-1", PixelID: "px-1"})

	require.NoError(t, err)
	assert.Equal(t, 2, rejected)

	sent, _ := drafts.Get(context.Background(), "d2")
	assert.Equal(t, models.DraftStatusSent, sent.Status)
	assert.Equal(t, "m-1", sent.MessageID)
	assert.Equal(t, "px-1", sent.PixelID)
	assert.NotNil(t, sent.SentAt)

	for _, id := range []string{"d1", "d3"} {
		sibling, _ := drafts.Get(context.Background(), id)
		assert.Equal(t, models.DraftStatusRejected, sibling.Status, id)
		assert.True(t, sibling.AutoRejected, id)
		assert.Contains(t, sibling.RejectedReason, "d2", id)
	}
}

func TestMarkSentWithoutGroupRejectsNothing(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(&models.Draft{ID: "solo", Status: models.DraftStatusPending})

	rejected, err := eng.MarkSent(context.Background(), "solo", SendResult{MessageID: "m-2"})

	require.NoError(t, err)
	assert.Zero(t, rejected)
}

func TestMarkSentLeavesNonPendingSiblingsAlone(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(
		&models.Draft{ID: "d1", Status: models.DraftStatusPending, VersionGroupID: "g1"},
		&models.Draft{ID: "d2", Status: models.DraftStatusRejected, VersionGroupID: "g1"},
	)

	rejected, err := eng.MarkSent(context.Background(), "d1", SendResult{MessageID: "m-3"})

	require.NoError(t, err)
	assert.Zero(t, rejected)

	manual, _ := drafts.Get(context.Background(), "d2")
	assert.False(t, manual.AutoRejected)
}

func TestCreateEditedRevisionJoinsGroup(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	odooID := int64(77)
	drafts.Seed(&models.Draft{
		ID:             "src",
		To:             "lead@example.com",
		Subject:        "Original subject",
		Body:           "Original body",
		Status:         models.DraftStatusPending,
		VersionGroupID: "g1",
		XExternalID:    "x-123",
		OdooID:         &odooID,
	})

	newID, err := eng.CreateEditedRevision(context.Background(), "src", "  Edited subject  ", "Edited body")
	require.NoError(t, err)
	require.NotEmpty(t, newID)
	require.NotEqual(t, "src", newID)

	revision, err := drafts.Get(context.Background(), newID)
	require.NoError(t, err)
	assert.Equal(t, "Edited subject", revision.Subject)
	assert.Equal(t, "Edited body", revision.Body)
	assert.Equal(t, "lead@example.com", revision.To)
	assert.Equal(t, "g1", revision.VersionGroupID)
	assert.Equal(t, "x-123", revision.XExternalID)
	assert.Equal(t, models.DraftStatusPending, revision.Status)
	assert.True(t, revision.ManuallyEdited)
	assert.Equal(t, "src", revision.EditedFromDraftID)

	source, _ := drafts.Get(context.Background(), "src")
	assert.Equal(t, "Original subject", source.Subject)
	assert.Equal(t, models.DraftStatusPending, source.Status)
}

func TestCreateEditedRevisionBlankSubject(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(&models.Draft{ID: "src", Status: models.DraftStatusPending})

	_, err := eng.CreateEditedRevision(context.Background(), "src", "   ", "body")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "subject", ve.Field)

	count, _ := drafts.CountByStatus(context.Background(), models.DraftStatusPending)
	assert.EqualValues(t, 1, count)
}

func TestResendFromBounceClonesDraft(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(&models.Draft{
		ID:        "bounced",
		To:        "dead@example.com",
		Subject:   "Hello",
		Body:      "Body",
		Status:    models.DraftStatusSent,
		HasBounce: true,
	})

	newID, err := eng.ResendFromBounce(context.Background(), "bounced", "alive@example.com")
	require.NoError(t, err)

	clone, err := drafts.Get(context.Background(), newID)
	require.NoError(t, err)
	assert.Equal(t, "alive@example.com", clone.To)
	assert.Equal(t, models.DraftStatusPending, clone.Status)
	assert.True(t, clone.ResentFromBounced)
	assert.Equal(t, "bounced", clone.OriginalBouncedDraftID)
	assert.Equal(t, "dead@example.com", clone.OriginalBouncedEmail)

	original, _ := drafts.Get(context.Background(), "bounced")
	assert.Equal(t, newID, original.ResentDraftID)
	assert.NotNil(t, original.ResentAt)
}

func TestResendFromBounceRequiresBounce(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(&models.Draft{ID: "sent", Status: models.DraftStatusSent})

	_, err := eng.ResendFromBounce(context.Background(), "sent", "ok@example.com")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestResendFromBounceRejectsBadAddress(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(&models.Draft{ID: "bounced", HasBounce: true})

	_, err := eng.ResendFromBounce(context.Background(), "bounced", "not-an-email")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "new_email", ve.Field)
}

func TestChangeRecipientKeepsAuditTrail(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(&models.Draft{ID: "d1", To: "old@example.com", Status: models.DraftStatusPending})

	require.NoError(t, eng.ChangeRecipient(context.Background(), "d1", "new@example.com"))

	got, _ := drafts.Get(context.Background(), "d1")
	assert.Equal(t, "new@example.com", got.To)
	assert.True(t, got.EmailChanged)
	assert.Equal(t, "old@example.com", got.OriginalEmail)
	assert.NotNil(t, got.EmailChangedAt)
}

func TestForwardRecipientRetargetsScheduledFollowups(t *testing.T) {
	eng, drafts, followups := newStatusFixture()
	drafts.Seed(&models.Draft{ID: "d1", To: "old@example.com", Status: models.DraftStatusSent})
	followups.Seed(
		&models.Followup{ID: "f1", DraftID: "d1", FollowupNumber: 1, Status: models.FollowupStatusScheduled, To: "old@example.com"},
		&models.Followup{ID: "f2", DraftID: "d1", FollowupNumber: 2, Status: models.FollowupStatusSent, To: "old@example.com"},
	)

	require.NoError(t, eng.ForwardRecipient(context.Background(), "d1", "fwd@example.com"))

	draft, _ := drafts.Get(context.Background(), "d1")
	assert.Equal(t, "fwd@example.com", draft.To)
	assert.Equal(t, "old@example.com", draft.OriginalTo)

	scheduled, _ := followups.Get(context.Background(), "f1")
	assert.Equal(t, "fwd@example.com", scheduled.To)
	alreadySent, _ := followups.Get(context.Background(), "f2")
	assert.Equal(t, "old@example.com", alreadySent.To)
}

func TestUpdateNotesUnknownDraft(t *testing.T) {
	eng, _, _ := newStatusFixture()

	err := eng.UpdateNotes(context.Background(), "ghost", "text")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDeleteManyAccumulatesErrors(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(
		&models.Draft{ID: "d1", Status: models.DraftStatusPending},
		&models.Draft{ID: "d2", Status: models.DraftStatusPending},
	)

	result := eng.DeleteMany(context.Background(), []string{"d1", "ghost", "d2"})

	assert.Equal(t, 2, result.Processed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ghost")
}

func TestDeleteRejectedClearsOnlyRejected(t *testing.T) {
	eng, drafts, _ := newStatusFixture()
	drafts.Seed(
		&models.Draft{ID: "r1", Status: models.DraftStatusRejected},
		&models.Draft{ID: "r2", Status: models.DraftStatusRejected},
		&models.Draft{ID: "p1", Status: models.DraftStatusPending},
	)

	deleted, err := eng.DeleteRejected(context.Background())

	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	remaining, _ := drafts.CountByStatus(context.Background(), models.DraftStatusPending)
	assert.EqualValues(t, 1, remaining)
}
