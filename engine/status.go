package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/sirupsen/logrus"

	"prospector/models"
	"prospector/store"
)

// SendResult is what the send-mail service reports on success.
type SendResult struct {
	MessageID string `json:"message_id"`
	PixelID   string `json:"pixel_id,omitempty"`
}

// BulkResult summarizes a batch operation. Batch operations never abort
// on the first failure; per-item errors are accumulated.
type BulkResult struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors,omitempty"`
}

// StatusEngine applies draft lifecycle transitions and their side
// effects. It owns every write to the drafts collection the dashboard
// performs.
type StatusEngine struct {
	drafts    store.DraftStore
	followups store.FollowupStore
	log       *logrus.Logger
}

func NewStatusEngine(drafts store.DraftStore, followups store.FollowupStore, log *logrus.Logger) *StatusEngine {
	return &StatusEngine{drafts: drafts, followups: followups, log: log}
}

// Reject marks a draft rejected and stamps rejected_at. Re-rejecting an
// already rejected draft just re-stamps the timestamp.
func (e *StatusEngine) Reject(ctx context.Context, draftID string) error {
	if _, err := e.mustGet(ctx, draftID); err != nil {
		return err
	}
	return e.drafts.Update(ctx, draftID, map[string]interface{}{
		"status":      models.DraftStatusRejected,
		"rejected_at": time.Now().UTC(),
	})
}

// MarkSent records a successful send and auto-rejects the pending
// siblings of the draft's version group. Sibling updates are independent
// document writes, not a transaction: a crash mid-loop leaves part of
// the group still pending. Returns the number of siblings rejected.
func (e *StatusEngine) MarkSent(ctx context.Context, draftID string, result SendResult) (int, error) {
	draft, err := e.mustGet(ctx, draftID)
	if err != nil {
		return 0, err
	}

	fields := map[string]interface{}{
		"status":     models.DraftStatusSent,
		"sent_at":    time.Now().UTC(),
		"message_id": result.MessageID,
	}
	if result.PixelID != "" {
		fields["pixel_id"] = result.PixelID
	}
	if err := e.drafts.Update(ctx, draftID, fields); err != nil {
		return 0, err
	}

	if draft.VersionGroupID == "" {
		return 0, nil
	}

	siblings, err := e.drafts.ListGroupPending(ctx, draft.VersionGroupID)
	if err != nil {
		return 0, fmt.Errorf("listing version group %s: %w", draft.VersionGroupID, err)
	}

	rejected := 0
	var failures []error
	for _, sibling := range siblings {
		if sibling.ID == draftID {
			continue
		}
		err := e.drafts.Update(ctx, sibling.ID, map[string]interface{}{
			"status":          models.DraftStatusRejected,
			"rejected_at":     time.Now().UTC(),
			"auto_rejected":   true,
			"rejected_reason": fmt.Sprintf("another version was sent (draft %s)", draftID),
		})
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"draft_id":   sibling.ID,
				"group_id":   draft.VersionGroupID,
				"sent_draft": draftID,
			}).WithError(err).Error("failed to auto-reject sibling version")
			failures = append(failures, fmt.Errorf("sibling %s: %w", sibling.ID, err))
			continue
		}
		rejected++
	}
	return rejected, errors.Join(failures...)
}

// CreateEditedRevision creates a new pending draft carrying the source's
// recipient, group and CRM references with the edited subject and body.
// The source draft is never mutated; the new revision joins its version
// group. Returns the new draft's id.
func (e *StatusEngine) CreateEditedRevision(ctx context.Context, sourceID, subject, body string) (string, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" {
		return "", &ValidationError{Field: "subject", Reason: "must not be blank"}
	}
	if body == "" {
		return "", &ValidationError{Field: "body", Reason: "must not be blank"}
	}

	source, err := e.mustGet(ctx, sourceID)
	if err != nil {
		return "", err
	}

	revision := &models.Draft{
		To:                source.To,
		Subject:           subject,
		Body:              body,
		Status:            models.DraftStatusPending,
		VersionGroupID:    source.VersionGroupID,
		XExternalID:       source.XExternalID,
		OdooID:            source.OdooID,
		ContactInfo:       source.ContactInfo,
		ManuallyEdited:    true,
		EditedFromDraftID: sourceID,
	}
	if err := e.drafts.Create(ctx, revision); err != nil {
		return "", err
	}
	return revision.ID, nil
}

// ResendFromBounce clones a bounced draft into a new pending draft
// addressed to newEmail and back-stamps the original. Fails when the
// draft never bounced or the address is unusable.
func (e *StatusEngine) ResendFromBounce(ctx context.Context, bouncedID, newEmail string) (string, error) {
	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" {
		return "", &ValidationError{Field: "new_email", Reason: "must not be blank"}
	}
	if err := checkmail.ValidateFormat(newEmail); err != nil {
		return "", &ValidationError{Field: "new_email", Reason: "invalid email address"}
	}

	source, err := e.mustGet(ctx, bouncedID)
	if err != nil {
		return "", err
	}
	if !source.HasBounce {
		return "", &ValidationError{Field: "draft", Reason: "draft did not bounce"}
	}

	clone := &models.Draft{
		To:                     newEmail,
		Subject:                source.Subject,
		Body:                   source.Body,
		Status:                 models.DraftStatusPending,
		VersionGroupID:         source.VersionGroupID,
		XExternalID:            source.XExternalID,
		OdooID:                 source.OdooID,
		ContactInfo:            source.ContactInfo,
		ResentFromBounced:      true,
		OriginalBouncedDraftID: bouncedID,
		OriginalBouncedEmail:   source.To,
	}
	if err := e.drafts.Create(ctx, clone); err != nil {
		return "", err
	}

	if err := e.drafts.Update(ctx, bouncedID, map[string]interface{}{
		"resent_draft_id": clone.ID,
		"resent_at":       time.Now().UTC(),
	}); err != nil {
		// The clone exists either way; the missing back-reference only
		// costs the history view its link.
		e.log.WithField("draft_id", bouncedID).WithError(err).Warn("failed to stamp bounced draft with resend reference")
	}
	return clone.ID, nil
}

// ChangeRecipient updates a pending draft's address in place, keeping
// the original for the audit trail.
func (e *StatusEngine) ChangeRecipient(ctx context.Context, draftID, newEmail string) error {
	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" {
		return &ValidationError{Field: "new_email", Reason: "must not be blank"}
	}
	if err := checkmail.ValidateFormat(newEmail); err != nil {
		return &ValidationError{Field: "new_email", Reason: "invalid email address"}
	}

	draft, err := e.mustGet(ctx, draftID)
	if err != nil {
		return err
	}
	return e.drafts.Update(ctx, draftID, map[string]interface{}{
		"to":               newEmail,
		"email_changed":    true,
		"original_email":   draft.To,
		"email_changed_at": time.Now().UTC(),
	})
}

// ForwardRecipient repoints an already-sent draft and its scheduled
// follow-ups to a new address, after the send-mail service has forwarded
// the mail there.
func (e *StatusEngine) ForwardRecipient(ctx context.Context, draftID, newEmail string) error {
	draft, err := e.mustGet(ctx, draftID)
	if err != nil {
		return err
	}

	if err := e.drafts.Update(ctx, draftID, map[string]interface{}{
		"to":                 newEmail,
		"original_to":        draft.To,
		"email_forwarded_at": time.Now().UTC(),
	}); err != nil {
		return err
	}

	scheduled, err := e.followups.ListScheduledByDraft(ctx, draftID)
	if err != nil {
		return err
	}
	for _, f := range scheduled {
		if err := e.followups.Update(ctx, f.ID, map[string]interface{}{"to": newEmail}); err != nil {
			e.log.WithField("followup_id", f.ID).WithError(err).Error("failed to retarget scheduled followup")
		}
	}
	return nil
}

// UpdateNotes replaces a draft's free-text notes.
func (e *StatusEngine) UpdateNotes(ctx context.Context, draftID, notes string) error {
	err := e.drafts.Update(ctx, draftID, map[string]interface{}{
		"notes":            notes,
		"notes_updated_at": time.Now().UTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "draft", ID: draftID}
	}
	return err
}

// DeleteRejected removes every rejected draft and returns the count.
func (e *StatusEngine) DeleteRejected(ctx context.Context) (int64, error) {
	return e.drafts.DeleteByStatus(ctx, models.DraftStatusRejected)
}

// DeleteMany removes drafts by id, accumulating per-item errors.
func (e *StatusEngine) DeleteMany(ctx context.Context, draftIDs []string) BulkResult {
	result := BulkResult{}
	for _, id := range draftIDs {
		if err := e.drafts.Delete(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				result.Errors = append(result.Errors, fmt.Sprintf("draft %s not found", id))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("draft %s: %v", id, err))
			}
			continue
		}
		result.Processed++
	}
	return result
}

func (e *StatusEngine) mustGet(ctx context.Context, draftID string) (*models.Draft, error) {
	draft, err := e.drafts.Get(ctx, draftID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Kind: "draft", ID: draftID}
	}
	if err != nil {
		return nil, err
	}
	return draft, nil
}
