package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"prospector/models"
	"prospector/store"
)

// FollowupEngine covers the two follow-up mutations the dashboard owns:
// cancelling scheduled follow-ups and re-queueing failed ones. Creation
// and execution belong to the auto-followup service.
type FollowupEngine struct {
	followups store.FollowupStore
	log       *logrus.Logger
}

func NewFollowupEngine(followups store.FollowupStore, log *logrus.Logger) *FollowupEngine {
	return &FollowupEngine{followups: followups, log: log}
}

// Cancel cancels one scheduled follow-up. Only scheduled follow-ups can
// be cancelled.
func (e *FollowupEngine) Cancel(ctx context.Context, followupID, reason string) error {
	followup, err := e.followups.Get(ctx, followupID)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "followup", ID: followupID}
	}
	if err != nil {
		return err
	}
	if followup.Status != models.FollowupStatusScheduled {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("cannot cancel a %s followup", followup.Status)}
	}
	if reason == "" {
		reason = "cancelled manually"
	}
	return e.followups.Update(ctx, followupID, map[string]interface{}{
		"status":           models.FollowupStatusCancelled,
		"cancelled_at":     time.Now().UTC(),
		"cancelled_reason": reason,
	})
}

// CancelAllForDraft cancels every scheduled follow-up of one draft,
// accumulating per-item errors.
func (e *FollowupEngine) CancelAllForDraft(ctx context.Context, draftID, reason string) BulkResult {
	result := BulkResult{}
	scheduled, err := e.followups.ListScheduledByDraft(ctx, draftID)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	for _, f := range scheduled {
		if err := e.Cancel(ctx, f.ID, reason); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("followup %s: %v", f.ID, err))
			continue
		}
		result.Processed++
	}
	return result
}

// Retry re-queues a failed follow-up: failed goes back to scheduled with
// the retry counter bumped and the error cleared. The scheduler picks it
// up on its next pass.
func (e *FollowupEngine) Retry(ctx context.Context, followupID string) error {
	followup, err := e.followups.Get(ctx, followupID)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "followup", ID: followupID}
	}
	if err != nil {
		return err
	}
	if followup.Status != models.FollowupStatusFailed {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("cannot retry a %s followup", followup.Status)}
	}
	return e.followups.Update(ctx, followupID, map[string]interface{}{
		"status":        models.FollowupStatusScheduled,
		"retry_count":   followup.RetryCount + 1,
		"error_message": "",
	})
}
