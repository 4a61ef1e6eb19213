package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"prospector/engine"
	"prospector/models"
	"prospector/store"
)

// FollowupController serves the follow-up timeline and the manual
// follow-up actions: cancel one, cancel a draft's whole sequence, retry
// a failed one.
type FollowupController struct {
	Drafts    store.DraftStore
	Followups store.FollowupStore
	Engine    *engine.FollowupEngine
	Logger    *logrus.Logger
}

func NewFollowupController(drafts store.DraftStore, followups store.FollowupStore, eng *engine.FollowupEngine, logger *logrus.Logger) *FollowupController {
	return &FollowupController{Drafts: drafts, Followups: followups, Engine: eng, Logger: logger}
}

const timelineLimit = 200

// ListTimeline returns recent follow-ups across all drafts, each joined
// with its parent draft, plus per-status tallies over the window. An
// optional ?status= narrows the listing after tallying, so the tallies
// always describe the whole window.
func (fc *FollowupController) ListTimeline(c *fiber.Ctx) error {
	statusFilter := c.Query("status")
	limit := c.QueryInt("limit", timelineLimit)

	followups, err := fc.Followups.ListRecent(c.Context(), limit)
	if err != nil {
		return fail(c, err)
	}

	// One draft fans out to several follow-ups, fetch each draft once.
	drafts := make(map[string]*models.Draft)
	tally := map[string]int{}
	filtered := followups[:0]

	for i := range followups {
		f := followups[i]
		tally[f.Status]++

		if statusFilter != "" && f.Status != statusFilter {
			continue
		}

		draft, ok := drafts[f.DraftID]
		if !ok {
			draft, err = fc.Drafts.Get(c.Context(), f.DraftID)
			if err == store.ErrNotFound {
				// Draft deleted from under its follow-ups, show them bare.
				draft = nil
			} else if err != nil {
				return fail(c, err)
			}
			drafts[f.DraftID] = draft
		}
		f.Draft = draft
		filtered = append(filtered, f)
	}

	return c.JSON(fiber.Map{
		"followups": filtered,
		"counts": fiber.Map{
			"scheduled": tally[models.FollowupStatusScheduled],
			"sent":      tally[models.FollowupStatusSent],
			"cancelled": tally[models.FollowupStatusCancelled],
			"failed":    tally[models.FollowupStatusFailed],
		},
	})
}

// CancelFollowup cancels one scheduled follow-up.
func (fc *FollowupController) CancelFollowup(c *fiber.Ctx) error {
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := fc.Engine.Cancel(c.Context(), c.Params("id"), input.Reason); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}

// CancelAllForDraft cancels every scheduled follow-up of one draft.
func (fc *FollowupController) CancelAllForDraft(c *fiber.Ctx) error {
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result := fc.Engine.CancelAllForDraft(c.Context(), c.Params("draftId"), input.Reason)
	return c.JSON(fiber.Map{
		"cancelled_count": result.Processed,
		"errors":          result.Errors,
	})
}

// RetryFollowup re-queues a failed follow-up.
func (fc *FollowupController) RetryFollowup(c *fiber.Ctx) error {
	if err := fc.Engine.Retry(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "scheduled"})
}
