package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"prospector/engine"
	"prospector/gateway"
	"prospector/models"
	"prospector/store"
	"prospector/utils"
)

// HistoryController serves the sent history: the enriched sent list with
// fleet stats, per-draft engagement detail, reply and thread mirroring,
// and the two resend flows.
type HistoryController struct {
	Drafts     store.DraftStore
	Followups  store.FollowupStore
	Opens      store.OpenStore
	Status     *engine.StatusEngine
	Aggregator *engine.Aggregator
	Gateway    *gateway.Client
	Logger     *logrus.Logger
}

func NewHistoryController(drafts store.DraftStore, followups store.FollowupStore, opens store.OpenStore,
	status *engine.StatusEngine, agg *engine.Aggregator, gw *gateway.Client, logger *logrus.Logger) *HistoryController {
	return &HistoryController{
		Drafts:     drafts,
		Followups:  followups,
		Opens:      opens,
		Status:     status,
		Aggregator: agg,
		Gateway:    gw,
		Logger:     logger,
	}
}

const historyPageSize = 50

// ListHistory returns the most recent sent drafts enriched with their
// engagement data, the fleet-wide stats over that window and the most
// recent rejected drafts.
func (hc *HistoryController) ListHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", historyPageSize)

	sent, err := hc.Drafts.ListByStatus(c.Context(), models.DraftStatusSent, "sent_at", limit)
	if err != nil {
		return fail(c, err)
	}
	enriched, stats, err := hc.Aggregator.AggregateHistory(c.Context(), sent)
	if err != nil {
		return fail(c, err)
	}

	rejected, err := hc.Drafts.ListByStatus(c.Context(), models.DraftStatusRejected, "rejected_at", limit)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"sent":     enriched,
		"rejected": rejected,
		"stats":    stats,
	})
}

// GetSentDetail returns one sent draft with its open events, follow-up
// sequence and mirrored thread. When the draft has a reply that was
// never pulled in, the reply body is fetched from gmail-notifier first,
// best effort.
func (hc *HistoryController) GetSentDetail(c *fiber.Ctx) error {
	draftID := c.Params("id")

	draft, err := hc.Drafts.Get(c.Context(), draftID)
	if err == store.ErrNotFound {
		return fail(c, &engine.NotFoundError{Kind: "draft", ID: draftID})
	}
	if err != nil {
		return fail(c, err)
	}

	if draft.HasReply && draft.ReplyMessage == "" {
		if err := hc.Gateway.FetchReply(c.Context(), draftID); err != nil {
			hc.Logger.WithField("draft_id", draftID).WithError(err).Warn("could not fetch reply body")
		} else if refreshed, err := hc.Drafts.Get(c.Context(), draftID); err == nil {
			draft = refreshed
		}
	}

	var openEvents []models.OpenEvent
	if draft.PixelID != "" {
		if record, err := hc.Opens.Get(c.Context(), draft.PixelID); err == nil {
			draft.OpenCount = record.OpenCount
			draft.FirstOpenedAt = record.FirstOpenedAt
			draft.LastOpenedAt = record.LastOpenedAt
		} else if err != store.ErrNotFound {
			return fail(c, &engine.AggregationError{Stage: "open-tracking lookup", Err: err})
		}
		if openEvents, err = hc.Opens.ListEvents(c.Context(), draft.PixelID, 100); err != nil {
			return fail(c, &engine.AggregationError{Stage: "open-events lookup", Err: err})
		}
	}

	followups, err := hc.Followups.ListByDraft(c.Context(), draftID)
	if err != nil {
		return fail(c, err)
	}

	thread, err := hc.Drafts.ListThreadMessages(c.Context(), draftID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"draft":       draft,
		"open_events": openEvents,
		"followups":   followups,
		"thread":      thread,
	})
}

// FetchReply pulls a draft's reply body in from gmail-notifier and
// returns the refreshed draft.
func (hc *HistoryController) FetchReply(c *fiber.Ctx) error {
	draftID := c.Params("id")

	draft, err := hc.Drafts.Get(c.Context(), draftID)
	if err == store.ErrNotFound {
		return fail(c, &engine.NotFoundError{Kind: "draft", ID: draftID})
	}
	if err != nil {
		return fail(c, err)
	}
	if !draft.HasReply {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "draft has no reply to fetch"})
	}

	if err := hc.Gateway.FetchReply(c.Context(), draftID); err != nil {
		return fail(c, err)
	}

	refreshed, err := hc.Drafts.Get(c.Context(), draftID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"reply_message": refreshed.ReplyMessage, "reply_received_at": refreshed.ReplyReceivedAt})
}

// FetchThread mirrors the draft's whole Gmail thread and returns it.
func (hc *HistoryController) FetchThread(c *fiber.Ctx) error {
	draftID := c.Params("id")

	draft, err := hc.Drafts.Get(c.Context(), draftID)
	if err == store.ErrNotFound {
		return fail(c, &engine.NotFoundError{Kind: "draft", ID: draftID})
	}
	if err != nil {
		return fail(c, err)
	}
	if draft.GmailThreadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "draft has no gmail thread"})
	}

	fetched, err := hc.Gateway.FetchThread(c.Context(), draftID)
	if err != nil {
		return fail(c, err)
	}

	thread, err := hc.Drafts.ListThreadMessages(c.Context(), draftID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message_count": fetched, "thread": thread})
}

// ResendBounced clones a bounced draft to a corrected address as a fresh
// pending draft, sends the clone and records the send.
func (hc *HistoryController) ResendBounced(c *fiber.Ctx) error {
	var input struct {
		NewEmail string `json:"new_email" validate:"required,email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	newID, err := hc.Status.ResendFromBounce(c.Context(), c.Params("id"), input.NewEmail)
	if err != nil {
		return fail(c, err)
	}

	result, err := hc.Gateway.SendDraft(c.Context(), newID, false, "")
	if err != nil {
		// The clone stays pending in the review queue for a manual send.
		hc.Logger.WithField("draft_id", newID).WithError(err).Warn("resend clone created but send failed")
		return fail(c, err)
	}

	if _, err := hc.Status.MarkSent(c.Context(), newID, engine.SendResult{
		MessageID: result.MessageID,
		PixelID:   result.PixelID,
	}); err != nil {
		hc.Logger.WithField("draft_id", newID).WithError(err).Error("resend succeeded but status update failed")
	}

	return c.JSON(fiber.Map{
		"draft_id":   newID,
		"message_id": result.MessageID,
	})
}

// ResendToAnother re-sends an already sent draft to a different address.
// Only when update_original is set does the stored draft take the new
// address and get its still-scheduled follow-ups retargeted; otherwise
// the original record is left untouched.
func (hc *HistoryController) ResendToAnother(c *fiber.Ctx) error {
	draftID := c.Params("id")

	var input struct {
		NewEmail       string `json:"new_email" validate:"required,email"`
		UpdateOriginal bool   `json:"update_original"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := hc.Gateway.ResendToAnother(c.Context(), draftID, input.NewEmail); err != nil {
		return fail(c, err)
	}

	if input.UpdateOriginal {
		if err := hc.Status.ForwardRecipient(c.Context(), draftID, input.NewEmail); err != nil {
			return fail(c, err)
		}
	}

	return c.JSON(fiber.Map{
		"status":           "resent",
		"new_email":        input.NewEmail,
		"original_updated": input.UpdateOriginal,
	})
}

// DeleteRejected clears the whole rejected list.
func (hc *HistoryController) DeleteRejected(c *fiber.Ctx) error {
	deleted, err := hc.Status.DeleteRejected(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted_count": deleted})
}
