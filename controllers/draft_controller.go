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

// DraftController serves the review queue: listing pending drafts by
// version group, draft detail, and every reviewer action on a pending
// draft.
type DraftController struct {
	Drafts  store.DraftStore
	Status  *engine.StatusEngine
	Gateway *gateway.Client
	Logger  *logrus.Logger
}

func NewDraftController(drafts store.DraftStore, status *engine.StatusEngine, gw *gateway.Client, logger *logrus.Logger) *DraftController {
	return &DraftController{Drafts: drafts, Status: status, Gateway: gw, Logger: logger}
}

// ListPending returns the review queue. By default the whole pending set
// collapsed to one representative per version group; with limit/cursor
// query params it serves raw keyset pages instead, since grouping across
// a page boundary would split version groups.
func (dc *DraftController) ListPending(c *fiber.Ctx) error {
	cursor := c.Query("cursor")
	limit := c.QueryInt("limit", 0)

	if cursor != "" || limit > 0 {
		page, err := dc.Drafts.ListPage(c.Context(), models.DraftStatusPending, limit, cursor)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"drafts":      page.Drafts,
			"next_cursor": page.NextCursor,
		})
	}

	pending, err := dc.Drafts.ListByStatus(c.Context(), models.DraftStatusPending, "created_at", 0)
	if err != nil {
		return fail(c, err)
	}
	grouped := engine.GroupLatest(pending)
	return c.JSON(fiber.Map{
		"drafts": grouped,
		"total":  len(grouped),
	})
}

// GetDraft returns one draft with its pending sibling versions numbered
// oldest first.
func (dc *DraftController) GetDraft(c *fiber.Ctx) error {
	draftID := c.Params("id")

	draft, err := dc.Drafts.Get(c.Context(), draftID)
	if err == store.ErrNotFound {
		return fail(c, &engine.NotFoundError{Kind: "draft", ID: draftID})
	}
	if err != nil {
		return fail(c, err)
	}

	var siblings []models.Draft
	if draft.VersionGroupID != "" {
		siblings, err = dc.Drafts.ListGroupPending(c.Context(), draft.VersionGroupID)
		if err != nil {
			return fail(c, err)
		}
	}
	versions := engine.ListGroupVersions(siblings, *draft)

	return c.JSON(fiber.Map{
		"draft":    draft,
		"versions": versions,
	})
}

// SendDraft sends a draft through the send-mail service. A test send
// goes to the given address and changes no state. A live send marks the
// draft sent, auto-rejects its pending sibling versions and asks the
// auto-followup service to plan the sequence.
func (dc *DraftController) SendDraft(c *fiber.Ctx) error {
	draftID := c.Params("id")

	var input struct {
		TestMode  bool   `json:"test_mode"`
		TestEmail string `json:"test_email" validate:"omitempty,email"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := dc.Drafts.Get(c.Context(), draftID); err == store.ErrNotFound {
		return fail(c, &engine.NotFoundError{Kind: "draft", ID: draftID})
	} else if err != nil {
		return fail(c, err)
	}

	if input.TestMode {
		if input.TestEmail == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "test_email is required in test mode"})
		}
		if _, err := dc.Gateway.SendDraft(c.Context(), draftID, true, input.TestEmail); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "test sent", "test_email": input.TestEmail})
	}

	result, err := dc.Gateway.SendDraft(c.Context(), draftID, false, "")
	if err != nil {
		return fail(c, err)
	}

	return dc.finishSend(c, draftID, result)
}

// ChangeEmailAndSend updates the recipient address, then sends.
func (dc *DraftController) ChangeEmailAndSend(c *fiber.Ctx) error {
	draftID := c.Params("id")

	var input struct {
		NewEmail string `json:"new_email" validate:"required,email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := dc.Status.ChangeRecipient(c.Context(), draftID, input.NewEmail); err != nil {
		return fail(c, err)
	}

	result, err := dc.Gateway.SendDraft(c.Context(), draftID, false, "")
	if err != nil {
		return fail(c, err)
	}

	return dc.finishSend(c, draftID, result)
}

// finishSend records a successful live send: status transition, sibling
// rejection, follow-up scheduling. Scheduling failures are reported in
// the response but never roll back the send.
func (dc *DraftController) finishSend(c *fiber.Ctx, draftID string, result *gateway.SendResult) error {
	rejected, err := dc.Status.MarkSent(c.Context(), draftID, engine.SendResult{
		MessageID: result.MessageID,
		PixelID:   result.PixelID,
	})
	if err != nil {
		// The mail is out; surface what the store refused to record.
		dc.Logger.WithField("draft_id", draftID).WithError(err).Error("send succeeded but status update failed")
	}

	followupsCreated := 0
	if created, err := dc.Gateway.ScheduleFollowups(c.Context(), draftID); err != nil {
		dc.Logger.WithField("draft_id", draftID).WithError(err).Warn("failed to schedule followups")
	} else {
		followupsCreated = created
	}

	return c.JSON(fiber.Map{
		"message_id":             result.MessageID,
		"auto_rejected_versions": rejected,
		"followups_created":      followupsCreated,
	})
}

// RejectDraft rejects a draft.
func (dc *DraftController) RejectDraft(c *fiber.Ctx) error {
	if err := dc.Status.Reject(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "rejected"})
}

// EditDraft creates a new pending revision with the edited subject and
// body. The source draft stays untouched.
func (dc *DraftController) EditDraft(c *fiber.Ctx) error {
	var input struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	newID, err := dc.Status.CreateEditedRevision(c.Context(), c.Params("id"), input.Subject, input.Body)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"draft_id": newID})
}

// RegenerateDraft looks the lead up in the CRM and asks the mail-writer
// for a fresh revision in the same version group.
func (dc *DraftController) RegenerateDraft(c *fiber.Ctx) error {
	draftID := c.Params("id")

	draft, err := dc.Drafts.Get(c.Context(), draftID)
	if err == store.ErrNotFound {
		return fail(c, &engine.NotFoundError{Kind: "draft", ID: draftID})
	}
	if err != nil {
		return fail(c, err)
	}
	if draft.XExternalID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "draft has no x_external_id, cannot regenerate"})
	}

	lead, err := dc.Gateway.SearchLead(c.Context(), draft.XExternalID)
	if err != nil {
		return fail(c, err)
	}

	newDraftID, err := dc.Gateway.Regenerate(c.Context(), lead, draft.XExternalID, draft.VersionGroupID)
	if err != nil {
		return fail(c, err)
	}
	if newDraftID == "" {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "mail-writer did not return the new draft id"})
	}

	return c.JSON(fiber.Map{"draft_id": newDraftID})
}

// GetNotes returns a draft's notes.
func (dc *DraftController) GetNotes(c *fiber.Ctx) error {
	draftID := c.Params("id")
	draft, err := dc.Drafts.Get(c.Context(), draftID)
	if err == store.ErrNotFound {
		return fail(c, &engine.NotFoundError{Kind: "draft", ID: draftID})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"notes": draft.Notes, "notes_updated_at": draft.NotesUpdatedAt})
}

// UpdateNotes replaces a draft's notes.
func (dc *DraftController) UpdateNotes(c *fiber.Ctx) error {
	var input struct {
		Notes string `json:"notes" validate:"max=5000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := dc.Status.UpdateNotes(c.Context(), c.Params("id"), input.Notes); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// DeleteMany deletes drafts by id, reporting per-item failures.
func (dc *DraftController) DeleteMany(c *fiber.Ctx) error {
	var input struct {
		DraftIDs []string `json:"draft_ids" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result := dc.Status.DeleteMany(c.Context(), input.DraftIDs)
	return c.JSON(fiber.Map{
		"deleted_count": result.Processed,
		"errors":        result.Errors,
	})
}
