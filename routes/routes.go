package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	controller "prospector/controllers"
	"prospector/middleware"
)

// Deps are the wired controllers the router mounts.
type Deps struct {
	Auth         *controller.AuthController
	Drafts       *controller.DraftController
	History      *controller.HistoryController
	Dashboard    *controller.DashboardController
	Followups    *controller.FollowupController
	Instructions *controller.InstructionController
	StatsWS      *controller.StatsWS

	// AuthSecret guards /api/v1. Empty disables auth, for local work.
	AuthSecret string
}

func SetupRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Token exchange stays public.
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	auth.Post("/token", deps.Auth.ExchangeToken)

	api := app.Group("/api/v1", middleware.Protected(deps.AuthSecret), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Review queue
	drafts := api.Group("/drafts")
	drafts.Get("/", deps.Drafts.ListPending)
	drafts.Post("/delete", deps.Drafts.DeleteMany)
	drafts.Get("/:id", deps.Drafts.GetDraft)
	drafts.Post("/:id/send", deps.Drafts.SendDraft)
	drafts.Post("/:id/reject", deps.Drafts.RejectDraft)
	drafts.Post("/:id/edit", deps.Drafts.EditDraft)
	drafts.Post("/:id/change-email-and-send", deps.Drafts.ChangeEmailAndSend)
	drafts.Post("/:id/regenerate", deps.Drafts.RegenerateDraft)
	drafts.Get("/:id/notes", deps.Drafts.GetNotes)
	drafts.Put("/:id/notes", deps.Drafts.UpdateNotes)

	// Sent history
	history := api.Group("/history")
	history.Get("/", deps.History.ListHistory)
	history.Delete("/rejected", deps.History.DeleteRejected)
	history.Get("/:id", deps.History.GetSentDetail)
	history.Post("/:id/fetch-reply", deps.History.FetchReply)
	history.Post("/:id/fetch-thread", deps.History.FetchThread)
	history.Post("/:id/resend-bounced", deps.History.ResendBounced)
	history.Post("/:id/resend-to-another", deps.History.ResendToAnother)

	// Dashboard
	api.Get("/dashboard", deps.Dashboard.GetDashboard)
	api.Get("/stats", deps.Dashboard.GetStats)
	api.Get("/kanban", deps.Dashboard.GetKanban)

	// Follow-ups
	followups := api.Group("/followups")
	followups.Get("/", deps.Followups.ListTimeline)
	followups.Post("/:id/cancel", deps.Followups.CancelFollowup)
	followups.Post("/:id/retry", deps.Followups.RetryFollowup)
	followups.Post("/draft/:draftId/cancel-all", deps.Followups.CancelAllForDraft)

	// Agent instructions
	instructions := api.Group("/instructions")
	instructions.Get("/", deps.Instructions.ListInstructions)
	instructions.Post("/", deps.Instructions.CreateInstruction)
	instructions.Put("/:id", deps.Instructions.UpdateInstruction)
	instructions.Post("/:id/activate", deps.Instructions.ActivateInstruction)

	// WebSocket queue counts for the dashboard header
	app.Get("/api/v1/stats/live", websocket.New(deps.StatsWS.Handle))

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
