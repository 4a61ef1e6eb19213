package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"prospector/engine"
	"prospector/models"
	"prospector/store"
	"prospector/utils"
)

// InstructionController manages the per-step writing instructions the
// generation agents consume.
type InstructionController struct {
	Instructions store.InstructionStore
	Engine       *engine.InstructionEngine
	Logger       *logrus.Logger
}

func NewInstructionController(instructions store.InstructionStore, eng *engine.InstructionEngine, logger *logrus.Logger) *InstructionController {
	return &InstructionController{Instructions: instructions, Engine: eng, Logger: logger}
}

// ListInstructions returns every instruction version grouped by step.
func (ic *InstructionController) ListInstructions(c *fiber.Ctx) error {
	instructions, err := ic.Instructions.List(c.Context())
	if err != nil {
		return fail(c, err)
	}

	grouped := make(map[int][]models.AgentInstruction)
	for _, instr := range instructions {
		grouped[instr.FollowupNumber] = append(grouped[instr.FollowupNumber], instr)
	}

	return c.JSON(fiber.Map{"instructions": grouped})
}

// CreateInstruction adds a new instruction version for a step,
// optionally activating it immediately.
func (ic *InstructionController) CreateInstruction(c *fiber.Ctx) error {
	var input struct {
		FollowupNumber int    `json:"followup_number" validate:"min=0,max=10"`
		VersionName    string `json:"version_name" validate:"required,max=100"`
		Text           string `json:"instruction_text" validate:"required"`
		Activate       bool   `json:"activate"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	id, err := ic.Engine.Create(c.Context(), input.FollowupNumber, input.VersionName, input.Text, input.Activate)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"instruction_id": id})
}

// ActivateInstruction makes one version the active instruction for its
// step, deactivating its siblings.
func (ic *InstructionController) ActivateInstruction(c *fiber.Ctx) error {
	if err := ic.Engine.Activate(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "activated"})
}

// UpdateInstruction replaces an instruction's text.
func (ic *InstructionController) UpdateInstruction(c *fiber.Ctx) error {
	var input struct {
		Text string `json:"instruction_text" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := ic.Engine.UpdateText(c.Context(), c.Params("id"), input.Text); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "updated"})
}
