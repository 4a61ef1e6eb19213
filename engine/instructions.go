package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"prospector/models"
	"prospector/store"
)

// InstructionEngine manages the versioned prompt texts the follow-up
// writer uses per sequence step. The single-active-version rule is
// enforced with independent writes, last writer wins; there is no
// transaction across versions.
type InstructionEngine struct {
	instructions store.InstructionStore
	log          *logrus.Logger
}

func NewInstructionEngine(instructions store.InstructionStore, log *logrus.Logger) *InstructionEngine {
	return &InstructionEngine{instructions: instructions, log: log}
}

// Create stores a new instruction version for a step. When activate is
// set, every other version of the same step is deactivated.
func (e *InstructionEngine) Create(ctx context.Context, followupNumber int, versionName, text string, activate bool) (string, error) {
	versionName = strings.TrimSpace(versionName)
	if versionName == "" {
		return "", &ValidationError{Field: "version_name", Reason: "must not be blank"}
	}
	if strings.TrimSpace(text) == "" {
		return "", &ValidationError{Field: "instruction_text", Reason: "must not be blank"}
	}
	if followupNumber < 0 {
		return "", &ValidationError{Field: "followup_number", Reason: "must not be negative"}
	}

	instr := &models.AgentInstruction{
		FollowupNumber:  followupNumber,
		VersionName:     versionName,
		InstructionText: text,
		IsActive:        activate,
	}
	if err := e.instructions.Create(ctx, instr); err != nil {
		return "", err
	}
	if activate {
		e.deactivateSiblings(ctx, followupNumber, instr.ID)
	}
	return instr.ID, nil
}

// Activate makes one version the active one for its step.
func (e *InstructionEngine) Activate(ctx context.Context, instructionID string) error {
	instr, err := e.instructions.Get(ctx, instructionID)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "instruction", ID: instructionID}
	}
	if err != nil {
		return err
	}

	if err := e.instructions.Update(ctx, instructionID, map[string]interface{}{
		"is_active":  true,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		return err
	}
	e.deactivateSiblings(ctx, instr.FollowupNumber, instructionID)
	return nil
}

// UpdateText edits a version's text in place.
func (e *InstructionEngine) UpdateText(ctx context.Context, instructionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "instruction_text", Reason: "must not be blank"}
	}
	err := e.instructions.Update(ctx, instructionID, map[string]interface{}{
		"instruction_text": text,
		"updated_at":       time.Now().UTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "instruction", ID: instructionID}
	}
	return err
}

func (e *InstructionEngine) deactivateSiblings(ctx context.Context, followupNumber int, keepID string) {
	siblings, err := e.instructions.ListByStep(ctx, followupNumber)
	if err != nil {
		e.log.WithField("followup_number", followupNumber).WithError(err).Error("failed to list instruction versions for deactivation")
		return
	}
	for _, sibling := range siblings {
		if sibling.ID == keepID || !sibling.IsActive {
			continue
		}
		if err := e.instructions.Update(ctx, sibling.ID, map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}); err != nil {
			e.log.WithField("instruction_id", sibling.ID).WithError(err).Error("failed to deactivate instruction version")
		}
	}
}
