package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/models"
	"prospector/store"
)

func newInstructionFixture() (*InstructionEngine, *store.MemoryInstructionStore) {
	instructions := store.NewMemoryInstructionStore()
	return NewInstructionEngine(instructions, quietLogger()), instructions
}

func TestCreateInstructionWithActivateDeactivatesSiblings(t *testing.T) {
	eng, instructions := newInstructionFixture()
	require.NoError(t, instructions.Create(context.Background(), &models.AgentInstruction{
		ID: "old", FollowupNumber: 1, VersionName: "v1", InstructionText: "old text", IsActive: true,
	}))

	newID, err := eng.Create(context.Background(), 1, "v2", "new text", true)
	require.NoError(t, err)

	created, _ := instructions.Get(context.Background(), newID)
	assert.True(t, created.IsActive)
	assert.Equal(t, "v2", created.VersionName)

	old, _ := instructions.Get(context.Background(), "old")
	assert.False(t, old.IsActive)
}

func TestCreateInstructionWithoutActivateLeavesSiblings(t *testing.T) {
	eng, instructions := newInstructionFixture()
	require.NoError(t, instructions.Create(context.Background(), &models.AgentInstruction{
		ID: "active", FollowupNumber: 2, VersionName: "v1", InstructionText: "text", IsActive: true,
	}))

	newID, err := eng.Create(context.Background(), 2, "draft version", "text", false)
	require.NoError(t, err)

	created, _ := instructions.Get(context.Background(), newID)
	assert.False(t, created.IsActive)

	active, _ := instructions.Get(context.Background(), "active")
	assert.True(t, active.IsActive)
}

func TestCreateInstructionValidation(t *testing.T) {
	eng, _ := newInstructionFixture()

	var ve *ValidationError

	_, err := eng.Create(context.Background(), 1, "  ", "text", false)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "version_name", ve.Field)

	_, err = eng.Create(context.Background(), 1, "v1", "   ", false)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "instruction_text", ve.Field)

	_, err = eng.Create(context.Background(), -1, "v1", "text", false)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "followup_number", ve.Field)
}

func TestActivateSwitchesActiveVersion(t *testing.T) {
	eng, instructions := newInstructionFixture()
	require.NoError(t, instructions.Create(context.Background(), &models.AgentInstruction{
		ID: "a", FollowupNumber: 1, VersionName: "v1", InstructionText: "t", IsActive: true,
	}))
	require.NoError(t, instructions.Create(context.Background(), &models.AgentInstruction{
		ID: "b", FollowupNumber: 1, VersionName: "v2", InstructionText: "t",
	}))
	require.NoError(t, instructions.Create(context.Background(), &models.AgentInstruction{
		ID: "other-step", FollowupNumber: 2, VersionName: "v1", InstructionText: "t", IsActive: true,
	}))

	require.NoError(t, eng.Activate(context.Background(), "b"))

	b, _ := instructions.Get(context.Background(), "b")
	assert.True(t, b.IsActive)
	a, _ := instructions.Get(context.Background(), "a")
	assert.False(t, a.IsActive)
	other, _ := instructions.Get(context.Background(), "other-step")
	assert.True(t, other.IsActive)
}

func TestActivateUnknownInstruction(t *testing.T) {
	eng, _ := newInstructionFixture()

	err := eng.Activate(context.Background(), "ghost")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "instruction", nf.Kind)
}

func TestUpdateTextInPlace(t *testing.T) {
	eng, instructions := newInstructionFixture()
	require.NoError(t, instructions.Create(context.Background(), &models.AgentInstruction{
		ID: "a", FollowupNumber: 1, VersionName: "v1", InstructionText: "before",
	}))

	require.NoError(t, eng.UpdateText(context.Background(), "a", "after"))

	got, _ := instructions.Get(context.Background(), "a")
	assert.Equal(t, "after", got.InstructionText)
}

func TestUpdateTextRejectsBlank(t *testing.T) {
	eng, _ := newInstructionFixture()

	err := eng.UpdateText(context.Background(), "a", "  ")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}
