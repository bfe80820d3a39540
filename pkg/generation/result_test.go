package generation

import (
	"testing"

	"github.com/modelforge/modelforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSlot_CommitAndRead(t *testing.T) {
	slot := NewResultSlot()

	_, ok := slot.Current()
	assert.False(t, ok)

	seq := slot.Begin()
	committed := slot.Commit(seq, models.GenerationResult{ModelAssetURL: "https://x/a.glb"})
	assert.True(t, committed)

	result, ok := slot.Current()
	require.True(t, ok)
	assert.Equal(t, "https://x/a.glb", result.ModelAssetURL)
}

func TestResultSlot_StaleCommitDropped(t *testing.T) {
	slot := NewResultSlot()

	first := slot.Begin()
	second := slot.Begin()

	// The second dispatch finishes first.
	require.True(t, slot.Commit(second, models.GenerationResult{ModelAssetURL: "https://x/new.glb"}))

	// The first dispatch completes late; its result must not land.
	assert.False(t, slot.Commit(first, models.GenerationResult{ModelAssetURL: "https://x/old.glb"}))

	result, ok := slot.Current()
	require.True(t, ok)
	assert.Equal(t, "https://x/new.glb", result.ModelAssetURL)
}

func TestResultSlot_ReplacementNeverMerges(t *testing.T) {
	slot := NewResultSlot()

	slot.Commit(slot.Begin(), models.GenerationResult{ModelAssetURL: "https://x/a.glb"})
	slot.Commit(slot.Begin(), models.GenerationResult{ModelAssetURL: "https://x/b.glb", IsPlaceholder: true})

	result, _ := slot.Current()
	assert.Equal(t, "https://x/b.glb", result.ModelAssetURL)
	assert.True(t, result.IsPlaceholder)
}

func TestResultSlot_HasRealResult(t *testing.T) {
	slot := NewResultSlot()
	assert.False(t, slot.HasRealResult())

	slot.Commit(slot.Begin(), models.GenerationResult{ModelAssetURL: "p", IsPlaceholder: true})
	assert.False(t, slot.HasRealResult(), "placeholder is not a sellable model")

	slot.Commit(slot.Begin(), models.GenerationResult{ModelAssetURL: "https://x/real.glb"})
	assert.True(t, slot.HasRealResult())
}

func TestResultSlot_Clear(t *testing.T) {
	slot := NewResultSlot()
	slot.Commit(slot.Begin(), models.GenerationResult{ModelAssetURL: "https://x/a.glb"})

	slot.Clear()

	_, ok := slot.Current()
	assert.False(t, ok)
	assert.False(t, slot.HasRealResult())
}
