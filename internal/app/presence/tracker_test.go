package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaletteIndex_Deterministic(t *testing.T) {
	first := PaletteIndex("conn-1")
	second := PaletteIndex("conn-1")

	assert.Equal(t, first, second, "same id must always map to the same palette slot")
}

func TestPaletteIndex_WithinPalette(t *testing.T) {
	ids := []string{"", "a", "conn-1", "ffffffff-ffff-ffff-ffff-ffffffffffff"}

	for _, id := range ids {
		idx := PaletteIndex(id)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, PaletteSize)
	}
}

func TestTrack_BuildsRelayPayload(t *testing.T) {
	tr := NewTracker()

	update := tr.Track("conn-1", "Alice", Position{Line: 3, Column: 14})

	assert.Equal(t, "conn-1", update.ID)
	assert.Equal(t, "Alice", update.UserName)
	assert.Equal(t, Position{Line: 3, Column: 14}, update.Position)
	assert.Equal(t, PaletteIndex("conn-1"), update.ColorIndex)

	pos, ok := tr.Last("conn-1")
	require.True(t, ok)
	assert.Equal(t, Position{Line: 3, Column: 14}, pos)
}

func TestTrack_OverwritesPreviousPosition(t *testing.T) {
	tr := NewTracker()

	tr.Track("conn-1", "Alice", Position{Line: 1, Column: 1})
	tr.Track("conn-1", "Alice", Position{Line: 9, Column: 2})

	pos, ok := tr.Last("conn-1")
	require.True(t, ok)
	assert.Equal(t, Position{Line: 9, Column: 2}, pos)
}

func TestForget_DropsCursorState(t *testing.T) {
	tr := NewTracker()
	tr.Track("conn-1", "Alice", Position{Line: 1, Column: 1})

	tr.Forget("conn-1")

	_, ok := tr.Last("conn-1")
	assert.False(t, ok)
}
