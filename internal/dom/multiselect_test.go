package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeChip(t *testing.T) {
	assert.Equal(t, "javascript", NormalizeChip("  JavaScript "))
	assert.Equal(t, "react native", NormalizeChip("React   Native"))
	assert.Equal(t, "resume_john", NormalizeChip("Resume_John.pdf"))
	assert.Equal(t, "", NormalizeChip("   "))
}

func TestNormalizeChipsDedupes(t *testing.T) {
	chips := normalizeChips([]string{"JavaScript", "javascript ", "TypeScript", ""})
	assert.Equal(t, []string{"javascript", "typescript"}, chips)
}

func TestContainsChip(t *testing.T) {
	chips := []string{"JavaScript", "Go"}
	assert.True(t, containsChip(chips, "javascript"))
	assert.False(t, containsChip(chips, "python"))
}

func TestEffectiveLimit(t *testing.T) {
	// Exact dominates everything.
	assert.Equal(t, 3, effectiveLimit(3, 10, false))
	// Explicit max passes through.
	assert.Equal(t, 2, effectiveLimit(0, 2, false))
	// Auto mode: single-value without a checkbox widget, unbounded with one.
	assert.Equal(t, 1, effectiveLimit(0, MaxChipsAuto, false))
	assert.Equal(t, 0, effectiveLimit(0, MaxChipsAuto, true))
}

func TestCapReached(t *testing.T) {
	assert.True(t, capReached(2, 2, false))
	assert.False(t, capReached(1, 2, false))
	// Unbounded in auto mode with a checkbox widget.
	assert.False(t, capReached(50, MaxChipsAuto, true))
	// Auto mode without a widget is single-value.
	assert.True(t, capReached(1, MaxChipsAuto, false))
}

func TestChipCountValid(t *testing.T) {
	assert.True(t, chipCountValid(2, 0, 2, 0))
	assert.False(t, chipCountValid(3, 0, 2, 0))
	assert.False(t, chipCountValid(1, 2, 0, 0))
	assert.True(t, chipCountValid(2, 0, 0, 2))
	assert.False(t, chipCountValid(1, 0, 0, 2))
	// No constraints: any count passes.
	assert.True(t, chipCountValid(7, 0, 0, 0))
}

func TestChipDedupeUnderCap(t *testing.T) {
	// A duplicate value must not consume cap headroom: with max 2 chips and
	// an existing "javascript" chip, typing "JavaScript" again is skipped and
	// "typescript" still fits.
	existing := []string{"javascript"}
	assert.True(t, containsChip(existing, NormalizeChip("JavaScript")))
	assert.False(t, capReached(len(existing), 2, false))

	final := normalizeChips([]string{"javascript", "JavaScript", "TypeScript"})
	assert.Equal(t, []string{"javascript", "typescript"}, final)
	assert.True(t, chipCountValid(len(final), 0, 2, 0))
}

func TestChipScoreAgainst(t *testing.T) {
	assert.Equal(t, 100.0, ChipScoreAgainst("JavaScript", "javascript"))
	assert.Less(t, ChipScoreAgainst("JavaScript", "COBOL"), 50.0)
}
