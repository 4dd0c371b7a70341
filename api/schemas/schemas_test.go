package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionIdentity(t *testing.T) {
	t.Run("StableAcrossCalls", func(t *testing.T) {
		a := QuestionIdentity("First Name", FieldText, "fp-1", 0)
		b := QuestionIdentity("First Name", FieldText, "fp-1", 0)
		assert.Equal(t, a, b)
	})

	t.Run("NormalizesLabelCaseAndSpace", func(t *testing.T) {
		a := QuestionIdentity("  First Name ", FieldText, "fp-1", 0)
		b := QuestionIdentity("first name", FieldText, "fp-1", 0)
		assert.Equal(t, a, b)
	})

	t.Run("DistinguishesOccurrence", func(t *testing.T) {
		a := QuestionIdentity("School Name", FieldText, "fp-1", 0)
		b := QuestionIdentity("School Name", FieldText, "fp-1", 1)
		assert.NotEqual(t, a, b)
	})

	t.Run("DistinguishesKindAndContainer", func(t *testing.T) {
		base := QuestionIdentity("Start Date", FieldDate, "fp-1", 0)
		assert.NotEqual(t, base, QuestionIdentity("Start Date", FieldText, "fp-1", 0))
		assert.NotEqual(t, base, QuestionIdentity("Start Date", FieldDate, "fp-2", 0))
	})
}

func TestStringOrList(t *testing.T) {
	t.Run("SingleString", func(t *testing.T) {
		var s StringOrList
		require.NoError(t, json.Unmarshal([]byte(`"Yes"`), &s))
		assert.Equal(t, StringOrList{"Yes"}, s)
	})

	t.Run("Array", func(t *testing.T) {
		var s StringOrList
		require.NoError(t, json.Unmarshal([]byte(`["Go","SQL"]`), &s))
		assert.Equal(t, StringOrList{"Go", "SQL"}, s)
	})

	t.Run("RejectsNumbers", func(t *testing.T) {
		var s StringOrList
		assert.Error(t, json.Unmarshal([]byte(`42`), &s))
	})

	t.Run("RoundTripSingle", func(t *testing.T) {
		out, err := json.Marshal(StringOrList{"Yes"})
		require.NoError(t, err)
		assert.JSONEq(t, `"Yes"`, string(out))
	})
}

func TestExecutionResult(t *testing.T) {
	assert.Equal(t, ExecutionPending, ExecutionAborted.Storable())
	assert.Equal(t, ExecutionApplied, ExecutionApplied.Storable())
	assert.True(t, ExecutionFailed.IsTerminal())
	assert.False(t, ExecutionPending.IsTerminal())
	assert.False(t, ExecutionResult("").IsTerminal())
}

func TestLocatorCSS(t *testing.T) {
	assert.Equal(t, `[data-ap-target="q3-f0"]`, Locator{Tag: "q3-f0"}.CSS())
	assert.Equal(t, `input[name="email"]`, Locator{Selector: `input[name="email"]`}.CSS())
	assert.True(t, Locator{}.IsZero())
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "tab_42", StorageKey(42))
}
