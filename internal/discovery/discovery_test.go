package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

func input(tag, typ, nestedLabel string) rawField {
	return rawField{Tag: tag, TagName: "input", Type: typ, NestedLbl: nestedLabel}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		field rawField
		want  schemas.FieldKind
	}{
		{rawField{TagName: "select"}, schemas.FieldSelect},
		{rawField{TagName: "textarea"}, schemas.FieldTextarea},
		{rawField{TagName: "input", Type: "email"}, schemas.FieldEmail},
		{rawField{TagName: "input", Type: "radio"}, schemas.FieldRadio},
		{rawField{TagName: "input", Type: "file"}, schemas.FieldFile},
		{rawField{TagName: "input"}, schemas.FieldText},
		{rawField{TagName: "input", Role: "combobox"}, schemas.FieldDropdown},
		{rawField{TagName: "input", Role: "combobox", Attrs: map[string]string{"aria-multiselectable": "true"}}, schemas.FieldMultiselect},
		{rawField{TagName: "input", Role: "spinbutton"}, schemas.FieldDate},
		{rawField{TagName: "button"}, schemas.FieldButton},
		{rawField{TagName: "button", Role: "combobox"}, schemas.FieldDropdown},
		{rawField{TagName: "div", Role: "combobox"}, schemas.FieldDropdown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, kindOf(c.field), "%+v", c.field)
	}
}

func TestClassifyCompoundDateSplit(t *testing.T) {
	raw := []rawContainer{{
		Tag:      "c0",
		FPSource: "fieldset|id=start-date|Start Date",
		Label:    "Start Date*",
		Fields: []rawField{
			{Tag: "f0", TagName: "input", Role: "spinbutton", NestedLbl: "Month"},
			{Tag: "f1", TagName: "input", Role: "spinbutton", NestedLbl: "Year"},
		},
	}}

	questions := classify(raw)
	require.Len(t, questions, 2)
	assert.Equal(t, "month", questions[0].SubLabel)
	assert.Equal(t, "year", questions[1].SubLabel)
	for _, q := range questions {
		assert.Equal(t, schemas.FieldDate, q.Kind)
		assert.Equal(t, "Start Date", q.Label)
		assert.True(t, q.Required)
	}
	assert.NotEqual(t, questions[0].ID, questions[1].ID)
}

func TestClassifyBaseFieldPreference(t *testing.T) {
	raw := []rawContainer{{
		Tag:      "c0",
		FPSource: "div|Country",
		Label:    "Country",
		Fields: []rawField{
			{Tag: "btn", TagName: "button", Role: "combobox"},
			{Tag: "sel", TagName: "select"},
		},
	}}

	questions := classify(raw)
	require.Len(t, questions, 1)
	// The native select outranks the ARIA combobox button as base field.
	assert.Equal(t, "sel", questions[0].BaseField().Tag)
	assert.Equal(t, schemas.FieldSelect, questions[0].Kind)
}

func TestClassifyRadioGroupStaysOneQuestion(t *testing.T) {
	raw := []rawContainer{{
		Tag:      "c0",
		FPSource: "fieldset|Gender",
		Label:    "Gender",
		Fields: []rawField{
			input("f0", "radio", "Male"),
			input("f1", "radio", "Female"),
			input("f2", "radio", "Decline To Self Identify"),
		},
	}}

	questions := classify(raw)
	require.Len(t, questions, 1)
	assert.Equal(t, schemas.FieldRadio, questions[0].Kind)
	assert.Len(t, questions[0].Fields, 3)
}

func TestClassifyRequiredFromField(t *testing.T) {
	raw := []rawContainer{{
		Tag: "c0", FPSource: "div|Email", Label: "Email",
		Fields: []rawField{{Tag: "f0", TagName: "input", Type: "email", Required: true}},
	}}
	questions := classify(raw)
	require.Len(t, questions, 1)
	assert.True(t, questions[0].Required)
}

func TestClassifyIdentityStableAcrossPasses(t *testing.T) {
	raw := []rawContainer{{
		Tag: "c7", FPSource: "div|id=email|Email", Label: "Email",
		Fields: []rawField{{Tag: "pass1-f0", TagName: "input", Type: "email"}},
	}}
	again := []rawContainer{{
		Tag: "c9", FPSource: "div|id=email|Email", Label: "Email",
		Fields: []rawField{{Tag: "pass2-f0", TagName: "input", Type: "email"}},
	}}

	a := classify(raw)
	b := classify(again)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	// Stamp tokens differ between passes but identity does not.
	assert.Equal(t, a[0].ID, b[0].ID)
}

func TestClassifyGroupMembership(t *testing.T) {
	raw := []rawContainer{{
		Tag: "c0", FPSource: "div|Company", Label: "Company",
		Group: "workExperiences", GroupIdx: 1,
		Fields: []rawField{{Tag: "f0", TagName: "input"}},
	}}
	questions := classify(raw)
	require.Len(t, questions, 1)
	assert.Equal(t, schemas.GroupWork, questions[0].Group)
	assert.Equal(t, 1, questions[0].ContainerIdx)
}

func TestFilterErrorActive(t *testing.T) {
	questions := []schemas.Question{
		{ID: "a", ErrorActive: true},
		{ID: "b"},
		{ID: "c", ErrorActive: true},
	}
	filtered := filterErrorActive(questions)
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ID)
	assert.Equal(t, "c", filtered[1].ID)
}

func TestOrphanLabels(t *testing.T) {
	page := `<html><body>
		<label for="nickname">Nickname</label>
		<input id="nickname" type="text">
		<label for="email-field">Email Address *</label>
		<input id="email-field" type="email" aria-required="true">
		<label for="ghost">Ghost</label>
		<label for="hidden-one">Hidden</label>
		<input id="hidden-one" type="hidden">
	</body></html>`

	found := []schemas.Question{{Label: "Email Address", Kind: schemas.FieldEmail}}
	orphans, err := OrphanLabels(page, found)
	require.NoError(t, err)

	// Email is covered by discovery, ghost has no control, hidden is skipped.
	require.Len(t, orphans, 1)
	q := orphans[0]
	assert.Equal(t, "Nickname", q.Label)
	assert.Equal(t, schemas.FieldText, q.Kind)
	assert.Equal(t, "#nickname", q.Fields[0].Locator().CSS())
}

func TestOrphanLabelsRequired(t *testing.T) {
	page := `<html><body>
		<label for="fn">Legal Name *</label>
		<input id="fn" type="text">
	</body></html>`
	orphans, err := OrphanLabels(page, nil)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.True(t, orphans[0].Required)
	assert.Equal(t, "Legal Name", orphans[0].Label)
}

func TestRulesForKnownPlatforms(t *testing.T) {
	for _, p := range []string{"workday", "greenhouse", "lever"} {
		r := RulesFor(p)
		assert.NotEmpty(t, r.ContainerSelectors, p)
		assert.NotEmpty(t, r.SubmitSelectors, p)
	}
	fallback := RulesFor("unknown")
	assert.NotEmpty(t, fallback.ContainerSelectors)
}
