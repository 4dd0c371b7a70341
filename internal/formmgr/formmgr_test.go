package formmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/discovery"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/dom"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

// fakeDriver records dispatched calls and returns canned results.
type fakeDriver struct {
	fillValue    string
	fillOpts     dom.FillOptions
	radioOpts    dom.RadioOptions
	radioAnswers []string
	checkboxOpts dom.CheckboxOptions
	msValues     []string
	msOpts       dom.MultiselectOptions
	uploadOpts   dom.UploadOptions
	uploadPaths  []string
}

func (f *fakeDriver) FillInput(ctx context.Context, loc schemas.Locator, value string, opts dom.FillOptions) (dom.FillResult, error) {
	f.fillValue, f.fillOpts = value, opts
	return dom.FillResult{Success: true, Final: value}, nil
}

func (f *fakeDriver) RadioSelect(ctx context.Context, c schemas.Locator, answers []string, opts dom.RadioOptions) (dom.ChoiceResult, error) {
	f.radioAnswers, f.radioOpts = answers, opts
	return dom.ChoiceResult{Success: true}, nil
}

func (f *fakeDriver) CheckboxSelect(ctx context.Context, c schemas.Locator, values []string, opts dom.CheckboxOptions) (dom.ChoiceResult, error) {
	f.checkboxOpts = opts
	return dom.ChoiceResult{Success: true}, nil
}

func (f *fakeDriver) CheckboxSelectBool(ctx context.Context, c schemas.Locator, state bool, opts dom.CheckboxOptions) (dom.ChoiceResult, error) {
	return dom.ChoiceResult{Success: true}, nil
}

func (f *fakeDriver) DropdownSelect(ctx context.Context, t schemas.Locator, answers []string, opts dom.DropdownOptions) (dom.DropdownResult, error) {
	return dom.DropdownResult{ChoiceResult: dom.ChoiceResult{Success: true}}, nil
}

func (f *fakeDriver) SelectField(ctx context.Context, loc schemas.Locator, answers []string, opts dom.SelectFieldOptions) (dom.ChoiceResult, error) {
	return dom.ChoiceResult{Success: true}, nil
}

func (f *fakeDriver) Multiselect(ctx context.Context, in, chips schemas.Locator, values []string, opts dom.MultiselectOptions) (dom.MultiselectResult, error) {
	f.msValues, f.msOpts = values, opts
	return dom.MultiselectResult{Success: true, Chips: values}, nil
}

func (f *fakeDriver) Upload(ctx context.Context, in schemas.Locator, paths []string, opts dom.UploadOptions) (dom.UploadResult, error) {
	f.uploadPaths, f.uploadOpts = paths, opts
	return dom.UploadResult{Success: true, Uploaded: paths}, nil
}

func testManager(t *testing.T) (*Manager, *fakeDriver) {
	t.Helper()
	drv := &fakeDriver{}
	cfg := config.ResolverConfig{
		SalaryKeywords:         []string{"salary", "compensation"},
		DefaultSalary:          80000,
		RadioThreshold:         65,
		RadioRequiredThreshold: 50,
		DropdownThreshold:      65,
		CheckboxBaseThreshold:  60,
	}
	p, err := profile.Parse([]byte(`{"firstName":"A","lastName":"B","email":"a@b.co",
		"salaryExpectations":{"min":90000,"max":110000}}`))
	require.NoError(t, err)
	m := New(zap.NewNop(), cfg, drv, discovery.RulesFor("workday"), p)
	return m, drv
}

func answered(v any) schemas.ResolutionResult {
	return schemas.Answered(v, schemas.SourceElement)
}

func TestExecuteRejectsNonAnswered(t *testing.T) {
	m, _ := testManager(t)
	q := &schemas.Question{Kind: schemas.FieldText}
	out := m.Execute(context.Background(), q, schemas.Skipped("x"), 1, 3)
	assert.False(t, out.OK)
}

func TestExecuteUnknownKind(t *testing.T) {
	m, _ := testManager(t)
	q := &schemas.Question{Kind: schemas.FieldUnknown}
	out := m.Execute(context.Background(), q, answered("x"), 1, 3)
	require.False(t, out.OK)
	assert.Contains(t, out.Reason, "unsupported field kind")
}

func TestExecuteTextFillsValue(t *testing.T) {
	m, drv := testManager(t)
	q := &schemas.Question{Label: "First Name", Kind: schemas.FieldText,
		Fields: []schemas.FieldRef{{Tag: "f0"}}}
	out := m.Execute(context.Background(), q, answered("Ada"), 1, 3)
	require.True(t, out.OK)
	assert.Equal(t, "Ada", drv.fillValue)
	assert.True(t, drv.fillOpts.DispatchFocus)
}

func TestExecuteTextSalaryHeuristicOnLastAttempt(t *testing.T) {
	m, drv := testManager(t)
	q := &schemas.Question{Label: "Expected Salary", Kind: schemas.FieldText,
		Fields: []schemas.FieldRef{{Tag: "f0"}}}

	// Not the last attempt: the raw value passes through.
	out := m.Execute(context.Background(), q, answered("about 95,000 USD"), 1, 3)
	require.True(t, out.OK)
	assert.Equal(t, "about 95,000 USD", drv.fillValue)

	// Last attempt: first numeric substring extracted.
	out = m.Execute(context.Background(), q, answered("about 95,000 USD"), 3, 3)
	require.True(t, out.OK)
	assert.Equal(t, "95000", drv.fillValue)

	// Last attempt, no numeric content: mean of the profile range.
	out = m.Execute(context.Background(), q, answered("negotiable"), 3, 3)
	require.True(t, out.OK)
	assert.Equal(t, "100000", drv.fillValue)
}

func TestExecuteNumberSkipsFocus(t *testing.T) {
	m, drv := testManager(t)
	q := &schemas.Question{Label: "Years of Experience", Kind: schemas.FieldNumber,
		Fields: []schemas.FieldRef{{Tag: "f0"}}}
	out := m.Execute(context.Background(), q, answered(5), 1, 3)
	require.True(t, out.OK)
	assert.False(t, drv.fillOpts.DispatchFocus)
	assert.True(t, drv.fillOpts.Numeric)
}

func TestExecuteRadioThresholds(t *testing.T) {
	m, drv := testManager(t)
	q := &schemas.Question{Label: "Gender", Kind: schemas.FieldRadio, Required: true,
		ContainerTag: "c0"}

	m.Execute(context.Background(), q, answered([]string{"Decline to state"}), 1, 3)
	assert.Equal(t, 50.0, drv.radioOpts.Threshold)
	assert.False(t, drv.radioOpts.SelectAtLeastOne)

	// Final required attempt relaxes to 0 and forces a choice.
	m.Execute(context.Background(), q, answered([]string{"Decline to state"}), 3, 3)
	assert.Equal(t, 0.0, drv.radioOpts.Threshold)
	assert.True(t, drv.radioOpts.SelectAtLeastOne)
}

func TestExecuteCheckboxDisabilityExactOne(t *testing.T) {
	m, drv := testManager(t)
	q := &schemas.Question{Label: "Disability Status", Kind: schemas.FieldCheckbox,
		Required: true, ContainerTag: "c0",
		Fields: []schemas.FieldRef{{Tag: "a"}, {Tag: "b"}, {Tag: "c"}}}
	out := m.Execute(context.Background(), q, answered([]string{"No, I do not have a disability"}), 1, 3)
	require.True(t, out.OK)
	assert.Equal(t, 1, drv.checkboxOpts.ExactSelections)
}

func TestExecuteMultiselectSafetyOther(t *testing.T) {
	m, drv := testManager(t)
	q := &schemas.Question{Label: "Skills", Kind: schemas.FieldMultiselect,
		Required: true, ContainerTag: "c0",
		Fields: []schemas.FieldRef{{Tag: "in"}}}
	out := m.Execute(context.Background(), q, answered([]string{}), 1, 3)
	require.True(t, out.OK)
	assert.Equal(t, []string{"Other"}, drv.msValues)
	assert.Equal(t, dom.MaxChipsAuto, drv.msOpts.MaxChips)
	assert.True(t, drv.msOpts.AvoidDuplicates)
}

func TestExecuteFileUsesPlatformSelectors(t *testing.T) {
	m, drv := testManager(t)
	q := &schemas.Question{Label: "Resume", Kind: schemas.FieldFile,
		Fields: []schemas.FieldRef{{Tag: "f0"}}}
	out := m.Execute(context.Background(), q, answered("/uploads/ada.pdf"), 1, 3)
	require.True(t, out.OK)
	assert.Equal(t, []string{"/uploads/ada.pdf"}, drv.uploadPaths)
	assert.NotEmpty(t, drv.uploadOpts.StatusSelector)
	assert.NotEmpty(t, drv.uploadOpts.SpinnerSelector)
}

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, []string{"Yes"}, NormalizeAnswer(true))
	assert.Equal(t, []string{"No"}, NormalizeAnswer(false))
	assert.Equal(t, []string{"x"}, NormalizeAnswer(" x "))
	assert.Nil(t, NormalizeAnswer(""))
	assert.Nil(t, NormalizeAnswer(nil))
	assert.Equal(t, []string{"a", "b"}, NormalizeAnswer([]any{"a", "", "b"}))
	assert.Equal(t, []string{"80000"}, NormalizeAnswer(float64(80000)))
}

func TestSalaryAnswer(t *testing.T) {
	assert.Equal(t, "95000", SalaryAnswer("95,000 or so", nil, 80000))
	assert.Equal(t, "120000.50", SalaryAnswer("$120,000.50", nil, 80000))
	assert.Equal(t, "80000", SalaryAnswer("negotiable", nil, 80000))
}

func TestCheckboxThresholdScaling(t *testing.T) {
	// Smaller groups are stricter.
	assert.Equal(t, 75.0, CheckboxThreshold(60, 2, false, false))
	assert.Equal(t, 65.0, CheckboxThreshold(60, 4, false, false))
	assert.Equal(t, 60.0, CheckboxThreshold(60, 9, false, false))
	assert.Equal(t, 0.0, CheckboxThreshold(60, 2, true, true))
}

func TestCheckboxConstraints(t *testing.T) {
	_, _, exact := CheckboxConstraints("Disability Status", 3, true)
	assert.Equal(t, 1, exact)

	min, max, exact := CheckboxConstraints("Ethnicity", 8, true)
	assert.Equal(t, 1, min)
	assert.Equal(t, 8, max)
	assert.Zero(t, exact)

	min, max, exact = CheckboxConstraints("Preferred contact methods", 4, false)
	assert.Zero(t, min)
	assert.Zero(t, max)
	assert.Zero(t, exact)
}
