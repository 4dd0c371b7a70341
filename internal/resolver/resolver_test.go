package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/catalog"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

type fakeServices struct {
	nearestIdx int
	nearestErr error
	resumeIdx  int
	ranked     []string
	rankErr    error
}

func (f *fakeServices) NearestAddress(ctx context.Context, locs []string, addrs []profile.Address) (int, error) {
	return f.nearestIdx, f.nearestErr
}

func (f *fakeServices) BestResume(ctx context.Context, desc string, resumes []profile.Resume) (int, error) {
	return f.resumeIdx, nil
}

func (f *fakeServices) RankLabels(ctx context.Context, label string, keys []string) ([]string, error) {
	return f.ranked, f.rankErr
}

func testConfig() config.ResolverConfig {
	return config.ResolverConfig{
		SalaryKeywords: []string{"salary", "compensation"},
		DefaultSalary:  80000,
		ConsentPhrases: []string{"i agree", "i consent", "acknowledge", "confirm"},
		FallbackSkills: []string{"Communication", "Teamwork"},
		RadioThreshold: 65,
	}
}

const resolverProfile = `{
	"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
	"phoneNumber": "+1 555 0100",
	"addresses": [
		{"city": "Boston", "state": "Massachusetts (MA)", "country": "United States"},
		{"city": "Austin", "state": "Texas", "country": "United States"}
	],
	"primaryAddressIdx": 0,
	"education": [
		{"schoolName": "MIT", "startDate": "2014-09-01", "endDate": "2018-06-01"},
		{"schoolName": "Stanford", "startDate": "2018-09-01", "endDate": "2020-06-01"},
		{"schoolName": "CMU", "startDate": "2020-09-01"}
	],
	"workExperiences": [{"companyName": "Initech", "title": "Engineer", "startDate": "2020-07-01"}],
	"resumes": [{"fileName": "ada.pdf", "resumeStoredPath": "stored/ada.pdf"}],
	"skills": ["Go", "Python"],
	"featureFlags": {"useLLMForAddress": true}
}`

func newResolver(t *testing.T, svc Services) *Resolver {
	t.Helper()
	p, err := profile.Parse([]byte(resolverProfile))
	require.NoError(t, err)
	cat, ok := catalog.For("workday")
	require.True(t, ok)
	r := New(zap.NewNop(), testConfig(), p, cat, svc, "/uploads")
	r.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.Local) }
	return r
}

func eduQuestion(containerIdx int) *schemas.Question {
	return &schemas.Question{
		ID:           "q-school",
		Label:        "School or University",
		Kind:         schemas.FieldText,
		Group:        schemas.GroupEducation,
		ContainerIdx: containerIdx,
		Fields:       []schemas.FieldRef{{Tag: "f0", TagName: "input"}},
	}
}

func TestDBIndexArithmetic(t *testing.T) {
	none := map[int]bool{}
	assert.Equal(t, 0, DBIndex(0, none))
	assert.Equal(t, 3, DBIndex(3, none))

	// Failed index 1: containers 0,1,2 map to db 0,2,3.
	failed := map[int]bool{1: true}
	assert.Equal(t, 0, DBIndex(0, failed))
	assert.Equal(t, 2, DBIndex(1, failed))
	assert.Equal(t, 3, DBIndex(2, failed))

	// Consecutive failures skip in order.
	failed = map[int]bool{0: true, 1: true}
	assert.Equal(t, 2, DBIndex(0, failed))
}

func TestResolveGroupedAnswersFromProfile(t *testing.T) {
	r := newResolver(t, nil)
	state := NewPageState()

	res := r.Resolve(context.Background(), eduQuestion(1), state, nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, "Stanford", res.Value)
	assert.Equal(t, 1, res.Meta["dbIdx"])
}

func TestCorrectionCycle(t *testing.T) {
	// Four containers rendered against profile length 3: container 3 resolves
	// to db index 3, past the profile, and the deletable container is removed.
	r := newResolver(t, nil)
	state := NewPageState()

	res := r.Resolve(context.Background(), eduQuestion(3), state, nil)
	require.Equal(t, schemas.ResolutionStructuralFailure, res.Status)
	require.NotNil(t, res.Correction)
	assert.Equal(t, schemas.CorrectionRemoveEduContainer, res.Correction.Kind)
	assert.Equal(t, 3, res.Correction.ContainerIdx)
	assert.Equal(t, 3, res.Correction.DBIdx)

	// After the correction the db index is recorded failed; the re-rendered 3
	// containers resolve db 0..2 and index 3 is never retried.
	state.MarkFailed(schemas.GroupEducation, res.Correction.DBIdx)
	for c, want := range []string{"MIT", "Stanford", "CMU"} {
		got := r.Resolve(context.Background(), eduQuestion(c), state, nil)
		require.Equal(t, schemas.ResolutionAnswered, got.Status, "container %d", c)
		assert.Equal(t, want, got.Value)
	}
}

func TestGroupedDatePartExtraction(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{
		Label: "Education Start Date", Kind: schemas.FieldDate, SubLabel: "year",
		Group: schemas.GroupEducation, ContainerIdx: 0,
		Fields: []schemas.FieldRef{{Tag: "f0", TagName: "input"}},
	}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, "2014", res.Value)
}

func TestAddressNearestSelection(t *testing.T) {
	svc := &fakeServices{nearestIdx: 1}
	r := newResolver(t, svc)
	state := NewPageState()
	state.JobLocations = []string{"Austin, TX"}

	q := &schemas.Question{Label: "City", Kind: schemas.FieldText}
	res := r.Resolve(context.Background(), q, state, nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, "Austin", res.Value)
	assert.Equal(t, 1, res.Meta["addressIdx"])
}

func TestAddressFallsBackToPrimaryOnServiceError(t *testing.T) {
	svc := &fakeServices{nearestErr: errors.New("down")}
	r := newResolver(t, svc)
	state := NewPageState()
	state.JobLocations = []string{"Austin, TX"}

	q := &schemas.Question{Label: "City", Kind: schemas.FieldText}
	res := r.Resolve(context.Background(), q, state, nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, "Boston", res.Value)
}

func TestStateAbbreviationStripped(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{Label: "State", Kind: schemas.FieldText}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, "Massachusetts", res.Value)
}

func TestStripStateAbbrev(t *testing.T) {
	assert.Equal(t, "Massachusetts", StripStateAbbrev("Massachusetts (MA)"))
	assert.Equal(t, "Texas", StripStateAbbrev("Texas, TX"))
	assert.Equal(t, "Texas", StripStateAbbrev("Texas"))
	assert.Equal(t, "North Carolina", StripStateAbbrev("North Carolina (NC)"))
}

func TestResumeAnswerJoinsUploadsRoot(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{Label: "Resume", Kind: schemas.FieldFile}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, "/uploads/stored/ada.pdf", res.Value)
}

func TestSkillsUnionForRequiredQuestion(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{Label: "Skills", Kind: schemas.FieldMultiselect, Required: true}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, []string{"Go", "Python"}, res.Value)
}

func TestForceSkipPolicy(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{Label: "I currently work here", Kind: schemas.FieldCheckbox}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	assert.Equal(t, schemas.ResolutionSkipped, res.Status)
}

func TestLabelBranchBooleanConversion(t *testing.T) {
	svc := &fakeServices{ranked: []string{"needs_sponsorship"}}
	r := newResolver(t, svc)
	q := &schemas.Question{Label: "Will you require visa sponsorship to work in this role?", Kind: schemas.FieldRadio}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, schemas.SourceLabel, res.Source)
	assert.Equal(t, "No", res.Value)
	assert.Equal(t, "needs_sponsorship", res.Meta["labelKey"])
}

func TestConsentCheckboxHeuristic(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{
		Label: "I agree to the privacy policy", Kind: schemas.FieldCheckbox,
		Fields: []schemas.FieldRef{{Tag: "f0", TagName: "input", Type: "checkbox"}},
	}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, schemas.SourceQuestionType, res.Source)
	assert.Equal(t, true, res.Value)
}

func TestDateHeuristicUsesToday(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{Label: "Signature Date", Kind: schemas.FieldDate}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	require.Equal(t, schemas.ResolutionAnswered, res.Status)
	assert.Equal(t, "2026-08-24", res.Value)
}

func TestBirthDateEscalatesToLLM(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{Label: "Date of birth", Kind: schemas.FieldDate}
	res := r.Resolve(context.Background(), q, NewPageState(), nil)
	assert.Equal(t, schemas.ResolutionNeedsLLM, res.Status)
}

func TestNeedsLLMPromptIncludesOptions(t *testing.T) {
	r := newResolver(t, nil)
	q := &schemas.Question{Label: "Which office do you prefer?", Kind: schemas.FieldRadio}
	options := []schemas.OptionInfo{{Label: "Boston"}, {Label: "Remote"}}
	res := r.Resolve(context.Background(), q, NewPageState(), options)
	require.Equal(t, schemas.ResolutionNeedsLLM, res.Status)
	assert.Contains(t, res.PromptHint, "Which office do you prefer?")
	assert.Contains(t, res.PromptHint, "- Boston")
	assert.Contains(t, res.PromptHint, "- Remote")
}
