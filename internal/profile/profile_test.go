package profile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
	"firstName": "Ada",
	"lastName": "Lovelace",
	"email": "ada@example.com",
	"phoneNumber": "+1 555 0100",
	"addresses": [
		{"street": "1 Main St", "city": "Boston", "state": "MA", "postalCode": "02101", "country": "United States"},
		{"street": "2 Side St", "city": "Cambridge", "state": "MA", "postalCode": "02139", "country": "United States"}
	],
	"primaryAddressIdx": 1,
	"education": [
		{"schoolName": "MIT", "degreeId": "bachelors", "disciplineId": "cs", "startDate": "2014-09-01", "endDate": "2018-06-01"},
		{"schoolName": "Stanford", "degreeId": "masters", "disciplineId": "cs", "startDate": "2018-09-01", "endDate": "2020-06-01"},
		{"schoolName": "CMU", "degreeId": "phd", "disciplineId": "cs", "startDate": "2020-09-01"}
	],
	"workExperiences": [
		{"companyName": "Initech", "title": "Engineer", "startDate": "2020-07-01"}
	],
	"websites": [{"label": "GitHub", "url": "https://github.com/ada"}],
	"resumes": [{"fileName": "ada_resume.pdf", "resumeStoredPath": "/data/resumes/ada_resume.pdf"}],
	"primaryResumeIdx": 0,
	"skills": ["go", "python"],
	"salaryExpectations": {"min": 90000, "max": 110000},
	"demographics": {"gender": "Female", "veteranStatus": false},
	"featureFlags": {"useLLMForAddress": true}
}`

func sample(t *testing.T) *Profile {
	t.Helper()
	p, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)
	return p
}

func TestParseValidProfile(t *testing.T) {
	p := sample(t)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Len(t, p.Education, 3)
	assert.True(t, p.Flags.UseLLMForAddress)

	addr, ok := p.PrimaryAddress()
	require.True(t, ok)
	assert.Equal(t, "Cambridge", addr.City)

	res, ok := p.PrimaryResume()
	require.True(t, ok)
	assert.Equal(t, "ada_resume.pdf", res.FileName)
}

func TestParseRejectsBadPrimaryIndex(t *testing.T) {
	bad := `{"firstName":"A","lastName":"B","email":"a@b.co",
		"addresses":[{"city":"X"}],"primaryAddressIdx":3}`
	_, err := Parse([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primaryAddressIdx")
}

func TestParseRejectsMissingIdentity(t *testing.T) {
	_, err := Parse([]byte(`{"firstName":"A"}`))
	assert.Error(t, err)
}

func TestGroupLen(t *testing.T) {
	p := sample(t)
	assert.Equal(t, 3, p.GroupLen("education"))
	assert.Equal(t, 1, p.GroupLen("workExperiences"))
	assert.Equal(t, 1, p.GroupLen("websites"))
	assert.Equal(t, 0, p.GroupLen("unknown"))
}

func TestResolveNestedPaths(t *testing.T) {
	p := sample(t)

	v, err := p.Resolve("education[1].schoolName")
	require.NoError(t, err)
	assert.Equal(t, "Stanford", v)

	v, err = p.Resolve("addresses[0].postalCode")
	require.NoError(t, err)
	assert.Equal(t, "02101", v)

	// Bracket notation for map keys.
	v, err = p.Resolve("salaryExpectations[min]")
	require.NoError(t, err)
	assert.Equal(t, float64(90000), v)
}

func TestResolveNoData(t *testing.T) {
	p := sample(t)
	for _, path := range []string{
		"education[9].schoolName",
		"education[-1].schoolName",
		"nope.deeper",
		"firstName.notAMap",
	} {
		_, err := p.Resolve(path)
		assert.True(t, errors.Is(err, ErrNoData), "path %s", path)
	}
}

func TestResolveStringRendering(t *testing.T) {
	p := sample(t)

	s, err := p.ResolveString("salaryExpectations.min")
	require.NoError(t, err)
	assert.Equal(t, "90000", s)

	s, err = p.ResolveString("skills")
	require.NoError(t, err)
	assert.Equal(t, "go, python", s)

	_, err = p.ResolveString("demographics.ethnicity")
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestMeanSalary(t *testing.T) {
	p := sample(t)
	assert.Equal(t, 100000, p.MeanSalary(80000))

	empty := &Profile{}
	assert.Equal(t, 80000, empty.MeanSalary(80000))
}

func TestParseDateLayouts(t *testing.T) {
	for _, s := range []string{"2020-06-01", "2020-06", "06/2020", "2020"} {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2020, d.Year())
	}
	_, err := ParseDate("June 2020")
	assert.Error(t, err)
}

func TestMonthYearExtraction(t *testing.T) {
	d, err := ParseDate("2018-06-01")
	require.NoError(t, err)
	assert.Equal(t, "06", Month2(d))
	assert.Equal(t, "2018", Year4(d))
	assert.Equal(t, "01", Day2(d))
}

func TestCurrentlyWorking(t *testing.T) {
	now := time.Date(2026, 8, 24, 0, 0, 0, 0, time.Local)

	assert.True(t, WorkExperience{}.CurrentlyWorking(now))
	assert.True(t, WorkExperience{EndDate: "2030-01-01"}.CurrentlyWorking(now))
	assert.True(t, WorkExperience{EndDate: "someday"}.CurrentlyWorking(now))
	assert.False(t, WorkExperience{EndDate: "2024-01-01"}.CurrentlyWorking(now))
}

func TestDemographicLabel(t *testing.T) {
	yes, no := true, false

	assert.Equal(t, "I am not a protected veteran", DemographicLabel("workday", "veteranStatus", &no))
	assert.Contains(t, DemographicLabel("workday", "veteranStatus", &yes), "protected veteran")
	assert.Equal(t, "I don't wish to answer", DemographicLabel("workday", "veteranStatus", nil))
	// Unknown platform falls back to workday wording.
	assert.Equal(t, "I am not a protected veteran", DemographicLabel("unknown", "veteranStatus", &no))
}

func TestDemographicAnswer(t *testing.T) {
	p := sample(t)

	assert.Equal(t, []string{"Female"}, p.DemographicAnswer("workday", "gender"))
	// Unset string demographics decline.
	assert.Contains(t, p.DemographicAnswer("workday", "ethnicity"), DeclineToState)
	// Explicit false boolean maps through the table.
	assert.Equal(t, []string{"I am not a protected veteran"}, p.DemographicAnswer("workday", "veteranStatus"))
	// Absent boolean declines.
	assert.Equal(t, []string{"I do not want to answer"}, p.DemographicAnswer("workday", "disabilityStatus"))
}
