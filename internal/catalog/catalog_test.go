package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

func testProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p, err := profile.Parse([]byte(`{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
		"phoneNumber": "+1 555 0100",
		"addresses": [{"city": "Boston", "state": "MA", "country": "United States"}],
		"workExperiences": [{"companyName": "Initech", "title": "Engineer", "startDate": "2020-07-01"}],
		"skills": ["go"],
		"demographics": {"veteranStatus": false}
	}`))
	require.NoError(t, err)
	return p
}

func question(label string, kind schemas.FieldKind) *schemas.Question {
	return &schemas.Question{Label: label, Kind: kind}
}

func TestForKnownPlatforms(t *testing.T) {
	for _, name := range []string{"workday", "greenhouse", "lever"} {
		c, ok := For(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, c.Known)
		assert.NotEmpty(t, c.Labels)
	}
	_, ok := For("taleo")
	assert.False(t, ok)
}

func TestMatchByAlias(t *testing.T) {
	c, _ := For("workday")

	entry, ok := c.Match(question("Legal First Name", schemas.FieldText))
	require.True(t, ok)
	assert.Equal(t, "firstName", entry.DataKey)

	entry, ok = c.Match(question("Zip / Postal Code", schemas.FieldText))
	require.True(t, ok)
	assert.Equal(t, "addresses.postalCode", entry.DataKey)
}

func TestMatchRespectsKindFilter(t *testing.T) {
	c, _ := For("workday")

	// "First Name" allows textual kinds only; a file widget with that label
	// must not claim the entry.
	_, ok := c.Match(question("First Name", schemas.FieldFile))
	assert.False(t, ok)
}

func TestMatchRejectsDissimilarLabels(t *testing.T) {
	c, _ := For("workday")
	_, ok := c.Match(question("Describe your proudest achievement", schemas.FieldTextarea))
	assert.False(t, ok)
}

func TestKnownQuestionGroup(t *testing.T) {
	c, _ := For("workday")

	entry, ok := c.Match(question("Company", schemas.FieldText))
	require.True(t, ok)
	assert.Equal(t, schemas.GroupWork, entry.Group())
	assert.True(t, entry.Deletable)

	entry, ok = c.Match(question("School or University", schemas.FieldText))
	require.True(t, ok)
	assert.Equal(t, schemas.GroupEducation, entry.Group())

	entry, ok = c.Match(question("Email", schemas.FieldEmail))
	require.True(t, ok)
	assert.Equal(t, schemas.GroupNone, entry.Group())
}

func TestForceSkipEntry(t *testing.T) {
	c, _ := For("workday")
	entry, ok := c.Match(question("I currently work here", schemas.FieldCheckbox))
	require.True(t, ok)
	assert.Equal(t, schemas.PolicyForceSkip, entry.Policy)
}

func TestDemographicValueFunc(t *testing.T) {
	c, _ := For("workday")
	p := testProfile(t)

	entry, ok := c.Match(question("Protected Veteran Status", schemas.FieldRadio))
	require.True(t, ok)
	require.NotNil(t, entry.Value)

	v, err := entry.Value(p, question("Protected Veteran Status", schemas.FieldRadio))
	require.NoError(t, err)
	assert.Equal(t, []string{"I am not a protected veteran"}, v)
}

func TestSalaryValueNoData(t *testing.T) {
	c, _ := For("workday")
	p := testProfile(t)

	entry, ok := c.Match(question("Desired Salary", schemas.FieldText))
	require.True(t, ok)
	assert.Equal(t, schemas.PolicySkipIfDataUnavailable, entry.Policy)

	_, err := entry.Value(p, nil)
	assert.True(t, errors.Is(err, profile.ErrNoData))
}

func TestLabelKeysSortedAndResolvable(t *testing.T) {
	c, _ := For("greenhouse")
	keys := c.LabelKeys()
	require.NotEmpty(t, keys)
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i])
	}

	p := testProfile(t)
	v, err := c.ResolveLabel("location", p, nil)
	require.NoError(t, err)
	assert.Equal(t, "Boston, MA", v)

	_, err = c.ResolveLabel("no_such_key", p, nil)
	assert.True(t, errors.Is(err, profile.ErrNoData))
}

func TestStaticLabelDefinition(t *testing.T) {
	c, _ := For("workday")
	v, err := c.ResolveLabel("needs_sponsorship", testProfile(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "No", v)
}
