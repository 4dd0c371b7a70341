package jobmeta

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workdaySnapshot = `
<html><body>
  <h1 data-automation-id="jobPostingHeader">Senior Software Engineer</h1>
  <div data-automation-id="jobPostingCompany">Initech</div>
  <dl data-automation-id="locations"><dt>Locations</dt><dd>Boston, MA; Austin, TX</dd></dl>
  <dl data-automation-id="postedOn"><dt>Posted</dt><dd>Posted 3 Days Ago</dd></dl>
  <div data-automation-id="jobPostingDescription">Build distributed systems in Go.</div>
</body></html>`

func TestExtractWorkday(t *testing.T) {
	meta, err := Extract("workday", workdaySnapshot)
	require.NoError(t, err)

	want := &Meta{
		Title:       "Senior Software Engineer",
		Company:     "Initech",
		Locations:   []string{"Boston, MA", "Austin, TX"},
		Description: "Build distributed systems in Go.",
	}
	if diff := cmp.Diff(want, meta, cmpopts.IgnoreFields(Meta{}, "PublishTime")); diff != "" {
		t.Errorf("extracted metadata mismatch (-want +got):\n%s", diff)
	}
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -3), meta.PublishTime, time.Minute)
}

func TestExtractMissingTitle(t *testing.T) {
	_, err := Extract("workday", `<html><body><p>nothing here</p></body></html>`)
	assert.Error(t, err)
}

func TestExtractGreenhouse(t *testing.T) {
	html := `
<html><body>
  <div class="job__title"><h1>Backend Engineer</h1></div>
  <div class="job__location">Remote - US</div>
  <div class="job__description">Go services.</div>
</body></html>`
	meta, err := Extract("greenhouse", html)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", meta.Title)
	assert.Equal(t, []string{"Remote - US"}, meta.Locations)
}

func TestFingerprintStableUnderWhitespaceAndCase(t *testing.T) {
	a := Fingerprint("Senior  Engineer", "Initech", []string{"Boston, MA"})
	b := Fingerprint("senior engineer", "INITECH", []string{"boston,  ma"})
	assert.Equal(t, a, b)

	c := Fingerprint("Senior Engineer", "Initrode", []string{"Boston, MA"})
	assert.NotEqual(t, a, c)
}

func TestParsePosted(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.AddDate(0, 0, -3), parsePosted("Posted 3 Days Ago", now))
	assert.Equal(t, now.Add(-5*time.Hour), parsePosted("5 hours ago", now))
	assert.Equal(t, now, parsePosted("Posted Today", now))
	assert.Equal(t, now.AddDate(0, 0, -1), parsePosted("Yesterday", now))
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), parsePosted("2026-08-01", now))
	assert.True(t, parsePosted("gibberish", now).IsZero())
}
