package platform

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/execctl"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/orchestrator"
)

func TestPlatformForHosts(t *testing.T) {
	cases := []struct {
		url   string
		name  string
		ptype schemas.PlatformType
	}{
		{"https://company.wd5.myworkdayjobs.com/en-US/careers/job/12345", "workday", schemas.PlatformATS},
		{"https://boards.greenhouse.io/acme/jobs/400123", "greenhouse", schemas.PlatformATS},
		{"https://job-boards.greenhouse.io/acme/jobs/400123", "greenhouse", schemas.PlatformATS},
		{"https://jobs.lever.co/acme/6a1f", "lever", schemas.PlatformATS},
		{"https://www.linkedin.com/jobs/view/99", "jobboard", schemas.PlatformJobBoard},
	}
	for _, tc := range cases {
		desc, ok := PlatformFor(tc.url)
		require.True(t, ok, tc.url)
		assert.Equal(t, tc.name, desc.Name, tc.url)
		assert.Equal(t, tc.ptype, desc.Type, tc.url)
	}
}

func TestPlatformForUnknownHost(t *testing.T) {
	_, ok := PlatformFor("https://careers.example.com/jobs/1")
	assert.False(t, ok)

	_, ok = PlatformFor("not a url")
	assert.False(t, ok)
}

func TestHostMatchRequiresDotBoundary(t *testing.T) {
	// "evilever.co" must not match the lever pattern.
	assert.True(t, hostMatches("jobs.lever.co", "lever.co"))
	assert.False(t, hostMatches("evilever.co", "lever.co"))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(schemas.PlatformDescriptor{Type: schemas.PlatformATS, Name: "workday"}))
	assert.False(t, IsSupported(schemas.PlatformDescriptor{Type: schemas.PlatformJobBoard, Name: "jobboard"}))
	assert.False(t, IsSupported(schemas.PlatformDescriptor{Type: schemas.PlatformATS, Name: "taleo"}))
}

// fakeProbe scripts the page classifier inputs.
type fakeProbe struct {
	title   string
	visible map[string]int
}

func (f *fakeProbe) Title(ctx context.Context) (string, error) { return f.title, nil }

func (f *fakeProbe) VisibleCount(ctx context.Context, loc schemas.Locator) (int, error) {
	return f.visible[loc.CSS()], nil
}

func classifierAdapter(probe *fakeProbe) *Adapter {
	return &Adapter{name: "workday", drv: probe, markers: markersFor("workday")}
}

func TestGetPageCloudflareByTitle(t *testing.T) {
	a := classifierAdapter(&fakeProbe{title: "Just a moment..."})
	kind, err := a.GetPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.PageCloudflare, kind)
}

func TestGetPageConfirmationWinsOverApplication(t *testing.T) {
	a := classifierAdapter(&fakeProbe{visible: map[string]int{
		`[data-automation-id="applyFlowCompleteHeader"]`: 1,
		`[data-automation-id="formField"]`:               4,
	}})
	kind, err := a.GetPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.PageConfirmation, kind)
}

func TestGetPageApplication(t *testing.T) {
	a := classifierAdapter(&fakeProbe{visible: map[string]int{
		`[data-automation-id="formField"]`: 6,
	}})
	kind, err := a.GetPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.PageApplication, kind)
}

func TestGetPageUnknown(t *testing.T) {
	a := classifierAdapter(&fakeProbe{})
	kind, err := a.GetPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.PageUnknown, kind)
}

func TestOutcomeTerminalFailures(t *testing.T) {
	a := &Adapter{}
	flow := orchestrator.FlowResult{}

	// Human-check and processing failures are final, not retryable.
	assert.Equal(t, schemas.ExecutionFailed, a.outcome(flow, orchestrator.ErrCaptchaDetected))
	assert.Equal(t, schemas.ExecutionFailed,
		a.outcome(flow, fmt.Errorf("run flow: %w", orchestrator.ErrCaptchaDetected)))
	assert.Equal(t, schemas.ExecutionFailed, a.outcome(flow, orchestrator.ErrChallengePage))
	assert.Equal(t, schemas.ExecutionFailed, a.outcome(flow, orchestrator.ErrResumeProcessing))

	// A captcha run stays failed in the store instead of going back to pending.
	assert.Equal(t, schemas.ExecutionFailed, a.outcome(flow, orchestrator.ErrCaptchaDetected).Storable())

	assert.Equal(t, schemas.ExecutionAborted, a.outcome(flow, execctl.ErrAborted))
	assert.Equal(t, schemas.ExecutionApplied, a.outcome(orchestrator.FlowResult{Applied: true}, nil))
	assert.Equal(t, schemas.ExecutionJobExpired,
		a.outcome(orchestrator.FlowResult{Terminal: schemas.PageNotExist}, nil))
}
