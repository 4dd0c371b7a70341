package platform

import (
	"context"
	"strings"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// pageMarkers classify the current page of a flow by selector presence,
// checked in the order listed in classify.
type pageMarkers struct {
	confirmation []string
	application  []string
	jobSearch    []string
	notExist     []string
}

// cloudflareSelectors are platform-independent challenge markers.
var cloudflareSelectors = []string{
	`#challenge-form`,
	`#challenge-running`,
	`iframe[src*="challenges.cloudflare.com"]`,
}

func markersFor(platform string) pageMarkers {
	switch platform {
	case "workday":
		return pageMarkers{
			confirmation: []string{
				`[data-automation-id="applyFlowCompleteHeader"]`,
				`[data-automation-id="alreadyApplied"]`,
			},
			application: []string{
				`[data-automation-id="applyFlowPage"]`,
				`[data-automation-id="formField"]`,
			},
			jobSearch: []string{`[data-automation-id="jobResults"]`},
			notExist:  []string{`[data-automation-id="errorPage"]`},
		}
	case "greenhouse":
		return pageMarkers{
			confirmation: []string{`#application_confirmation`, `.application-confirmation`},
			application:  []string{`#application_form`, `.application--form`},
			jobSearch:    []string{`.job-boards`, `#board_title`},
			notExist:     []string{`.page-not-found`},
		}
	case "lever":
		return pageMarkers{
			confirmation: []string{`[data-qa="msg-submit-success"]`, `.thanks-main`},
			application:  []string{`#application-form`, `.application-form`},
			jobSearch:    []string{`.postings-group`},
			notExist:     []string{`.not-found`},
		}
	default:
		return pageMarkers{
			application: []string{`form`},
		}
	}
}

// GetPage classifies the currently rendered page. Challenge pages win over
// everything; confirmation wins over application since Workday renders both
// marker sets during the post-submit transition.
func (a *Adapter) GetPage(ctx context.Context) (schemas.PageKind, error) {
	title, err := a.drv.Title(ctx)
	if err != nil {
		return schemas.PageUnknown, err
	}
	if strings.Contains(strings.ToLower(title), "just a moment") {
		return schemas.PageCloudflare, nil
	}
	if visible, err := a.anyVisible(ctx, cloudflareSelectors); err != nil {
		return schemas.PageUnknown, err
	} else if visible {
		return schemas.PageCloudflare, nil
	}

	checks := []struct {
		kind      schemas.PageKind
		selectors []string
	}{
		{schemas.PageConfirmation, a.markers.confirmation},
		{schemas.PageApplication, a.markers.application},
		{schemas.PageJobSearch, a.markers.jobSearch},
		{schemas.PageNotExist, a.markers.notExist},
	}
	for _, check := range checks {
		visible, err := a.anyVisible(ctx, check.selectors)
		if err != nil {
			return schemas.PageUnknown, err
		}
		if visible {
			return check.kind, nil
		}
	}
	return schemas.PageUnknown, nil
}

func (a *Adapter) anyVisible(ctx context.Context, selectors []string) (bool, error) {
	for _, sel := range selectors {
		n, err := a.drv.VisibleCount(ctx, schemas.Locator{Selector: sel})
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
