package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/dom"
)

// GroupSyncPlan computes how many add or remove clicks bring a rendered
// repeating group to the number of profile entries that can still be filled.
// Failed database indices reduce the target since their entries are never
// retried.
func GroupSyncPlan(rendered, profileLen, failedCount int) (addClicks, removeClicks int) {
	desired := profileLen - failedCount
	if desired < 0 {
		desired = 0
	}
	if rendered < desired {
		return desired - rendered, 0
	}
	return 0, rendered - desired
}

// InitializePage brings a freshly loaded application page into a known state:
// repeating groups synced to the profile, stale pre-populated uploads cleared
// and platform preload checkboxes set.
func (o *Orchestrator) InitializePage(ctx context.Context) error {
	if _, err := o.drv.WaitForStableDOM(ctx, dom.StableDOMOptions{}); err != nil {
		return err
	}

	if err := o.syncGroups(ctx); err != nil {
		return err
	}
	if err := o.clearUploads(ctx); err != nil {
		return err
	}
	return o.preloadCheckboxes(ctx)
}

// syncGroups adjusts each repeating group's container count to the profile.
func (o *Orchestrator) syncGroups(ctx context.Context) error {
	rules := o.source.Rules()
	for group, groupSel := range rules.GroupSelectors {
		addSel, hasAdd := rules.AddButtonSelectors[group]

		rendered, err := o.drv.VisibleCount(ctx, schemas.Locator{Selector: groupSel})
		if err != nil {
			return err
		}

		adds, removes := GroupSyncPlan(rendered, o.prof.GroupLen(string(group)), len(o.state.Failed(group)))
		if adds == 0 && removes == 0 {
			continue
		}
		o.log.Debug("syncing repeating group",
			zap.String("group", string(group)), zap.Int("rendered", rendered),
			zap.Int("adds", adds), zap.Int("removes", removes))

		for i := 0; i < adds && hasAdd; i++ {
			if _, err := o.drv.Click(ctx, schemas.Locator{Selector: addSel}, dom.ClickOptions{}); err != nil {
				return err
			}
		}

		// Surplus containers come off the end so earlier pre-filled rows keep
		// their positions.
		if removes > 0 && rules.DeleteButtonSelector != "" {
			deleteLoc := schemas.Locator{Selector: groupSel + " " + rules.DeleteButtonSelector}
			for i := 0; i < removes; i++ {
				idx := rendered - 1 - i
				if idx < 0 {
					break
				}
				if _, err := o.drv.ClickNth(ctx, deleteLoc, idx, dom.ClickOptions{}); err != nil {
					return err
				}
			}
		}

		if _, err := o.drv.WaitForStableDOM(ctx, dom.StableDOMOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// clearUploads removes files the platform carried over from a previous
// application so the resume chosen for this job is the only one attached.
func (o *Orchestrator) clearUploads(ctx context.Context) error {
	sel := o.source.Rules().FileClearSelector
	if sel == "" {
		return nil
	}
	n, err := o.drv.ClickAll(ctx, schemas.Locator{Selector: sel}, dom.ClickOptions{})
	if err != nil && !errors.Is(err, dom.ErrNoProgress) {
		return err
	}
	if n > 0 {
		o.log.Debug("cleared pre-populated uploads", zap.Int("count", n))
	}
	return nil
}

// preloadCheckboxes sets platform toggles whose state follows directly from
// the profile, before the question loop runs. Workday's "I currently work
// here" checkbox controls whether an end date field is rendered at all, so it
// must be settled first.
func (o *Orchestrator) preloadCheckboxes(ctx context.Context) error {
	labels := o.source.Rules().PreloadCheckboxLabels
	if len(labels) == 0 {
		return nil
	}

	questions, err := o.source.GetQuestions(ctx, false)
	if err != nil {
		return err
	}

	for i := range questions {
		q := &questions[i]
		if q.Kind != schemas.FieldCheckbox || !matchesAny(q.Label, labels) {
			continue
		}
		state := o.preloadState(q)
		if _, err := o.drv.CheckboxSelectBool(ctx, q.ContainerLocator(), state, dom.CheckboxOptions{}); err != nil {
			o.log.Warn("preload checkbox failed", zap.String("label", q.Label), zap.Error(err))
			continue
		}
		if state {
			o.done[q.ID] = true
		}
	}
	return nil
}

// preloadState derives the desired state of a preload checkbox from the
// profile entry its container belongs to.
func (o *Orchestrator) preloadState(q *schemas.Question) bool {
	if q.Group != schemas.GroupWork {
		return false
	}
	dbIdx := q.ContainerIdx
	if dbIdx < 0 || dbIdx >= len(o.prof.WorkExperiences) {
		return false
	}
	return o.prof.WorkExperiences[dbIdx].CurrentlyWorking(time.Now())
}

func matchesAny(label string, candidates []string) bool {
	l := strings.ToLower(label)
	for _, c := range candidates {
		if c != "" && strings.Contains(l, strings.ToLower(c)) {
			return true
		}
	}
	return false
}
