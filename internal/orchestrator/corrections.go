package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/dom"
)

// AdjustRemovalIndex maps a container index observed before any removals onto
// the index it occupies after earlier containers in the same batch have been
// removed.
func AdjustRemovalIndex(idx int, removedBefore []int) int {
	adjusted := idx
	for _, r := range removedBefore {
		if r < idx {
			adjusted--
		}
	}
	if adjusted < 0 {
		adjusted = 0
	}
	return adjusted
}

// applyCorrections executes the structural corrections collected during an
// iteration. Container removals are applied lowest index first so later
// indices can be adjusted for the shift; every removed database index is
// recorded so it is never retried after the group re-renders.
func (o *Orchestrator) applyCorrections(ctx context.Context, corrections []schemas.Correction) error {
	if len(corrections) == 0 {
		return nil
	}

	removals := make(map[schemas.GroupKey][]schemas.Correction)
	for _, c := range corrections {
		switch c.Kind {
		case schemas.CorrectionMarkQuestionFailed:
			if c.QuestionID != "" {
				o.failed[c.QuestionID] = true
			}
		case schemas.CorrectionRemoveWorkContainer,
			schemas.CorrectionRemoveEduContainer,
			schemas.CorrectionRemoveWebsiteContainer:
			removals[c.Group] = append(removals[c.Group], c)
		}
	}
	if len(removals) == 0 {
		return nil
	}

	rules := o.source.Rules()
	for group, batch := range removals {
		sort.Slice(batch, func(i, j int) bool {
			return batch[i].ContainerIdx < batch[j].ContainerIdx
		})

		groupSel, ok := rules.GroupSelectors[group]
		if !ok || rules.DeleteButtonSelector == "" {
			return fmt.Errorf("no removal selectors for group %q", group)
		}
		deleteLoc := schemas.Locator{Selector: groupSel + " " + rules.DeleteButtonSelector}

		var removed []int
		for _, c := range batch {
			o.state.MarkFailed(group, c.DBIdx)

			uiIdx := AdjustRemovalIndex(c.ContainerIdx, removed)
			if _, err := o.drv.ClickNth(ctx, deleteLoc, uiIdx, dom.ClickOptions{}); err != nil {
				return fmt.Errorf("remove %s container %d: %w", group, c.ContainerIdx, err)
			}
			removed = append(removed, c.ContainerIdx)

			o.log.Info("removed repeating-group container",
				zap.String("group", string(group)),
				zap.Int("containerIdx", c.ContainerIdx),
				zap.Int("dbIdx", c.DBIdx))
		}
	}

	if _, err := o.drv.WaitForStableDOM(ctx, dom.StableDOMOptions{}); err != nil {
		return err
	}
	return nil
}
