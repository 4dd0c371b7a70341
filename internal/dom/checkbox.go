package dom

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// CheckboxOptions tunes CheckboxSelect.
type CheckboxOptions struct {
	Threshold       float64
	UseAverage      bool
	MinSelections   int
	MaxSelections   int
	ExactSelections int
	Mode            ChoiceMode
	Timeout         time.Duration
}

const checkboxInputSelector = `input[type="checkbox"], [role="checkbox"]`

// CheckboxSelectBool drives bulk mode: force every checkbox in the group to
// the given state.
func (d *Driver) CheckboxSelectBool(ctx context.Context, container schemas.Locator, state bool, opts CheckboxOptions) (ChoiceResult, error) {
	options, err := d.collectChoices(ctx, container, checkboxInputSelector, opts.Timeout)
	if err != nil {
		return ChoiceResult{}, err
	}
	if len(options) == 0 {
		return ChoiceResult{}, fmt.Errorf("%w: no checkboxes under %s", ErrLocatorNotFound, container.CSS())
	}

	var selected []string
	for _, opt := range options {
		if err := d.toggleTo(ctx, opt, state); err != nil {
			return ChoiceResult{}, err
		}
		if state {
			selected = append(selected, opt.Label)
		}
	}
	return ChoiceResult{Success: true, Selected: selected}, nil
}

// CheckboxSelect drives semantic mode: rank option labels against candidate
// values, compute the target set under the selection constraints, then
// enforce that set authoritatively. Toggling every option to its target state
// (not just the chosen ones) makes re-runs idempotent.
func (d *Driver) CheckboxSelect(ctx context.Context, container schemas.Locator, values []string, opts CheckboxOptions) (ChoiceResult, error) {
	options, err := d.collectChoices(ctx, container, checkboxInputSelector, opts.Timeout)
	if err != nil {
		return ChoiceResult{}, err
	}
	if len(options) == 0 {
		return ChoiceResult{}, fmt.Errorf("%w: no checkboxes under %s", ErrLocatorNotFound, container.CSS())
	}

	ranked := RankOptions(options, values, opts.UseAverage)

	if opts.Mode == ModeInspect {
		return ChoiceResult{Success: true, Options: annotateScores(ranked)}, nil
	}

	targets := SelectTargets(ranked, opts.Threshold, opts.MinSelections, opts.MaxSelections, opts.ExactSelections)
	if len(targets) == 0 && opts.MinSelections > 0 {
		return ChoiceResult{Options: annotateScores(ranked)}, ErrThresholdMiss
	}

	wanted := make(map[string]bool, len(targets))
	var selected []string
	for _, t := range targets {
		wanted[t.Option.Tag] = true
		selected = append(selected, t.Option.Label)
	}

	for _, opt := range options {
		if err := d.toggleTo(ctx, opt, wanted[opt.Tag]); err != nil {
			return ChoiceResult{}, err
		}
	}

	// Verify the final set.
	for _, opt := range options {
		checked, err := d.isChecked(ctx, opt.Tag)
		if err != nil {
			return ChoiceResult{}, err
		}
		if checked != wanted[opt.Tag] {
			d.log.Debug("checkbox state did not stick",
				zap.String("label", opt.Label), zap.Bool("want", wanted[opt.Tag]))
			return ChoiceResult{Options: annotateScores(ranked)}, ErrFrameworkOverwrite
		}
	}

	var bestScore float64
	if len(targets) > 0 {
		bestScore = targets[0].Score
	}
	return ChoiceResult{Success: true, Selected: selected, BestScore: bestScore}, nil
}

// toggleTo clicks an option only when its current state differs from the
// target state.
func (d *Driver) toggleTo(ctx context.Context, opt schemas.OptionInfo, state bool) error {
	checked, err := d.isChecked(ctx, opt.Tag)
	if err != nil {
		return err
	}
	if checked == state {
		return nil
	}
	return d.selectChoice(ctx, opt)
}
