package dom

import (
	"context"
	"fmt"
	"time"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// SelectFieldOptions tunes SelectField.
type SelectFieldOptions struct {
	Threshold        float64
	UseAverage       bool
	SelectAtLeastOne bool
	Mode             ChoiceMode
	Timeout          time.Duration
}

// SelectField drives a native <select>: rank the option texts, assign the
// value through the native setter with input+change events, and verify.
func (d *Driver) SelectField(ctx context.Context, loc schemas.Locator, answers []string, opts SelectFieldOptions) (ChoiceResult, error) {
	resolved, err := d.Resolve(ctx, loc, ResolveOptions{Timeout: opts.Timeout})
	if err != nil {
		return ChoiceResult{}, err
	}
	sel := resolved.CSS()

	var options []schemas.OptionInfo
	if err := d.eval(ctx, selectOptionsJS(sel), &options); err != nil {
		return ChoiceResult{}, err
	}
	if len(options) == 0 {
		return ChoiceResult{}, fmt.Errorf("%w: select has no options", ErrLocatorNotFound)
	}

	// Placeholder options with empty values are never selectable answers.
	selectable := make([]schemas.OptionInfo, 0, len(options))
	for _, opt := range options {
		if opt.Value != "" {
			selectable = append(selectable, opt)
		}
	}
	if len(selectable) == 0 {
		selectable = options
	}

	ranked := RankOptions(selectable, answers, opts.UseAverage)

	if opts.Mode == ModeInspect {
		return ChoiceResult{Success: true, Options: annotateScores(ranked)}, nil
	}

	best, ok := PickBest(ranked, opts.Threshold, opts.SelectAtLeastOne)
	if !ok {
		return ChoiceResult{Options: annotateScores(ranked), BestScore: ranked[0].Score}, ErrThresholdMiss
	}

	if err := d.eval(ctx, nativeSetJS(sel, best.Option.Value), nil); err != nil {
		return ChoiceResult{}, err
	}

	var current string
	if err := d.eval(ctx, readValueJS(sel), &current); err != nil {
		return ChoiceResult{}, err
	}
	if current != best.Option.Value {
		return ChoiceResult{Options: annotateScores(ranked)}, ErrFrameworkOverwrite
	}

	return ChoiceResult{
		Success:   true,
		Selected:  []string{best.Option.Label},
		BestScore: best.Score,
	}, nil
}
