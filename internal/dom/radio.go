package dom

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// ChoiceMode switches a choice primitive between acting and inspecting.
type ChoiceMode string

const (
	ModeSelect  ChoiceMode = "select"
	ModeInspect ChoiceMode = "inspect"
)

// RadioOptions tunes RadioSelect.
type RadioOptions struct {
	// Threshold in [0,100]; negative means "no threshold" (top-ranked always
	// selected).
	Threshold        float64
	UseAverage       bool
	SelectAtLeastOne bool
	Mode             ChoiceMode
	Timeout          time.Duration
}

// ChoiceResult is the outcome of a radio/checkbox/dropdown selection.
type ChoiceResult struct {
	Success bool
	// Selected are the labels of the finally selected options.
	Selected []string
	// Options enumerates the discovered options (always set in inspect mode,
	// and on threshold misses for LLM prompt hints).
	Options []schemas.OptionInfo
	// BestScore is the score of the top-ranked option.
	BestScore float64
}

const radioInputSelector = `input[type="radio"], [role="radio"]`

// RadioSelect discovers the radio group under the container locator, ranks
// its option labels against the candidate answers and selects the best.
func (d *Driver) RadioSelect(ctx context.Context, container schemas.Locator, answers []string, opts RadioOptions) (ChoiceResult, error) {
	options, err := d.collectChoices(ctx, container, radioInputSelector, opts.Timeout)
	if err != nil {
		return ChoiceResult{}, err
	}
	if len(options) == 0 {
		return ChoiceResult{}, fmt.Errorf("%w: no radio options under %s", ErrLocatorNotFound, container.CSS())
	}

	ranked := RankOptions(options, answers, opts.UseAverage)

	if opts.Mode == ModeInspect {
		return ChoiceResult{Success: true, Options: annotateScores(ranked)}, nil
	}

	best, ok := PickBest(ranked, opts.Threshold, opts.SelectAtLeastOne)
	if !ok {
		return ChoiceResult{Options: annotateScores(ranked), BestScore: ranked[0].Score}, ErrThresholdMiss
	}

	if err := d.selectChoice(ctx, best.Option); err != nil {
		return ChoiceResult{}, err
	}

	checked, err := d.isChecked(ctx, best.Option.Tag)
	if err != nil {
		return ChoiceResult{}, err
	}
	if !checked {
		return ChoiceResult{Options: annotateScores(ranked)}, ErrFrameworkOverwrite
	}

	d.log.Debug("radio selected",
		zap.String("label", best.Option.Label), zap.Float64("score", best.Score))
	return ChoiceResult{
		Success:   true,
		Selected:  []string{best.Option.Label},
		BestScore: best.Score,
	}, nil
}

// collectChoices resolves the container and stamps + describes its choice
// inputs.
func (d *Driver) collectChoices(ctx context.Context, container schemas.Locator, inputSelector string, timeout time.Duration) ([]schemas.OptionInfo, error) {
	resolved, err := d.Resolve(ctx, container, ResolveOptions{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	var options []schemas.OptionInfo
	if err := d.eval(ctx, collectOptionsJS(resolved.CSS(), inputSelector, nextToken("opt")), &options); err != nil {
		return nil, err
	}
	return options, nil
}

// selectChoice clicks an option element, falling back to its label wrapper
// click via the synthetic sequence.
func (d *Driver) selectChoice(ctx context.Context, opt schemas.OptionInfo) error {
	var clicked bool
	if err := d.eval(ctx, clickJS(schemas.Locator{Tag: opt.Tag}.CSS()), &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: option %q", ErrLocatorNotFound, opt.Label)
	}
	return d.pause(ctx)
}

func (d *Driver) isChecked(ctx context.Context, tag string) (bool, error) {
	var checked bool
	if err := d.eval(ctx, checkedJS(schemas.Locator{Tag: tag}.CSS()), &checked); err != nil {
		return false, err
	}
	return checked, nil
}
