package dom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/similarity"
)

// DropdownOptions tunes DropdownSelect.
type DropdownOptions struct {
	Threshold        float64
	UseAverage       bool
	Blacklist        []string
	SelectAtLeastOne bool
	Mode             ChoiceMode
	Timeout          time.Duration
}

// DropdownResult extends ChoiceResult with the early-exit signal.
type DropdownResult struct {
	ChoiceResult
	// EarlyExit is true when the trigger already displayed an acceptable
	// value and nothing was clicked. Ranked stays empty in that case.
	EarlyExit bool
	Ranked    []schemas.OptionInfo
}

// DropdownSelect drives an ARIA-style combobox: early-exit when the trigger
// already shows an acceptable value, otherwise open the listbox, rank the
// (portal-aware) options, click the best, and verify the trigger reflects it.
func (d *Driver) DropdownSelect(ctx context.Context, trigger schemas.Locator, answers []string, opts DropdownOptions) (DropdownResult, error) {
	resolved, err := d.Resolve(ctx, trigger, ResolveOptions{Timeout: opts.Timeout})
	if err != nil {
		return DropdownResult{}, err
	}
	sel := resolved.CSS()

	// Early exit. The floor is intentionally at least 95 regardless of the
	// caller's threshold.
	var display string
	if err := d.eval(ctx, triggerTextJS(sel), &display); err != nil {
		return DropdownResult{}, err
	}
	exitThreshold := opts.Threshold
	if exitThreshold < earlyExitFloor {
		exitThreshold = earlyExitFloor
	}
	if display != "" && similarity.BestScore(answers, display, opts.UseAverage) >= exitThreshold {
		d.log.Debug("dropdown early-exit, trigger already acceptable", zap.String("display", display))
		return DropdownResult{
			ChoiceResult: ChoiceResult{Success: true, Selected: []string{display}},
			EarlyExit:    true,
		}, nil
	}

	// Open the listbox.
	var clicked bool
	if err := d.eval(ctx, clickJS(sel), &clicked); err != nil {
		return DropdownResult{}, err
	}
	if !clicked {
		return DropdownResult{}, fmt.Errorf("%w: dropdown trigger %s", ErrLocatorNotFound, trigger.CSS())
	}

	options, err := d.waitListboxOptions(ctx, sel, opts.Timeout)
	if err != nil {
		return DropdownResult{}, err
	}

	options = filterBlacklist(options, opts.Blacklist)
	if len(options) == 0 {
		return DropdownResult{}, fmt.Errorf("%w: dropdown has no selectable options", ErrLocatorNotFound)
	}

	ranked := RankOptions(options, answers, opts.UseAverage)

	if opts.Mode == ModeInspect {
		// Close the listbox again so inspection leaves no visible state.
		_ = d.eval(ctx, clickJS(sel), nil)
		return DropdownResult{
			ChoiceResult: ChoiceResult{Success: true, Options: annotateScores(ranked)},
			Ranked:       annotateScores(ranked),
		}, nil
	}

	best, ok := PickBest(ranked, opts.Threshold, opts.SelectAtLeastOne)
	if !ok {
		_ = d.eval(ctx, clickJS(sel), nil)
		return DropdownResult{
			ChoiceResult: ChoiceResult{Options: annotateScores(ranked), BestScore: ranked[0].Score},
			Ranked:       annotateScores(ranked),
		}, ErrThresholdMiss
	}

	if err := d.selectChoice(ctx, best.Option); err != nil {
		return DropdownResult{}, err
	}

	// Verify the trigger now reflects the chosen value.
	if err := d.eval(ctx, triggerTextJS(sel), &display); err != nil {
		return DropdownResult{}, err
	}
	if similarity.Score(display, best.Option.Label) < 60 {
		d.log.Debug("dropdown trigger did not reflect selection",
			zap.String("chosen", best.Option.Label), zap.String("display", display))
		return DropdownResult{Ranked: annotateScores(ranked)}, ErrFrameworkOverwrite
	}

	return DropdownResult{
		ChoiceResult: ChoiceResult{
			Success:   true,
			Selected:  []string{best.Option.Label},
			BestScore: best.Score,
		},
		Ranked: annotateScores(ranked),
	}, nil
}

// waitListboxOptions polls for the opened listbox and stamps its options.
func (d *Driver) waitListboxOptions(ctx context.Context, triggerSel string, timeout time.Duration) ([]schemas.OptionInfo, error) {
	deadline := time.Now().Add(d.actionTimeout(timeout))
	token := nextToken("dd")
	for {
		var options []schemas.OptionInfo
		if err := d.eval(ctx, listboxOptionsJS(triggerSel, token), &options); err != nil {
			return nil, err
		}
		if len(options) > 0 {
			return options, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: listbox did not open", ErrLocatorNotFound)
		}
		if ok, err := d.poll(ctx, countJS(`[role="listbox"] [role="option"]`)+" > 0", 500*time.Millisecond); err != nil {
			return nil, err
		} else if !ok {
			continue
		}
	}
}

func filterBlacklist(options []schemas.OptionInfo, blacklist []string) []schemas.OptionInfo {
	if len(blacklist) == 0 {
		return options
	}
	out := options[:0]
	for _, opt := range options {
		norm := similarity.Normalize(opt.Label)
		banned := false
		for _, b := range blacklist {
			if b != "" && strings.Contains(norm, similarity.Normalize(b)) {
				banned = true
				break
			}
		}
		if !banned {
			out = append(out, opt)
		}
	}
	return out
}
