package dom

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/similarity"
)

// MaxChipsAuto infers single-value semantics when the widget surfaces no
// checkbox panel.
const MaxChipsAuto = -1

// MultiselectOptions tunes Multiselect.
type MultiselectOptions struct {
	// ChipSelector picks chip elements inside the chip container.
	ChipSelector string
	// SelectAllRelated selects every checkbox the options widget surfaces
	// for a typed value rather than only the best match.
	SelectAllRelated bool
	// MaxChips caps the final chip count. MaxChipsAuto infers it.
	MaxChips        int
	MinChips        int
	ExactChips      int
	RadioThreshold  float64
	AvoidDuplicates bool
	Timeout         time.Duration
}

// MultiselectResult reports the final chip state.
type MultiselectResult struct {
	Success bool
	// Chips are the final normalized chip texts.
	Chips []string
	// Added are the values that produced a new chip.
	Added []string
	// Skipped are values dropped as duplicates or over the cap.
	Skipped []string
}

const defaultChipSelector = `[data-automation-id*="pill"], .pill, .chip, .tag, [class*="token"]`

var fileExtRe = regexp.MustCompile(`\.[a-z0-9]{1,5}$`)

// NormalizeChip normalizes a chip text for dedupe: lowercase, collapsed
// whitespace, trailing file extension stripped (resume chips render as file
// names).
func NormalizeChip(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return fileExtRe.ReplaceAllString(s, "")
}

// Multiselect drives a tokenized input with a companion chip container: type
// each value, commit it (Enter, then blur, then comma fallback), service any
// options widget that pops up, and finally validate the chip set against the
// exact/min/max constraints, trimming surplus chips.
func (d *Driver) Multiselect(ctx context.Context, input, chipContainer schemas.Locator, values []string, opts MultiselectOptions) (MultiselectResult, error) {
	inputLoc, err := d.Resolve(ctx, input, ResolveOptions{Timeout: opts.Timeout})
	if err != nil {
		return MultiselectResult{}, err
	}
	chipLoc, err := d.Resolve(ctx, chipContainer, ResolveOptions{Timeout: opts.Timeout})
	if err != nil {
		return MultiselectResult{}, err
	}

	chipSel := opts.ChipSelector
	if chipSel == "" {
		chipSel = defaultChipSelector
	}

	maxChips := opts.MaxChips
	sawCheckboxWidget := false

	result := MultiselectResult{}
	for _, value := range values {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		chips, err := d.readChips(ctx, chipLoc, chipSel)
		if err != nil {
			return result, err
		}
		norm := NormalizeChip(value)
		if opts.AvoidDuplicates && containsChip(chips, norm) {
			result.Skipped = append(result.Skipped, value)
			continue
		}
		if capReached(len(chips), maxChips, sawCheckboxWidget) {
			result.Skipped = append(result.Skipped, value)
			continue
		}

		widget, err := d.commitToken(ctx, inputLoc, chipLoc, chipSel, value, opts)
		if err != nil {
			return result, err
		}
		if widget == widgetCheckbox {
			sawCheckboxWidget = true
		}

		after, err := d.readChips(ctx, chipLoc, chipSel)
		if err != nil {
			return result, err
		}
		if len(after) > len(chips) || containsChip(after, norm) {
			result.Added = append(result.Added, value)
		}
	}

	// Final validation and surplus trim.
	chips, err := d.readChips(ctx, chipLoc, chipSel)
	if err != nil {
		return result, err
	}
	normalized := normalizeChips(chips)

	limit := effectiveLimit(opts.ExactChips, maxChips, sawCheckboxWidget)
	for limit > 0 && len(normalized) > limit {
		victim := normalized[len(normalized)-1]
		var removed bool
		if err := d.eval(ctx, removeChipJS(chipLoc.CSS(), chipSel, victim), &removed); err != nil {
			return result, err
		}
		if !removed {
			d.log.Debug("surplus chip could not be removed", zap.String("chip", victim))
			break
		}
		if err := d.pause(ctx); err != nil {
			return result, err
		}
		chips, err = d.readChips(ctx, chipLoc, chipSel)
		if err != nil {
			return result, err
		}
		normalized = normalizeChips(chips)
	}

	result.Chips = normalized
	result.Success = chipCountValid(len(normalized), opts.MinChips, limit, opts.ExactChips)
	return result, nil
}

type optionWidget int

const (
	widgetNone optionWidget = iota
	widgetCheckbox
	widgetRadio
)

// commitToken types one value and pushes it through the widget's acceptance
// path: Enter, then an options widget if one appears, then blur and comma
// fallbacks when no chip materialized.
func (d *Driver) commitToken(ctx context.Context, input, chipLoc schemas.Locator, chipSel, value string, opts MultiselectOptions) (optionWidget, error) {
	before, err := d.readChips(ctx, chipLoc, chipSel)
	if err != nil {
		return widgetNone, err
	}

	fill, err := d.FillInput(ctx, input, value, FillOptions{DispatchFocus: true, DispatchKeys: true, Timeout: opts.Timeout})
	if err != nil {
		return widgetNone, err
	}
	_ = fill

	sel := input.CSS()
	if err := chromedp.Run(ctx, chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery)); err != nil {
		return widgetNone, err
	}
	if err := d.pause(ctx); err != nil {
		return widgetNone, err
	}

	// Inspect any options widget the token surfaced.
	widget, err := d.serviceOptionsWidget(ctx, input, value, opts)
	if err != nil {
		return widget, err
	}
	if widget != widgetNone {
		return widget, nil
	}

	// No widget: rely on chip creation, with blur and comma-token fallbacks.
	norm := NormalizeChip(value)
	if ok, err := d.chipAppeared(ctx, chipLoc, chipSel, before, norm); err != nil || ok {
		return widgetNone, err
	}

	if err := d.eval(ctx, blurJS(sel), nil); err != nil {
		return widgetNone, err
	}
	if ok, err := d.chipAppeared(ctx, chipLoc, chipSel, before, norm); err != nil || ok {
		return widgetNone, err
	}

	if err := chromedp.Run(ctx, chromedp.SendKeys(sel, ",", chromedp.ByQuery)); err != nil {
		return widgetNone, err
	}
	return widgetNone, d.pause(ctx)
}

// serviceOptionsWidget handles the checkbox or radio panel some tokenized
// widgets open for a typed value.
func (d *Driver) serviceOptionsWidget(ctx context.Context, input schemas.Locator, value string, opts MultiselectOptions) (optionWidget, error) {
	options, err := d.nearbyWidgetOptions(ctx, input, checkboxInputSelector)
	if err != nil {
		return widgetNone, err
	}
	if len(options) > 0 {
		ranked := RankOptions(options, []string{value}, false)
		if opts.SelectAllRelated {
			for _, r := range ranked {
				if r.Score >= opts.RadioThreshold {
					if err := d.toggleTo(ctx, r.Option, true); err != nil {
						return widgetCheckbox, err
					}
				}
			}
		} else if best, ok := PickBest(ranked, opts.RadioThreshold, true); ok {
			if err := d.toggleTo(ctx, best.Option, true); err != nil {
				return widgetCheckbox, err
			}
		}
		return widgetCheckbox, nil
	}

	options, err = d.nearbyWidgetOptions(ctx, input, radioInputSelector)
	if err != nil {
		return widgetNone, err
	}
	if len(options) > 0 {
		ranked := RankOptions(options, []string{value}, false)
		if best, ok := PickBest(ranked, opts.RadioThreshold, true); ok {
			if err := d.selectChoice(ctx, best.Option); err != nil {
				return widgetRadio, err
			}
		}
		return widgetRadio, nil
	}

	return widgetNone, nil
}

// nearbyWidgetOptions finds the popup panel associated with the input via
// aria-controls/aria-owns, or the nearest visible listbox, and collects the
// given flavor of option inputs from it.
func (d *Driver) nearbyWidgetOptions(ctx context.Context, input schemas.Locator, inputSelector string) ([]schemas.OptionInfo, error) {
	var options []schemas.OptionInfo
	js := listboxOptionsJS(input.CSS(), nextToken("msw"))
	if err := d.eval(ctx, js, &options); err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, nil
	}
	// The listbox exists; re-collect with the requested flavor so checkbox
	// widgets are distinguished from plain option lists.
	var flavored []schemas.OptionInfo
	boxSel := schemas.Locator{Tag: options[0].Tag}.CSS()
	if err := d.eval(ctx, collectOptionsJS(boxSel+", [role=\"listbox\"]", inputSelector, nextToken("mso")), &flavored); err != nil {
		return nil, err
	}
	if len(flavored) > 0 {
		return flavored, nil
	}
	if inputSelector == checkboxInputSelector {
		return nil, nil
	}
	return options, nil
}

func (d *Driver) chipAppeared(ctx context.Context, chipLoc schemas.Locator, chipSel string, before []string, norm string) (bool, error) {
	ok, err := d.poll(ctx, textContainsJS(chipLoc.CSS()+" "+chipSel, norm), time.Second)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	after, err := d.readChips(ctx, chipLoc, chipSel)
	if err != nil {
		return false, err
	}
	return len(after) > len(before), nil
}

func (d *Driver) readChips(ctx context.Context, chipLoc schemas.Locator, chipSel string) ([]string, error) {
	var chips []string
	if err := d.eval(ctx, chipTextsJS(chipLoc.CSS(), chipSel), &chips); err != nil {
		return nil, err
	}
	return chips, nil
}

func normalizeChips(chips []string) []string {
	seen := make(map[string]bool, len(chips))
	out := make([]string, 0, len(chips))
	for _, c := range chips {
		n := NormalizeChip(c)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func containsChip(chips []string, norm string) bool {
	for _, c := range chips {
		if NormalizeChip(c) == norm {
			return true
		}
	}
	return false
}

// capReached applies the chip cap, resolving auto mode: without a checkbox
// widget the field has single-value semantics.
func capReached(current, maxChips int, sawCheckboxWidget bool) bool {
	limit := effectiveLimit(0, maxChips, sawCheckboxWidget)
	return limit > 0 && current >= limit
}

func effectiveLimit(exact, maxChips int, sawCheckboxWidget bool) int {
	if exact > 0 {
		return exact
	}
	if maxChips == MaxChipsAuto {
		if sawCheckboxWidget {
			return 0
		}
		return 1
	}
	return maxChips
}

func chipCountValid(n, min, limit, exact int) bool {
	if exact > 0 {
		return n == exact
	}
	if min > 0 && n < min {
		return false
	}
	if limit > 0 && n > limit {
		return false
	}
	return true
}

// ChipScoreAgainst is a test seam: the similarity of a chip to a value.
func ChipScoreAgainst(chip, value string) float64 {
	return similarity.Score(NormalizeChip(chip), NormalizeChip(value))
}
