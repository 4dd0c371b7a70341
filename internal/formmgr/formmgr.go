// Package formmgr translates a resolved answer into the concrete widget
// action for its field kind and executes it through the page driver.
package formmgr

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/discovery"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/dom"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

// pageDriver is the slice of the dom driver the manager dispatches through.
type pageDriver interface {
	FillInput(ctx context.Context, loc schemas.Locator, value string, opts dom.FillOptions) (dom.FillResult, error)
	RadioSelect(ctx context.Context, container schemas.Locator, answers []string, opts dom.RadioOptions) (dom.ChoiceResult, error)
	CheckboxSelect(ctx context.Context, container schemas.Locator, values []string, opts dom.CheckboxOptions) (dom.ChoiceResult, error)
	CheckboxSelectBool(ctx context.Context, container schemas.Locator, state bool, opts dom.CheckboxOptions) (dom.ChoiceResult, error)
	DropdownSelect(ctx context.Context, trigger schemas.Locator, answers []string, opts dom.DropdownOptions) (dom.DropdownResult, error)
	SelectField(ctx context.Context, loc schemas.Locator, answers []string, opts dom.SelectFieldOptions) (dom.ChoiceResult, error)
	Multiselect(ctx context.Context, input, chips schemas.Locator, values []string, opts dom.MultiselectOptions) (dom.MultiselectResult, error)
	Upload(ctx context.Context, input schemas.Locator, paths []string, opts dom.UploadOptions) (dom.UploadResult, error)
}

// Manager executes resolved answers for one platform.
type Manager struct {
	log   *zap.Logger
	cfg   config.ResolverConfig
	drv   pageDriver
	rules discovery.Rules
	prof  *profile.Profile
}

// New creates a form manager.
func New(logger *zap.Logger, cfg config.ResolverConfig, drv pageDriver, rules discovery.Rules, prof *profile.Profile) *Manager {
	return &Manager{
		log:   logger.Named("formmgr"),
		cfg:   cfg,
		drv:   drv,
		rules: rules,
		prof:  prof,
	}
}

// Execute applies one resolved answer. attempt counts from 1; lastAttempt
// relaxes thresholds for required questions so a choice is guaranteed when
// possible.
func (m *Manager) Execute(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult, attempt, maxAttempts int) schemas.ExecResult {
	if res.Status != schemas.ResolutionAnswered {
		return schemas.ExecErr(fmt.Sprintf("cannot execute %s resolution", res.Status))
	}
	lastAttempt := attempt >= maxAttempts
	target := m.target(q, res)

	switch {
	case q.Kind.IsTextual():
		return m.execText(ctx, q, res, target, lastAttempt)
	case q.Kind == schemas.FieldRadio:
		return m.execRadio(ctx, q, res, lastAttempt)
	case q.Kind == schemas.FieldCheckbox:
		return m.execCheckbox(ctx, q, res, lastAttempt)
	case q.Kind == schemas.FieldDropdown:
		return m.execDropdown(ctx, q, res, target, lastAttempt)
	case q.Kind == schemas.FieldSelect:
		return m.execSelect(ctx, q, res, target, lastAttempt)
	case q.Kind == schemas.FieldMultiselect:
		return m.execMultiselect(ctx, q, res, target)
	case q.Kind == schemas.FieldFile:
		return m.execFile(ctx, res, target)
	default:
		return schemas.ExecErr(fmt.Sprintf("unsupported field kind %q", q.Kind))
	}
}

// target picks the element the action addresses: the resolver's first locator
// when present, else the question's base field.
func (m *Manager) target(q *schemas.Question, res schemas.ResolutionResult) schemas.Locator {
	for _, loc := range res.Locators {
		if !loc.IsZero() {
			return loc
		}
	}
	return q.BaseField().Locator()
}

func (m *Manager) execText(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult, target schemas.Locator, lastAttempt bool) schemas.ExecResult {
	value := firstAnswer(NormalizeAnswer(res.Value))

	if lastAttempt && IsSalaryLabel(q.Label, m.cfg.SalaryKeywords) {
		value = SalaryAnswer(value, m.prof, int(m.cfg.DefaultSalary))
	}
	if value == "" {
		return schemas.ExecErr("empty value for text field")
	}

	spin := q.BaseField().Attrs["role"] == "spinbutton" || q.Kind == schemas.FieldNumber
	fill, err := m.drv.FillInput(ctx, target, value, dom.FillOptions{
		DispatchFocus: !spin,
		DispatchKeys:  true,
		Numeric:       spin,
	})
	if err != nil {
		return schemas.ExecErr(err.Error())
	}
	if !fill.Success {
		return schemas.ExecErr("fill did not verify")
	}
	return schemas.ExecOK()
}

func (m *Manager) execRadio(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult, lastAttempt bool) schemas.ExecResult {
	answers := NormalizeAnswer(res.Value)
	if len(answers) == 0 {
		return schemas.ExecErr("no candidate answers for radio group")
	}
	threshold, force := ChoiceThreshold(m.cfg.RadioThreshold, m.cfg.RadioRequiredThreshold, q.Required, lastAttempt)

	out, err := m.drv.RadioSelect(ctx, q.ContainerLocator(), answers, dom.RadioOptions{
		Threshold:        threshold,
		SelectAtLeastOne: force,
	})
	if err != nil {
		return execErrWithOptions(err, out.Options)
	}
	if !out.Success {
		return execErrWithOptions(fmt.Errorf("radio selection failed"), out.Options)
	}
	return schemas.ExecOK()
}

func (m *Manager) execCheckbox(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult, lastAttempt bool) schemas.ExecResult {
	if b, ok := res.Value.(bool); ok {
		out, err := m.drv.CheckboxSelectBool(ctx, q.ContainerLocator(), b, dom.CheckboxOptions{})
		if err != nil {
			return execErrWithOptions(err, out.Options)
		}
		return schemas.ExecOK()
	}

	values := NormalizeAnswer(res.Value)
	if len(values) == 0 {
		return schemas.ExecErr("no candidate values for checkbox group")
	}

	optionCount := len(q.Fields)
	threshold := CheckboxThreshold(m.cfg.CheckboxBaseThreshold, optionCount, q.Required, lastAttempt)
	minSel, maxSel, exactSel := CheckboxConstraints(q.Label, optionCount, q.Required)

	out, err := m.drv.CheckboxSelect(ctx, q.ContainerLocator(), values, dom.CheckboxOptions{
		Threshold:       threshold,
		MinSelections:   minSel,
		MaxSelections:   maxSel,
		ExactSelections: exactSel,
	})
	if err != nil {
		return execErrWithOptions(err, out.Options)
	}
	if !out.Success {
		return execErrWithOptions(fmt.Errorf("checkbox selection failed"), out.Options)
	}
	return schemas.ExecOK()
}

func (m *Manager) execDropdown(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult, target schemas.Locator, lastAttempt bool) schemas.ExecResult {
	answers := NormalizeAnswer(res.Value)
	if len(answers) == 0 {
		return schemas.ExecErr("no candidate answers for dropdown")
	}
	threshold, force := ChoiceThreshold(m.cfg.DropdownThreshold, m.cfg.RadioRequiredThreshold, q.Required, lastAttempt)

	out, err := m.drv.DropdownSelect(ctx, target, answers, dom.DropdownOptions{
		Threshold:        threshold,
		Blacklist:        []string{"select one", "please select", "choose"},
		SelectAtLeastOne: force,
	})
	if err != nil {
		return execErrWithOptions(err, out.Ranked)
	}
	if !out.Success {
		return execErrWithOptions(fmt.Errorf("dropdown selection failed"), out.Ranked)
	}
	return schemas.ExecOK()
}

func (m *Manager) execSelect(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult, target schemas.Locator, lastAttempt bool) schemas.ExecResult {
	answers := NormalizeAnswer(res.Value)
	if len(answers) == 0 {
		return schemas.ExecErr("no candidate answers for select")
	}
	threshold, force := ChoiceThreshold(m.cfg.DropdownThreshold, m.cfg.RadioRequiredThreshold, q.Required, lastAttempt)

	out, err := m.drv.SelectField(ctx, target, answers, dom.SelectFieldOptions{
		Threshold:        threshold,
		SelectAtLeastOne: force,
	})
	if err != nil {
		return execErrWithOptions(err, out.Options)
	}
	if !out.Success {
		return execErrWithOptions(fmt.Errorf("select assignment failed"), out.Options)
	}
	return schemas.ExecOK()
}

func (m *Manager) execMultiselect(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult, target schemas.Locator) schemas.ExecResult {
	values := NormalizeAnswer(res.Value)
	if q.Required && len(values) == 0 {
		values = []string{"Other"}
	}
	if len(values) == 0 {
		return schemas.ExecErr("no values for multiselect")
	}

	out, err := m.drv.Multiselect(ctx, target, q.ContainerLocator(), values, dom.MultiselectOptions{
		SelectAllRelated: res.SelectAllRelated,
		MaxChips:         dom.MaxChipsAuto,
		RadioThreshold:   m.cfg.RadioThreshold,
		AvoidDuplicates:  true,
	})
	if err != nil {
		return schemas.ExecErr(err.Error())
	}
	if !out.Success {
		return schemas.ExecErr(fmt.Sprintf("multiselect ended with %d chips", len(out.Chips)))
	}
	return schemas.ExecOK()
}

func (m *Manager) execFile(ctx context.Context, res schemas.ResolutionResult, target schemas.Locator) schemas.ExecResult {
	paths := NormalizeAnswer(res.Value)
	if len(paths) == 0 {
		return schemas.ExecErr("no file paths to upload")
	}

	out, err := m.drv.Upload(ctx, target, paths, dom.UploadOptions{
		StatusSelector:  m.rules.FilenameSelector,
		SpinnerSelector: m.rules.ProgressSelector,
	})
	if err != nil {
		return schemas.ExecErr(err.Error())
	}
	if !out.Success {
		return schemas.ExecErr(fmt.Sprintf("%d of %d files not accepted", len(out.Failed), len(paths)))
	}
	return schemas.ExecOK()
}

func execErrWithOptions(err error, options []schemas.OptionInfo) schemas.ExecResult {
	out := schemas.ExecErr(err.Error())
	out.Meta.Options = options
	return out
}

func firstAnswer(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
