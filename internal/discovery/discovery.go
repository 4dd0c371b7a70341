// Package discovery locates the logical questions of an application page:
// platform-specific container walking, label association, compound splitting,
// base-field classification and required detection.
package discovery

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/similarity"
)

// EvalFunc evaluates a JS expression in the tab and decodes the result.
type EvalFunc func(ctx context.Context, expr string, out any) error

// HTMLFunc captures the page's outer HTML.
type HTMLFunc func(ctx context.Context) (string, error)

// Discoverer runs the discovery pass for one platform.
type Discoverer struct {
	log      *zap.Logger
	platform string
	rules    Rules
	eval     EvalFunc
	html     HTMLFunc
	passSeq  atomic.Int64
}

// New creates a discoverer bound to one tab's evaluation functions.
func New(logger *zap.Logger, platform string, eval EvalFunc, html HTMLFunc) *Discoverer {
	return &Discoverer{
		log:      logger.Named("discovery"),
		platform: platform,
		rules:    RulesFor(platform),
		eval:     eval,
		html:     html,
	}
}

// Rules exposes the platform rules for the orchestrator (group sync, submit
// and captcha selectors).
func (d *Discoverer) Rules() Rules { return d.rules }

// GetQuestions runs a discovery pass. In errorOnly mode only questions whose
// container shows an active error indicator are returned and the orphan-label
// pass is skipped.
func (d *Discoverer) GetQuestions(ctx context.Context, errorOnly bool) ([]schemas.Question, error) {
	groupSels := make(map[string]string, len(d.rules.GroupSelectors))
	for g, sel := range d.rules.GroupSelectors {
		groupSels[string(g)] = sel
	}

	prefix := "dq" + strconv.FormatInt(d.passSeq.Add(1), 10)
	var raw []rawContainer
	js := extractJS(d.rules.ContainerSelectors, d.rules.ExclusionSelectors,
		d.rules.ErrorSelectors, groupSels, schemas.TargetAttr, prefix)
	if err := d.eval(ctx, js, &raw); err != nil {
		return nil, err
	}

	questions := classify(raw)
	if errorOnly {
		questions = filterErrorActive(questions)
		d.log.Debug("discovery pass (error-only)", zap.Int("questions", len(questions)))
		return questions, nil
	}

	orphans, err := d.orphanPass(ctx, questions)
	if err != nil {
		d.log.Warn("orphan-label pass failed", zap.Error(err))
	} else {
		questions = append(questions, orphans...)
	}

	d.log.Debug("discovery pass", zap.Int("questions", len(questions)))
	return questions, nil
}

// orphanPass parses the page snapshot and picks up labels with a `for`
// association whose text matches no already-discovered question. The orphan's
// control is addressed by a selector locator rather than a stamped tag.
func (d *Discoverer) orphanPass(ctx context.Context, found []schemas.Question) ([]schemas.Question, error) {
	if d.html == nil {
		return nil, nil
	}
	pageHTML, err := d.html(ctx)
	if err != nil {
		return nil, err
	}
	return OrphanLabels(pageHTML, found)
}

// OrphanLabels extracts labeled controls absent from the discovered set out
// of a static HTML snapshot.
func OrphanLabels(pageHTML string, found []schemas.Question) ([]schemas.Question, error) {
	doc, err := htmlquery.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}

	known := make([]string, 0, len(found))
	for _, q := range found {
		known = append(known, q.Label)
	}

	var orphans []schemas.Question
	occurrence := map[string]int{}
	for _, labelNode := range htmlquery.Find(doc, `//label[@for]`) {
		text := strings.TrimSpace(htmlquery.InnerText(labelNode))
		if text == "" || coveredBy(known, text) {
			continue
		}
		forID := htmlquery.SelectAttr(labelNode, "for")
		control := htmlquery.FindOne(doc, `//*[@id=`+xpathString(forID)+`]`)
		if control == nil {
			continue
		}
		typ := strings.ToLower(htmlquery.SelectAttr(control, "type"))
		if typ == "hidden" || htmlquery.SelectAttr(control, "disabled") != "" {
			continue
		}

		kind := kindOf(rawField{
			TagName: control.Data,
			Type:    typ,
			Role:    strings.ToLower(htmlquery.SelectAttr(control, "role")),
			Attrs:   map[string]string{"aria-haspopup": htmlquery.SelectAttr(control, "aria-haspopup")},
		})
		label := strings.TrimSuffix(text, "*")
		fp := containerFingerprint("orphan|" + forID)
		occKey := strings.ToLower(label) + "|" + string(kind)
		occ := occurrence[occKey]
		occurrence[occKey] = occ + 1

		selector := `#` + cssEscape(forID)
		orphans = append(orphans, schemas.Question{
			ID:       schemas.QuestionIdentity(label, kind, fp, occ),
			Label:    strings.TrimSpace(label),
			Kind:     kind,
			Required: strings.HasSuffix(text, "*") || htmlquery.SelectAttr(control, "aria-required") == "true" || htmlquery.SelectAttr(control, "required") != "",
			Fields: []schemas.FieldRef{{
				Selector: selector,
				TagName:  control.Data,
				Type:     typ,
				Attrs:    map[string]string{"id": forID},
			}},
			ContainerFingerprint: fp,
			Occurrence:           occ,
		})
	}
	return orphans, nil
}

// coveredBy reports whether an orphan label duplicates an already-discovered
// question label.
func coveredBy(known []string, label string) bool {
	for _, k := range known {
		if similarity.Score(k, label) >= 90 {
			return true
		}
	}
	return false
}

func xpathString(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return `'` + strings.ReplaceAll(s, `'`, ``) + `'`
}

func cssEscape(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteString("\\")
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
