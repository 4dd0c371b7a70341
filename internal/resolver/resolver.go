// Package resolver decides one answer per discovered question, layering
// known-question catalog entries, label-embedding lookups and question-type
// heuristics before escalating to the LLM.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/catalog"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

// Services are the external collaborators the resolver may consult. All of
// them are optional; a nil or failing service degrades to the next layer.
type Services interface {
	// NearestAddress picks the profile address index closest to the job
	// locations.
	NearestAddress(ctx context.Context, jobLocations []string, addresses []profile.Address) (int, error)
	// BestResume picks the resume index best fitting the job description.
	BestResume(ctx context.Context, jobDescription string, resumes []profile.Resume) (int, error)
	// RankLabels orders the catalog's embedding keys by similarity to the
	// question label, best first.
	RankLabels(ctx context.Context, label string, keys []string) ([]string, error)
}

// PageState is the per-page correction bookkeeping shared with the
// orchestrator. Failed database indices persist across iterations of the
// current page and are scoped to the owning orchestrator instance.
type PageState struct {
	FailedDB       map[schemas.GroupKey]map[int]bool
	JobLocations   []string
	JobDescription string
	JobSkills      []string
}

// NewPageState creates empty per-page state.
func NewPageState() *PageState {
	return &PageState{FailedDB: map[schemas.GroupKey]map[int]bool{}}
}

// MarkFailed records a database index as permanently failed for a group.
func (s *PageState) MarkFailed(g schemas.GroupKey, dbIdx int) {
	if s.FailedDB[g] == nil {
		s.FailedDB[g] = map[int]bool{}
	}
	s.FailedDB[g][dbIdx] = true
}

// Failed returns the failed set for a group, never nil.
func (s *PageState) Failed(g schemas.GroupKey) map[int]bool {
	if s.FailedDB[g] == nil {
		return map[int]bool{}
	}
	return s.FailedDB[g]
}

// DBIndex maps a rendered container index to its profile (database) index by
// skipping failed indices: db = container + number of failed indices at or
// below the result.
func DBIndex(containerIdx int, failed map[int]bool) int {
	db := 0
	remaining := containerIdx
	for {
		if !failed[db] {
			if remaining == 0 {
				return db
			}
			remaining--
		}
		db++
	}
}

// Resolver resolves questions for one platform and one user.
type Resolver struct {
	log         *zap.Logger
	cfg         config.ResolverConfig
	prof        *profile.Profile
	cat         *catalog.Catalog
	svc         Services
	uploadsRoot string
	now         func() time.Time
}

// New creates a resolver. svc may be nil.
func New(logger *zap.Logger, cfg config.ResolverConfig, prof *profile.Profile, cat *catalog.Catalog, svc Services, uploadsRoot string) *Resolver {
	return &Resolver{
		log:         logger.Named("resolver"),
		cfg:         cfg,
		prof:        prof,
		cat:         cat,
		svc:         svc,
		uploadsRoot: uploadsRoot,
		now:         time.Now,
	}
}

// Resolve runs the resolution layers for one question. options, when known,
// enumerates the widget's choices for the escalation prompt.
func (r *Resolver) Resolve(ctx context.Context, q *schemas.Question, state *PageState, options []schemas.OptionInfo) schemas.ResolutionResult {
	if known, ok := r.cat.Match(q); ok {
		res, final := r.resolveKnown(ctx, q, known, state)
		if final {
			r.record(q, &res, "known", known.Name)
			return res
		}
	}

	if res, ok := r.resolveByLabel(ctx, q); ok {
		r.record(q, &res, "label", "")
		return res
	}

	if res, ok := r.resolveByQuestionType(ctx, q); ok {
		r.record(q, &res, "question-type", "")
		return res
	}

	res := schemas.NeedsLLM(promptHint(q, options), map[string]any{"questionId": q.ID})
	r.record(q, &res, "llm", "")
	return res
}

func (r *Resolver) record(q *schemas.Question, res *schemas.ResolutionResult, branch, key string) {
	if res.Meta == nil {
		res.Meta = map[string]any{}
	}
	res.Meta["branch"] = branch
	if key != "" {
		res.Meta["knownEntry"] = key
	}
	r.log.Debug("resolved",
		zap.String("label", q.Label),
		zap.String("status", string(res.Status)),
		zap.String("branch", branch))
}

// resolveKnown dispatches a matched known-question entry. The second return
// is false when the entry produced nothing and lower layers should run.
func (r *Resolver) resolveKnown(ctx context.Context, q *schemas.Question, known *catalog.KnownQuestion, state *PageState) (schemas.ResolutionResult, bool) {
	switch known.Policy {
	case schemas.PolicyForceSkip:
		return schemas.Skipped("force-skip policy"), true
	case schemas.PolicySkip:
		return schemas.Skipped("skip policy"), true
	}

	locators := answerLocators(q, known)

	switch {
	case strings.HasPrefix(known.DataKey, "addresses."):
		return r.resolveAddress(ctx, q, known, state, locators)
	case known.Group() != schemas.GroupNone:
		return r.resolveGrouped(q, known, state, locators)
	case strings.HasPrefix(known.DataKey, "resumes."):
		return r.resolveResume(ctx, q, state, locators)
	case strings.HasPrefix(known.DataKey, "skills"):
		return r.resolveSkills(q, state, locators)
	}

	value, err := r.evalEntry(known, q)
	if err != nil {
		if errors.Is(err, profile.ErrNoData) {
			if known.Policy == schemas.PolicySkipIfDataUnavailable {
				return schemas.Skipped("no data for " + known.Name), true
			}
			return schemas.ResolutionResult{}, false
		}
		return schemas.ResolutionErr(err.Error(), nil), true
	}
	res := schemas.Answered(value, schemas.SourceElement, locators...)
	return res, true
}

// evalEntry evaluates a known entry's value function or data path.
func (r *Resolver) evalEntry(known *catalog.KnownQuestion, q *schemas.Question) (any, error) {
	if known.Value != nil {
		return known.Value(r.prof, q)
	}
	if known.DataKey != "" {
		return r.prof.ResolveString(known.DataKey)
	}
	return nil, profile.ErrNoData
}

// resolveAddress yields a field of the nearest (LLM flag) or primary address.
func (r *Resolver) resolveAddress(ctx context.Context, q *schemas.Question, known *catalog.KnownQuestion, state *PageState, locators []schemas.Locator) (schemas.ResolutionResult, bool) {
	if len(r.prof.Addresses) == 0 {
		return schemas.Skipped("no addresses on file"), true
	}

	idx := r.prof.PrimaryAddressIdx
	if r.prof.Flags.UseLLMForAddress && r.svc != nil && len(state.JobLocations) > 0 {
		if best, err := r.svc.NearestAddress(ctx, state.JobLocations, r.prof.Addresses); err == nil && best >= 0 && best < len(r.prof.Addresses) {
			idx = best
		} else if err != nil {
			r.log.Warn("nearest-address lookup failed, using primary", zap.Error(err))
		}
	}

	field := strings.TrimPrefix(known.DataKey, "addresses.")
	value, err := resolveNestedField(r.prof, fmt.Sprintf("addresses[%d].%s", idx, field))
	if err != nil {
		return schemas.Skipped("no data for address field " + field), true
	}
	if field == "state" && q.Kind.IsTextual() {
		value = StripStateAbbrev(value)
	}

	res := schemas.Answered(value, schemas.SourceElement, locators...)
	res.Meta = map[string]any{"addressIdx": idx}
	return res, true
}

// resolveGrouped handles repeating-group keys with the container-to-database
// index arithmetic and structural corrections.
func (r *Resolver) resolveGrouped(q *schemas.Question, known *catalog.KnownQuestion, state *PageState, locators []schemas.Locator) (schemas.ResolutionResult, bool) {
	group := known.Group()
	failed := state.Failed(group)
	dbIdx := DBIndex(q.ContainerIdx, failed)

	if dbIdx >= r.prof.GroupLen(string(group)) {
		if known.Deletable {
			return schemas.StructuralFailure(schemas.Correction{
				Kind:         schemas.RemovalKindFor(group),
				Group:        group,
				ContainerIdx: q.ContainerIdx,
				DBIdx:        dbIdx,
			}), true
		}
		if q.Required && q.Kind == schemas.FieldDate {
			return schemas.Answered(r.todayFor(q), schemas.SourceElement, locators...), true
		}
		return schemas.ResolutionErr("no profile data for container", &schemas.Correction{
			Kind:       schemas.CorrectionMarkQuestionFailed,
			QuestionID: q.ID,
		}), true
	}

	field := known.DataKey[strings.Index(known.DataKey, ".")+1:]
	pathExpr := fmt.Sprintf("%s[%d].%s", group, dbIdx, field)
	value, err := resolveNestedField(r.prof, pathExpr)
	if err != nil {
		if known.Policy == schemas.PolicySkipIfDataUnavailable {
			return schemas.Skipped("no data at " + pathExpr), true
		}
		if q.Required && q.Kind == schemas.FieldDate {
			return schemas.Answered(r.todayFor(q), schemas.SourceElement, locators...), true
		}
		return schemas.Skipped("no data at " + pathExpr), true
	}

	if q.Kind == schemas.FieldDate && q.SubLabel != "" {
		if part, err := datePart(value, q.SubLabel); err == nil {
			value = part
		}
	}

	res := schemas.Answered(value, schemas.SourceElement, locators...)
	res.Meta = map[string]any{"dbIdx": dbIdx, "containerIdx": q.ContainerIdx}
	return res, true
}

// resolveResume yields the stored path of the best-fit (LLM flag) or primary
// resume, rooted under the uploads directory.
func (r *Resolver) resolveResume(ctx context.Context, q *schemas.Question, state *PageState, locators []schemas.Locator) (schemas.ResolutionResult, bool) {
	if len(r.prof.Resumes) == 0 {
		return schemas.Skipped("no resumes on file"), true
	}

	idx := r.prof.PrimaryResumeIdx
	if r.prof.Flags.UseLLMForResume && r.svc != nil && state.JobDescription != "" {
		if best, err := r.svc.BestResume(ctx, state.JobDescription, r.prof.Resumes); err == nil && best >= 0 && best < len(r.prof.Resumes) {
			idx = best
		} else if err != nil {
			r.log.Warn("best-resume lookup failed, using primary", zap.Error(err))
		}
	}

	resume := r.prof.Resumes[idx]
	stored := resume.StoredPath
	if stored == "" {
		stored = resume.FileName
	}
	res := schemas.Answered(path.Join(r.uploadsRoot, stored), schemas.SourceElement, locators...)
	res.Meta = map[string]any{"resumeIdx": idx}
	return res, true
}

// resolveSkills assembles the deduped skills union per the profile flags.
func (r *Resolver) resolveSkills(q *schemas.Question, state *PageState, locators []schemas.Locator) (schemas.ResolutionResult, bool) {
	var skills []string
	if r.prof.Flags.EnableUserSkillsSelection || q.Required {
		skills = append(skills, r.prof.Skills...)
	}
	if r.prof.Flags.EnableJobSkillsSelection {
		skills = append(skills, state.JobSkills...)
	}
	if q.Required && len(skills) == 0 {
		skills = append(skills, r.cfg.FallbackSkills...)
	}
	skills = dedupeFold(skills)
	if len(skills) == 0 {
		return schemas.Skipped("no skills to select"), true
	}

	res := schemas.Answered(skills, schemas.SourceElement, locators...)
	res.SelectAllRelated = r.prof.Flags.EnableRelatedSkillsSelection
	return res, true
}

// resolveByLabel asks the embedding service for the closest label key and
// evaluates its definition.
func (r *Resolver) resolveByLabel(ctx context.Context, q *schemas.Question) (schemas.ResolutionResult, bool) {
	if r.svc == nil {
		return schemas.ResolutionResult{}, false
	}
	keys := r.cat.LabelKeys()
	if len(keys) == 0 {
		return schemas.ResolutionResult{}, false
	}
	ranked, err := r.svc.RankLabels(ctx, q.Label, keys)
	if err != nil || len(ranked) == 0 {
		if err != nil {
			r.log.Warn("label ranking failed", zap.Error(err))
		}
		return schemas.ResolutionResult{}, false
	}

	value, err := r.cat.ResolveLabel(ranked[0], r.prof, q)
	if err != nil || value == nil {
		return schemas.ResolutionResult{}, false
	}

	if b, isBool := value.(bool); isBool {
		if q.Kind == schemas.FieldCheckbox && len(q.Fields) > 1 {
			// True multi-checkbox groups keep the raw boolean.
		} else if b {
			value = "Yes"
		} else {
			value = "No"
		}
	}

	res := schemas.Answered(value, schemas.SourceLabel, q.Locators()...)
	res.Meta = map[string]any{"labelKey": ranked[0]}
	return res, true
}

// resolveByQuestionType applies the kind heuristics of the third layer.
func (r *Resolver) resolveByQuestionType(ctx context.Context, q *schemas.Question) (schemas.ResolutionResult, bool) {
	label := strings.ToLower(q.Label)

	switch {
	case q.Kind == schemas.FieldDate || (q.Kind.IsTextual() && strings.Contains(label, "date")):
		if strings.Contains(label, "birth") {
			// No birth data is stored; the LLM layer gets it with context.
			return schemas.ResolutionResult{}, false
		}
		return schemas.Answered(r.todayFor(q), schemas.SourceQuestionType, q.Locators()...), true

	case q.Kind == schemas.FieldFile:
		if len(r.prof.Resumes) == 0 {
			return schemas.ResolutionResult{}, false
		}
		resume := r.prof.Resumes[r.prof.PrimaryResumeIdx]
		stored := resume.StoredPath
		if stored == "" {
			stored = resume.FileName
		}
		return schemas.Answered(path.Join(r.uploadsRoot, stored), schemas.SourceQuestionType, q.Locators()...), true

	case q.Kind == schemas.FieldCheckbox && len(q.Fields) == 1 && isConsentLabel(label, r.cfg.ConsentPhrases):
		return schemas.Answered(true, schemas.SourceQuestionType, q.Locators()...), true
	}

	return schemas.ResolutionResult{}, false
}

// todayFor renders today's date, honoring a compound date part sub-label.
func (r *Resolver) todayFor(q *schemas.Question) string {
	now := r.now()
	switch q.SubLabel {
	case "day":
		return profile.Day2(now)
	case "month":
		return profile.Month2(now)
	case "year":
		return profile.Year4(now)
	default:
		return now.Format("2006-01-02")
	}
}

// answerLocators prefers the question's own fields, extended by the entry's
// fallback locators.
func answerLocators(q *schemas.Question, known *catalog.KnownQuestion) []schemas.Locator {
	locators := q.Locators()
	locators = append(locators, known.Fallbacks...)
	return locators
}

func resolveNestedField(p *profile.Profile, pathExpr string) (string, error) {
	return p.ResolveString(pathExpr)
}

// datePart extracts the 2-digit day/month or 4-digit year from a stored date.
func datePart(value, part string) (string, error) {
	d, err := profile.ParseDate(value)
	if err != nil {
		return "", err
	}
	switch part {
	case "day":
		return profile.Day2(d), nil
	case "month":
		return profile.Month2(d), nil
	case "year":
		return profile.Year4(d), nil
	}
	return value, nil
}

// StripStateAbbrev removes a trailing parenthesized or comma-separated
// two-letter state abbreviation from a state name.
func StripStateAbbrev(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "("); i > 0 && strings.HasSuffix(s, ")") && len(s)-i == 4 {
		return strings.TrimSpace(s[:i])
	}
	if i := strings.LastIndex(s, ","); i > 0 {
		tail := strings.TrimSpace(s[i+1:])
		if len(tail) == 2 && tail == strings.ToUpper(tail) {
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

func isConsentLabel(label string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(label, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

func dedupeFold(values []string) []string {
	seen := map[string]bool{}
	out := values[:0]
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// promptHint builds the LLM escalation prompt for a question.
func promptHint(q *schemas.Question, options []schemas.OptionInfo) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(q.Label)
	sb.WriteString(" (")
	sb.WriteString(string(q.Kind))
	if q.Required {
		sb.WriteString(", required")
	}
	sb.WriteString(")")
	if len(options) > 0 {
		sb.WriteString("\nOptions:")
		for _, opt := range options {
			sb.WriteString("\n- ")
			sb.WriteString(opt.Label)
		}
	}
	return sb.String()
}
