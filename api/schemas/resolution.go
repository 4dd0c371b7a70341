package schemas

// ActionPolicy tells the resolver what to do with a matched known question.
type ActionPolicy string

const (
	PolicyResolve               ActionPolicy = "RESOLVE"
	PolicySkip                  ActionPolicy = "SKIP"
	PolicyForceSkip             ActionPolicy = "FORCE_SKIP"
	PolicySkipIfDataUnavailable ActionPolicy = "SKIP_IF_DATA_UNAVAILABLE"
)

// AnswerSource records which resolution layer produced an answer.
type AnswerSource string

const (
	SourceElement      AnswerSource = "element"
	SourceLabel        AnswerSource = "label"
	SourceQuestionType AnswerSource = "question-type"
	SourceLLM          AnswerSource = "llm"
)

// ResolutionStatus tags the outcome of resolving a single question.
type ResolutionStatus string

const (
	ResolutionAnswered          ResolutionStatus = "ANSWERED"
	ResolutionSkipped           ResolutionStatus = "SKIPPED"
	ResolutionStructuralFailure ResolutionStatus = "STRUCTURAL_FAILURE"
	ResolutionError             ResolutionStatus = "ERROR"
	ResolutionNeedsLLM          ResolutionStatus = "NEEDS_LLM"
)

// CorrectionKind tags a structural correction emitted by the resolver.
type CorrectionKind string

const (
	CorrectionRemoveWorkContainer    CorrectionKind = "REMOVE_WORK_CONTAINER"
	CorrectionRemoveEduContainer     CorrectionKind = "REMOVE_EDU_CONTAINER"
	CorrectionRemoveWebsiteContainer CorrectionKind = "REMOVE_WEBSITE_CONTAINER"
	CorrectionMarkQuestionFailed     CorrectionKind = "MARK_QUESTION_FAILED"
)

// Correction is applied between orchestrator iterations. Container removals
// carry both the rendered container index and the profile (database) index so
// the failed index is never retried after a re-sync.
type Correction struct {
	Kind         CorrectionKind `json:"kind"`
	Group        GroupKey       `json:"group,omitempty"`
	ContainerIdx int            `json:"containerIdx,omitempty"`
	DBIdx        int            `json:"dbIdx,omitempty"`
	QuestionID   string         `json:"questionId,omitempty"`
}

// RemovalKindFor maps a repeating group to its removal correction kind.
func RemovalKindFor(g GroupKey) CorrectionKind {
	switch g {
	case GroupWork:
		return CorrectionRemoveWorkContainer
	case GroupEducation:
		return CorrectionRemoveEduContainer
	default:
		return CorrectionRemoveWebsiteContainer
	}
}

// ResolutionResult is the uniform outcome of the answer resolver.
// Exactly one variant is populated according to Status.
type ResolutionResult struct {
	Status ResolutionStatus `json:"status"`

	// ANSWERED
	Value    any            `json:"value,omitempty"`
	Locators []Locator      `json:"locators,omitempty"`
	Source   AnswerSource   `json:"source,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`

	// Per-answer hints carried to the form manager.
	SelectAllRelated bool `json:"selectAllRelated,omitempty"`

	// SKIPPED
	SkipReason string `json:"skipReason,omitempty"`

	// STRUCTURAL_FAILURE / ERROR
	Correction *Correction `json:"correction,omitempty"`
	Err        string      `json:"error,omitempty"`

	// NEEDS_LLM
	PromptHint string `json:"promptHint,omitempty"`
}

// Answered builds an ANSWERED result. Value must be non-nil; callers that have
// no data must emit Skipped or NeedsLLM instead.
func Answered(value any, src AnswerSource, locators ...Locator) ResolutionResult {
	return ResolutionResult{
		Status:   ResolutionAnswered,
		Value:    value,
		Source:   src,
		Locators: locators,
		Meta:     map[string]any{},
	}
}

// Skipped builds a SKIPPED result.
func Skipped(reason string) ResolutionResult {
	return ResolutionResult{Status: ResolutionSkipped, SkipReason: reason}
}

// StructuralFailure builds a STRUCTURAL_FAILURE carrying a correction.
func StructuralFailure(c Correction) ResolutionResult {
	return ResolutionResult{Status: ResolutionStructuralFailure, Correction: &c}
}

// ResolutionErr builds an ERROR result with an optional correction.
func ResolutionErr(msg string, c *Correction) ResolutionResult {
	return ResolutionResult{Status: ResolutionError, Err: msg, Correction: c}
}

// NeedsLLM builds a NEEDS_LLM result with a prompt hint.
func NeedsLLM(hint string, meta map[string]any) ResolutionResult {
	if meta == nil {
		meta = map[string]any{}
	}
	return ResolutionResult{Status: ResolutionNeedsLLM, PromptHint: hint, Meta: meta}
}

// ExecMeta carries auxiliary execution data, e.g. the enumerated options of a
// choice widget when selection failed.
type ExecMeta struct {
	Options []OptionInfo `json:"options,omitempty"`
}

// ExecResult is the uniform outcome of a form-manager dispatch.
type ExecResult struct {
	OK     bool     `json:"ok"`
	Reason string   `json:"reason,omitempty"`
	Meta   ExecMeta `json:"meta,omitempty"`
}

// ExecOK is the successful execution result.
func ExecOK() ExecResult { return ExecResult{OK: true} }

// ExecErr builds a failed execution result.
func ExecErr(reason string) ExecResult { return ExecResult{Reason: reason} }
