package schemas

import (
	"fmt"
	"hash"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
)

// FieldKind classifies the interactive widget behind a discovered question.
type FieldKind string

const (
	FieldText        FieldKind = "text"
	FieldEmail       FieldKind = "email"
	FieldPassword    FieldKind = "password"
	FieldNumber      FieldKind = "number"
	FieldTel         FieldKind = "tel"
	FieldURL         FieldKind = "url"
	FieldSearch      FieldKind = "search"
	FieldDate        FieldKind = "date"
	FieldTextarea    FieldKind = "textarea"
	FieldHidden      FieldKind = "hidden"
	FieldFile        FieldKind = "file"
	FieldRadio       FieldKind = "radio"
	FieldCheckbox    FieldKind = "checkbox"
	FieldSelect      FieldKind = "select"
	FieldMultiselect FieldKind = "multiselect"
	FieldDropdown    FieldKind = "dropdown"
	FieldButton      FieldKind = "button"
	FieldUnknown     FieldKind = "unknown"
)

// IsTextual reports whether the kind is driven through FillInput.
func (k FieldKind) IsTextual() bool {
	switch k {
	case FieldText, FieldEmail, FieldPassword, FieldNumber, FieldTel,
		FieldURL, FieldSearch, FieldDate, FieldTextarea:
		return true
	}
	return false
}

// TargetAttr is the attribute the discovery pass stamps on elements so that
// later actions can address them even after unrelated DOM churn.
const TargetAttr = "data-ap-target"

// Locator addresses one element on the page. Either a raw CSS selector or a
// tag previously stamped by discovery.
type Locator struct {
	Selector string `json:"selector,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// CSS renders the locator as a CSS selector.
func (l Locator) CSS() string {
	if l.Tag != "" {
		return fmt.Sprintf(`[%s=%q]`, TargetAttr, l.Tag)
	}
	return l.Selector
}

// IsZero reports whether the locator addresses nothing.
func (l Locator) IsZero() bool { return l.Selector == "" && l.Tag == "" }

// FieldRef is one concrete element associated with a question. Elements found
// by the in-page pass carry a stamped Tag; elements found in static snapshots
// carry a Selector instead.
type FieldRef struct {
	Tag      string            `json:"tag,omitempty"`
	Selector string            `json:"selector,omitempty"`
	TagName  string            `json:"tagName"`
	Type     string            `json:"type,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Disabled bool              `json:"disabled,omitempty"`
}

// Locator returns the locator for this element, preferring the stamped tag.
func (f FieldRef) Locator() Locator {
	if f.Tag != "" {
		return Locator{Tag: f.Tag}
	}
	return Locator{Selector: f.Selector}
}

// GroupKey identifies a repeating-group family on an application page.
type GroupKey string

const (
	GroupWork      GroupKey = "workExperiences"
	GroupEducation GroupKey = "education"
	GroupWebsites  GroupKey = "websites"
	GroupNone      GroupKey = ""
)

// Question is one discovered logical field. Questions are rebuilt every
// iteration but carry an identity stable across rebuilds so corrections can
// re-locate them after the page mutates.
type Question struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	SubLabel string    `json:"subLabel,omitempty"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`

	// Fields are the associated elements in document order. Fields[0] is the
	// representative base field used for classification.
	Fields []FieldRef `json:"fields"`

	// ContainerTag addresses the question container on the page.
	ContainerTag         string `json:"containerTag"`
	ContainerFingerprint string `json:"containerFingerprint"`
	Occurrence           int    `json:"occurrence"`

	// Repeating-group membership, when the container sits inside one.
	Group        GroupKey `json:"group,omitempty"`
	ContainerIdx int      `json:"containerIdx"`

	// ErrorActive marks the question's container as currently showing a
	// validation error indicator.
	ErrorActive bool `json:"errorActive,omitempty"`
}

// BaseField returns the representative field, or a zero ref.
func (q *Question) BaseField() FieldRef {
	if len(q.Fields) == 0 {
		return FieldRef{}
	}
	return q.Fields[0]
}

// Locators returns the stamped locators of every associated field.
func (q *Question) Locators() []Locator {
	out := make([]Locator, 0, len(q.Fields))
	for _, f := range q.Fields {
		out = append(out, f.Locator())
	}
	return out
}

// ContainerLocator addresses the question container.
func (q *Question) ContainerLocator() Locator { return Locator{Tag: q.ContainerTag} }

var questionHasherPool = sync.Pool{
	New: func() interface{} { return fnv.New64a() },
}

// QuestionIdentity derives the stable identity string for a question from its
// label text, kind, container fingerprint and scoped occurrence index. Object
// identity is never used for correction tracking.
func QuestionIdentity(label string, kind FieldKind, containerFP string, occurrence int) string {
	h := questionHasherPool.Get().(hash.Hash64)
	defer func() {
		h.Reset()
		questionHasherPool.Put(h)
	}()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(label))))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(containerFP))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.Itoa(occurrence)))
	return strconv.FormatUint(h.Sum64(), 16)
}

// OptionInfo describes one selectable option surfaced by a choice widget,
// collected in inspect mode.
type OptionInfo struct {
	Tag     string  `json:"tag,omitempty"`
	Label   string  `json:"label"`
	Value   string  `json:"value,omitempty"`
	Checked bool    `json:"checked,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// PageKind classifies the current page of a multi-step application flow.
type PageKind string

const (
	PageUnknown      PageKind = "unknown"
	PageApplication  PageKind = "application"
	PageConfirmation PageKind = "confirmation"
	PageJobSearch    PageKind = "job_search"
	PageNotExist     PageKind = "page_not_exist"
	PageCloudflare   PageKind = "cloudflare"
)
