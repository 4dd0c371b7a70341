package discovery

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// compoundParts are the nested-label fragments that split a compound date
// widget into independent logical questions.
var compoundParts = []string{"day", "month", "year"}

// kindOf classifies one element record.
func kindOf(f rawField) schemas.FieldKind {
	switch f.TagName {
	case "select":
		return schemas.FieldSelect
	case "textarea":
		return schemas.FieldTextarea
	case "button":
		if f.Role == "combobox" || f.Attrs["aria-haspopup"] == "listbox" {
			return schemas.FieldDropdown
		}
		return schemas.FieldButton
	case "input":
		switch f.Type {
		case "radio":
			return schemas.FieldRadio
		case "checkbox":
			return schemas.FieldCheckbox
		case "file":
			return schemas.FieldFile
		case "email":
			return schemas.FieldEmail
		case "password":
			return schemas.FieldPassword
		case "number":
			return schemas.FieldNumber
		case "tel":
			return schemas.FieldTel
		case "url":
			return schemas.FieldURL
		case "search":
			return schemas.FieldSearch
		case "date":
			return schemas.FieldDate
		case "hidden":
			return schemas.FieldHidden
		}
		if f.Role == "combobox" || f.Attrs["aria-haspopup"] == "listbox" {
			if f.Attrs["aria-multiselectable"] == "true" || strings.Contains(strings.ToLower(f.Attrs["data-automation-id"]), "searchbox") {
				return schemas.FieldMultiselect
			}
			return schemas.FieldDropdown
		}
		if f.Role == "spinbutton" {
			return schemas.FieldDate
		}
		return schemas.FieldText
	default:
		switch f.Role {
		case "combobox", "listbox":
			return schemas.FieldDropdown
		case "spinbutton":
			return schemas.FieldDate
		}
		if f.TagName == "div" {
			return schemas.FieldTextarea
		}
		return schemas.FieldUnknown
	}
}

// baseFieldRank orders candidates for the representative field: native form
// controls first, then ARIA comboboxes, then buttons.
func baseFieldRank(f rawField) int {
	switch f.TagName {
	case "input", "select", "textarea":
		return 0
	}
	if f.Role == "combobox" || f.Role == "listbox" || f.Role == "spinbutton" {
		return 1
	}
	if f.TagName == "button" {
		return 2
	}
	return 3
}

// compoundPart returns the date fragment of a spin-button's nested label, or
// "" when the field is not part of a compound date widget.
func compoundPart(f rawField) string {
	if f.Role != "spinbutton" {
		return ""
	}
	lbl := strings.ToLower(f.NestedLbl)
	for _, part := range compoundParts {
		if strings.Contains(lbl, part) {
			return part
		}
	}
	return ""
}

func toFieldRef(f rawField) schemas.FieldRef {
	return schemas.FieldRef{
		Tag:      f.Tag,
		TagName:  f.TagName,
		Type:     f.Type,
		Attrs:    f.Attrs,
		Disabled: f.Disabled,
	}
}

func containerFingerprint(source string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return strconv.FormatUint(h.Sum64(), 16)
}

// classify turns raw container records into logical questions: compound
// widgets split per date part, a representative base field selected, required
// computed, identity derived.
func classify(raw []rawContainer) []schemas.Question {
	var questions []schemas.Question
	occurrence := map[string]int{}

	appendQuestion := func(c rawContainer, label, subLabel string, fields []rawField) {
		if len(fields) == 0 {
			return
		}
		base := fields[0]
		for _, f := range fields[1:] {
			if baseFieldRank(f) < baseFieldRank(base) {
				base = f
			}
		}
		kind := kindOf(base)

		required := c.LegendStar || strings.HasSuffix(strings.TrimSpace(label), "*")
		for _, f := range fields {
			if f.Required {
				required = true
			}
		}

		refs := make([]schemas.FieldRef, 0, len(fields))
		refs = append(refs, toFieldRef(base))
		for _, f := range fields {
			if f.Tag != base.Tag {
				refs = append(refs, toFieldRef(f))
			}
		}

		fp := containerFingerprint(c.FPSource)
		occKey := strings.ToLower(label) + "|" + string(kind) + "|" + fp
		occ := occurrence[occKey]
		occurrence[occKey] = occ + 1

		questions = append(questions, schemas.Question{
			ID:                   schemas.QuestionIdentity(label, kind, fp, occ),
			Label:                strings.TrimSuffix(strings.TrimSpace(label), "*"),
			SubLabel:             subLabel,
			Kind:                 kind,
			Required:             required,
			Fields:               refs,
			ContainerTag:         c.Tag,
			ContainerFingerprint: fp,
			Occurrence:           occ,
			Group:                schemas.GroupKey(c.Group),
			ContainerIdx:         c.GroupIdx,
			ErrorActive:          c.ErrorActive,
		})
	}

	for _, c := range raw {
		// Partition fields into compound date parts and the rest. Radio and
		// checkbox groups stay one question regardless of element count.
		parts := map[string][]rawField{}
		var plain []rawField
		for _, f := range c.Fields {
			if part := compoundPart(f); part != "" {
				parts[part] = append(parts[part], f)
			} else {
				plain = append(plain, f)
			}
		}

		for _, part := range compoundParts {
			if fields, ok := parts[part]; ok {
				appendQuestion(c, c.Label, part, fields)
			}
		}
		appendQuestion(c, c.Label, "", plain)
	}
	return questions
}

// filterErrorActive keeps only questions whose container shows an active
// error indicator.
func filterErrorActive(questions []schemas.Question) []schemas.Question {
	out := questions[:0]
	for _, q := range questions {
		if q.ErrorActive {
			out = append(out, q)
		}
	}
	return out
}
