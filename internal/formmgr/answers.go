package formmgr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

// NormalizeAnswer renders a resolved value as candidate answer strings.
func NormalizeAnswer(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return []string{s}
	case bool:
		if v {
			return []string{"Yes"}
		}
		return []string{"No"}
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, NormalizeAnswer(e)...)
		}
		return out
	case float64:
		return []string{profile.Stringify(v)}
	case int:
		return []string{strconv.Itoa(v)}
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

// IsSalaryLabel reports whether a question label triggers the salary
// heuristic. Locale variants come from configuration.
func IsSalaryLabel(label string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && contains(label, kw) {
			return true
		}
	}
	return false
}

var numericRe = regexp.MustCompile(`\d[\d,]*(\.\d+)?`)

// SalaryAnswer implements the last-attempt salary heuristic: keep the first
// numeric substring of the current value, else fall back to the mean of the
// user's salary range with a configured default.
func SalaryAnswer(value string, prof *profile.Profile, defaultSalary int) string {
	if m := numericRe.FindString(value); m != "" {
		return strings.ReplaceAll(m, ",", "")
	}
	mean := defaultSalary
	if prof != nil {
		mean = prof.MeanSalary(defaultSalary)
	}
	return strconv.Itoa(mean)
}

// ChoiceThreshold computes the similarity threshold for single-choice
// widgets. The final attempt of a required question drops to 0 and forces at
// least one selection.
func ChoiceThreshold(base, requiredBase float64, required, lastAttempt bool) (threshold float64, force bool) {
	if required && lastAttempt {
		return 0, true
	}
	if required {
		return requiredBase, false
	}
	return base, false
}

// CheckboxThreshold scales the base checkbox threshold by option count:
// smaller groups get stricter matching. The final required attempt drops to 0.
func CheckboxThreshold(base float64, optionCount int, required, lastAttempt bool) float64 {
	if required && lastAttempt {
		return 0
	}
	switch {
	case optionCount <= 2:
		return base + 15
	case optionCount <= 5:
		return base + 5
	default:
		return base
	}
}

// CheckboxConstraints derives min/max/exact selection counts from platform
// conventions: disability and veteran self-identification are single-select,
// ethnicity groups allow several, required groups need at least one.
func CheckboxConstraints(label string, optionCount int, required bool) (minSel, maxSel, exactSel int) {
	switch {
	case contains(label, "disability") || contains(label, "veteran"):
		return 0, 0, 1
	case contains(label, "ethnicity") || contains(label, "race"):
		if required {
			minSel = 1
		}
		return minSel, optionCount, 0
	default:
		if required {
			minSel = 1
		}
		return minSel, 0, 0
	}
}
