package profile

// DeclineToState is the canonical "prefer not to say" demographic answer.
const DeclineToState = "Decline to state"

// demographicLabels maps a tri-state demographic answer to the platform
// wording the self-identification widgets use. Keyed by platform name, then
// field, then "true" / "false" / "decline".
var demographicLabels = map[string]map[string]map[string]string{
	"workday": {
		"veteranStatus": {
			"true":    "I identify as one or more of the classifications of protected veteran listed above",
			"false":   "I am not a protected veteran",
			"decline": "I don't wish to answer",
		},
		"disabilityStatus": {
			"true":    "Yes, I have a disability, or have had one in the past",
			"false":   "No, I do not have a disability and have not had one in the past",
			"decline": "I do not want to answer",
		},
	},
	"greenhouse": {
		"veteranStatus": {
			"true":    "I identify as one or more of the classifications of a protected veteran",
			"false":   "I am not a protected veteran",
			"decline": "I don't wish to answer",
		},
		"disabilityStatus": {
			"true":    "Yes, I have a disability, or have had one in the past",
			"false":   "No, I do not have a disability and have not had one in the past",
			"decline": "I do not want to answer",
		},
	},
	"lever": {
		"veteranStatus": {
			"true":    "I identify as a veteran",
			"false":   "I am not a veteran",
			"decline": "Decline to self-identify",
		},
		"disabilityStatus": {
			"true":    "Yes, I have a disability",
			"false":   "No, I do not have a disability",
			"decline": "Decline to self-identify",
		},
	},
}

// DemographicLabel maps a tri-state answer (nil means decline) to the
// platform-specific label text. Unknown platforms fall back to workday
// wording; the similarity ranking absorbs small phrasing drift.
func DemographicLabel(platform, field string, answer *bool) string {
	table, ok := demographicLabels[platform]
	if !ok {
		table = demographicLabels["workday"]
	}
	byField, ok := table[field]
	if !ok {
		return DeclineToState
	}
	switch {
	case answer == nil:
		return byField["decline"]
	case *answer:
		return byField["true"]
	default:
		return byField["false"]
	}
}

// DemographicAnswer resolves a demographics field of the profile to the
// candidate answer strings for ranking.
func (p *Profile) DemographicAnswer(platform, field string) []string {
	d := p.Demographics
	switch field {
	case "gender":
		if d.Gender == "" {
			return []string{DeclineToState, "Decline To Self Identify"}
		}
		return []string{d.Gender}
	case "ethnicity":
		if d.Ethnicity == "" {
			return []string{DeclineToState, "Decline To Self Identify"}
		}
		return []string{d.Ethnicity}
	case "veteranStatus":
		return []string{DemographicLabel(platform, field, d.VeteranStatus)}
	case "disabilityStatus":
		return []string{DemographicLabel(platform, field, d.DisabilityStatus)}
	default:
		return nil
	}
}
