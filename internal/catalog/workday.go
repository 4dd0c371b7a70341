package catalog

import (
	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

func init() {
	known := append(commonKnown("workday"), []KnownQuestion{
		{Name: "I currently work here", Kinds: []schemas.FieldKind{schemas.FieldCheckbox}, Policy: schemas.PolicyForceSkip,
			Notes: "preloaded during page initialization"},
		{Name: "Country Phone Code", Aliases: []string{"Phone Code"}, Kinds: []schemas.FieldKind{schemas.FieldDropdown, schemas.FieldSelect},
			Value: func(p *profile.Profile, q *schemas.Question) (any, error) {
				addr, ok := p.PrimaryAddress()
				if !ok || addr.Country == "" {
					return nil, profile.ErrNoData
				}
				return addr.Country, nil
			}, Policy: schemas.PolicyResolve},
		{Name: "Phone Device Type", Kinds: []schemas.FieldKind{schemas.FieldDropdown, schemas.FieldSelect},
			Value: func(p *profile.Profile, q *schemas.Question) (any, error) { return "Mobile", nil },
			Policy: schemas.PolicyResolve},
		{Name: "Have you previously worked for this company", Aliases: []string{"Are you a former employee"},
			Kinds: choiceKinds(),
			Value: func(p *profile.Profile, q *schemas.Question) (any, error) { return "No", nil },
			Policy: schemas.PolicyResolve},
		{Name: "Candidate Pronouns", Aliases: []string{"Pronouns"}, Policy: schemas.PolicySkipIfDataUnavailable},
	}...)

	register(&Catalog{
		Platform: "workday",
		Known:    known,
		Labels: map[string]*LabelDefinition{
			"first_name":         {Key: "first_name", DataKey: "firstName"},
			"last_name":          {Key: "last_name", DataKey: "lastName"},
			"email":              {Key: "email", DataKey: "email"},
			"phone":              {Key: "phone", DataKey: "phoneNumber"},
			"city":               {Key: "city", DataKey: "addresses[0].city"},
			"state":              {Key: "state", DataKey: "addresses[0].state"},
			"postal_code":        {Key: "postal_code", DataKey: "addresses[0].postalCode"},
			"country":            {Key: "country", DataKey: "addresses[0].country"},
			"linkedin":           {Key: "linkedin", DataKey: "websites[0].url"},
			"work_authorized":    {Key: "work_authorized", Static: "Yes"},
			"needs_sponsorship":  {Key: "needs_sponsorship", Static: "No"},
			"currently_employed": {Key: "currently_employed", Value: workdayCurrentlyEmployed},
		},
	})
}

// workdayCurrentlyEmployed reports whether any work experience is still open.
func workdayCurrentlyEmployed(p *profile.Profile, q *schemas.Question) (any, error) {
	for _, w := range p.WorkExperiences {
		if w.EndDate == "" {
			return true, nil
		}
	}
	return false, nil
}
