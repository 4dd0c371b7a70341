package catalog

import (
	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

func init() {
	known := append(commonKnown("lever"), []KnownQuestion{
		{Name: "Full Name", Aliases: []string{"Name"}, Kinds: textualKinds(),
			Value: fullNameValue, Policy: schemas.PolicyResolve},
		{Name: "Current Location", Aliases: []string{"Location"}, Kinds: textualKinds(),
			Value: cityStateValue, Policy: schemas.PolicyResolve},
		{Name: "Current Company", Aliases: []string{"Company", "Org"}, Kinds: textualKinds(),
			DataKey: "workExperiences[0].companyName", Policy: schemas.PolicySkipIfDataUnavailable},
		{Name: "Pronouns", Policy: schemas.PolicySkipIfDataUnavailable},
		{Name: "Additional Information", Aliases: []string{"Additional Info"},
			Kinds: []schemas.FieldKind{schemas.FieldTextarea}, Policy: schemas.PolicySkip,
			Notes: "free-form pitch, left to the user"},
	}...)

	register(&Catalog{
		Platform: "lever",
		Known:    known,
		Labels: map[string]*LabelDefinition{
			"name":     {Key: "name", Value: fullNameValue},
			"email":    {Key: "email", DataKey: "email"},
			"phone":    {Key: "phone", DataKey: "phoneNumber"},
			"location": {Key: "location", Value: cityStateValue},
			"company":  {Key: "company", DataKey: "workExperiences[0].companyName"},
			"linkedin": {Key: "linkedin", DataKey: "websites[0].url"},
			"website":  {Key: "website", DataKey: "websites[0].url"},
		},
	})
}

func fullNameValue(p *profile.Profile, q *schemas.Question) (any, error) {
	if p.FirstName == "" && p.LastName == "" {
		return nil, profile.ErrNoData
	}
	return p.FirstName + " " + p.LastName, nil
}
