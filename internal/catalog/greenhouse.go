package catalog

import (
	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

func init() {
	known := append(commonKnown("greenhouse"), []KnownQuestion{
		{Name: "Cover Letter", Aliases: []string{"Cover Letter (optional)"},
			Kinds:  []schemas.FieldKind{schemas.FieldFile, schemas.FieldTextarea, schemas.FieldButton},
			Policy: schemas.PolicySkip, Notes: "optional on greenhouse, skipped rather than uploading the resume twice"},
		{Name: "Preferred Name", Aliases: []string{"Preferred First Name"}, Kinds: textualKinds(),
			DataKey: "firstName", Policy: schemas.PolicyResolve},
		{Name: "Are you legally authorized to work", Aliases: []string{"Work Authorization"},
			Kinds: choiceKinds(),
			Value: func(p *profile.Profile, q *schemas.Question) (any, error) { return "Yes", nil },
			Policy: schemas.PolicyResolve},
		{Name: "Will you now or in the future require sponsorship", Aliases: []string{"Require Sponsorship"},
			Kinds: choiceKinds(),
			Value: func(p *profile.Profile, q *schemas.Question) (any, error) { return "No", nil },
			Policy: schemas.PolicyResolve},
	}...)

	register(&Catalog{
		Platform: "greenhouse",
		Known:    known,
		Labels: map[string]*LabelDefinition{
			"first_name":  {Key: "first_name", DataKey: "firstName"},
			"last_name":   {Key: "last_name", DataKey: "lastName"},
			"email":       {Key: "email", DataKey: "email"},
			"phone":       {Key: "phone", DataKey: "phoneNumber"},
			"location":    {Key: "location", Value: cityStateValue},
			"linkedin":    {Key: "linkedin", DataKey: "websites[0].url"},
			"website":     {Key: "website", DataKey: "websites[0].url"},
			"school":      {Key: "school", DataKey: "education[0].schoolName"},
			"degree":      {Key: "degree", DataKey: "education[0].degreeId"},
			"discipline":  {Key: "discipline", DataKey: "education[0].disciplineId"},
			"current_company": {Key: "current_company", DataKey: "workExperiences[0].companyName"},
			"current_title":   {Key: "current_title", DataKey: "workExperiences[0].title"},
		},
	})
}

func cityStateValue(p *profile.Profile, q *schemas.Question) (any, error) {
	addr, ok := p.PrimaryAddress()
	if !ok || addr.City == "" {
		return nil, profile.ErrNoData
	}
	if addr.State == "" {
		return addr.City, nil
	}
	return addr.City + ", " + addr.State, nil
}
