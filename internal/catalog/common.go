package catalog

import (
	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
)

func textualKinds() []schemas.FieldKind {
	return []schemas.FieldKind{
		schemas.FieldText, schemas.FieldEmail, schemas.FieldTel,
		schemas.FieldURL, schemas.FieldSearch, schemas.FieldTextarea,
	}
}

func choiceKinds() []schemas.FieldKind {
	return []schemas.FieldKind{
		schemas.FieldRadio, schemas.FieldCheckbox, schemas.FieldSelect,
		schemas.FieldDropdown, schemas.FieldMultiselect,
	}
}

// demographicValue resolves a demographics answer in the owning platform's
// wording.
func demographicValue(platform, field string) ValueFunc {
	return func(p *profile.Profile, q *schemas.Question) (any, error) {
		answers := p.DemographicAnswer(platform, field)
		if len(answers) == 0 {
			return nil, profile.ErrNoData
		}
		return answers, nil
	}
}

func salaryValue(p *profile.Profile, q *schemas.Question) (any, error) {
	s := p.SalaryExpectations
	if s.Min == 0 && s.Max == 0 {
		return nil, profile.ErrNoData
	}
	return p.MeanSalary(0), nil
}

func skillsValue(p *profile.Profile, q *schemas.Question) (any, error) {
	if len(p.Skills) == 0 {
		return nil, profile.ErrNoData
	}
	return p.Skills, nil
}

// commonKnown are the entries every ATS shares. Platform catalogs append
// their own entries after these; Match keeps authoring order on ties.
func commonKnown(platform string) []KnownQuestion {
	return []KnownQuestion{
		{Name: "First Name", Aliases: []string{"Given Name", "Legal First Name"}, Kinds: textualKinds(), DataKey: "firstName", Policy: schemas.PolicyResolve},
		{Name: "Last Name", Aliases: []string{"Family Name", "Surname", "Legal Last Name"}, Kinds: textualKinds(), DataKey: "lastName", Policy: schemas.PolicyResolve},
		{Name: "Email", Aliases: []string{"Email Address"}, Kinds: textualKinds(), DataKey: "email", Policy: schemas.PolicyResolve},
		{Name: "Phone", Aliases: []string{"Phone Number", "Mobile Number", "Phone Device Number"}, Kinds: textualKinds(), DataKey: "phoneNumber", Policy: schemas.PolicyResolve},

		{Name: "Address Line 1", Aliases: []string{"Street Address", "Address"}, DataKey: "addresses.street", Policy: schemas.PolicyResolve},
		{Name: "City", Aliases: []string{"Town"}, DataKey: "addresses.city", Policy: schemas.PolicyResolve},
		{Name: "State", Aliases: []string{"State / Province", "Province", "Region"}, DataKey: "addresses.state", Policy: schemas.PolicyResolve},
		{Name: "Postal Code", Aliases: []string{"Zip", "Zip Code", "Zip / Postal Code"}, DataKey: "addresses.postalCode", Policy: schemas.PolicyResolve},
		{Name: "Country", DataKey: "addresses.country", Policy: schemas.PolicyResolve},

		{Name: "School or University", Aliases: []string{"School", "University", "Institution"}, DataKey: "education.schoolName", Policy: schemas.PolicyResolve, Deletable: true},
		{Name: "Degree", Aliases: []string{"Degree Type"}, DataKey: "education.degreeId", Policy: schemas.PolicyResolve, Deletable: true},
		{Name: "Field of Study", Aliases: []string{"Discipline", "Major"}, DataKey: "education.disciplineId", Policy: schemas.PolicyResolve, Deletable: true},
		{Name: "Education Start Date", Aliases: []string{"From Date"}, Kinds: []schemas.FieldKind{schemas.FieldDate, schemas.FieldText, schemas.FieldNumber}, DataKey: "education.startDate", Policy: schemas.PolicyResolve, Deletable: true},
		{Name: "Education End Date", Aliases: []string{"To Date", "Graduation Date"}, Kinds: []schemas.FieldKind{schemas.FieldDate, schemas.FieldText, schemas.FieldNumber}, DataKey: "education.endDate", Policy: schemas.PolicyResolve, Deletable: true},

		{Name: "Company", Aliases: []string{"Company Name", "Employer"}, DataKey: "workExperiences.companyName", Policy: schemas.PolicyResolve, Deletable: true},
		{Name: "Job Title", Aliases: []string{"Title", "Role Title"}, DataKey: "workExperiences.title", Policy: schemas.PolicyResolve, Deletable: true},
		{Name: "Work Start Date", Kinds: []schemas.FieldKind{schemas.FieldDate, schemas.FieldText, schemas.FieldNumber}, DataKey: "workExperiences.startDate", Policy: schemas.PolicyResolve, Deletable: true},
		{Name: "Work End Date", Kinds: []schemas.FieldKind{schemas.FieldDate, schemas.FieldText, schemas.FieldNumber}, DataKey: "workExperiences.endDate", Policy: schemas.PolicyResolve, Deletable: true},
		{Name: "Role Description", Aliases: []string{"Responsibilities", "Description"}, Kinds: []schemas.FieldKind{schemas.FieldTextarea, schemas.FieldText}, DataKey: "workExperiences.description", Policy: schemas.PolicySkipIfDataUnavailable, Deletable: true},

		{Name: "Website", Aliases: []string{"Portfolio URL", "Website or Portfolio", "URL"}, DataKey: "websites.url", Policy: schemas.PolicySkipIfDataUnavailable, Deletable: true},
		{Name: "LinkedIn", Aliases: []string{"LinkedIn Profile", "LinkedIn URL"}, Kinds: textualKinds(), DataKey: "websites[0].url", Policy: schemas.PolicySkipIfDataUnavailable},

		{Name: "Resume", Aliases: []string{"Resume/CV", "CV", "Upload Resume", "Attach Resume"}, Kinds: []schemas.FieldKind{schemas.FieldFile, schemas.FieldButton}, DataKey: "resumes.resumeStoredPath", Policy: schemas.PolicyResolve},
		{Name: "Skills", Aliases: []string{"Top Skills", "Relevant Skills"}, DataKey: "skills.", Value: skillsValue, Policy: schemas.PolicyResolve},

		{Name: "Salary Expectations", Aliases: []string{"Desired Salary", "Expected Compensation", "Salary Requirements"}, Kinds: textualKinds(), Value: salaryValue, Policy: schemas.PolicySkipIfDataUnavailable},

		{Name: "Gender", Aliases: []string{"Gender Identity"}, Kinds: choiceKinds(), Value: demographicValue(platform, "gender"), Policy: schemas.PolicyResolve},
		{Name: "Ethnicity", Aliases: []string{"Race", "Race/Ethnicity", "What is your ethnicity"}, Kinds: choiceKinds(), Value: demographicValue(platform, "ethnicity"), Policy: schemas.PolicyResolve},
		{Name: "Veteran Status", Aliases: []string{"Protected Veteran Status", "Are you a veteran"}, Kinds: choiceKinds(), Value: demographicValue(platform, "veteranStatus"), Policy: schemas.PolicyResolve},
		{Name: "Disability Status", Aliases: []string{"Disability", "Do you have a disability"}, Kinds: choiceKinds(), Value: demographicValue(platform, "disabilityStatus"), Policy: schemas.PolicyResolve},

		{Name: "How did you hear about us", Aliases: []string{"How did you hear about this job"}, Policy: schemas.PolicySkip, Notes: "never informative, skipping avoids random source attribution"},
	}
}
