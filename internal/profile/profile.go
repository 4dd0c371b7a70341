// Package profile models the persisted user profile document the resolver
// answers from: identity, ordered address/education/work/resume sequences with
// primary indices, skills, salary expectations, demographics and feature
// flags.
package profile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Address is one entry of the ordered address sequence.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Education is one entry of the ordered education sequence.
type Education struct {
	SchoolName   string `json:"schoolName" validate:"required"`
	DegreeID     string `json:"degreeId"`
	DisciplineID string `json:"disciplineId"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

// WorkExperience is one entry of the ordered work-experience sequence. An
// absent or future EndDate means currently working.
type WorkExperience struct {
	CompanyName string `json:"companyName" validate:"required"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// Website is one entry of the websites sequence.
type Website struct {
	Label string `json:"label"`
	URL   string `json:"url" validate:"required,url"`
}

// Resume is one entry of the resumes sequence.
type Resume struct {
	FileName   string `json:"fileName" validate:"required"`
	StoredPath string `json:"resumeStoredPath"`
	Tags       string `json:"tags"`
}

// SalaryExpectations holds the user's acceptable range.
type SalaryExpectations struct {
	Min int `json:"min" validate:"gte=0"`
	Max int `json:"max" validate:"gtefield=Min"`
}

// Demographics holds the self-identification answers. Veteran and disability
// are tri-state: true, false, or decline.
type Demographics struct {
	Gender           string `json:"gender"`
	Ethnicity        string `json:"ethnicity"`
	VeteranStatus    *bool  `json:"veteranStatus"`
	DisabilityStatus *bool  `json:"disabilityStatus"`
}

// Flags are the per-user feature toggles.
type Flags struct {
	UseLLMForAddress             bool `json:"useLLMForAddress"`
	UseLLMForResume              bool `json:"useLLMForResume"`
	EnableUserSkillsSelection    bool `json:"enableUserSkillsSelection"`
	EnableJobSkillsSelection     bool `json:"enableJobSkillsSelection"`
	EnableRelatedSkillsSelection bool `json:"enableRelatedSkillsSelection"`
}

// Profile is the persisted user profile document. raw holds the decoded JSON
// for path-based resolution alongside the typed view.
type Profile struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber"`

	Addresses         []Address `json:"addresses" validate:"dive"`
	PrimaryAddressIdx int       `json:"primaryAddressIdx"`

	Education       []Education      `json:"education" validate:"dive"`
	WorkExperiences []WorkExperience `json:"workExperiences" validate:"dive"`
	Websites        []Website        `json:"websites" validate:"dive"`

	Resumes          []Resume `json:"resumes" validate:"dive"`
	PrimaryResumeIdx int      `json:"primaryResumeIdx"`

	Skills             []string           `json:"skills"`
	SalaryExpectations SalaryExpectations `json:"salaryExpectations"`
	Demographics       Demographics       `json:"demographics"`
	Flags              Flags              `json:"featureFlags"`

	raw map[string]any
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates a profile document from a JSON file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a profile document.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := json.Unmarshal(data, &p.raw); err != nil {
		return nil, fmt.Errorf("decode profile document: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate enforces the schema constraints plus the primary index invariant
// 0 <= primary < length on each indexed sequence.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("profile schema: %w", err)
	}
	if len(p.Addresses) > 0 && (p.PrimaryAddressIdx < 0 || p.PrimaryAddressIdx >= len(p.Addresses)) {
		return fmt.Errorf("profile: primaryAddressIdx %d out of range [0,%d)", p.PrimaryAddressIdx, len(p.Addresses))
	}
	if len(p.Resumes) > 0 && (p.PrimaryResumeIdx < 0 || p.PrimaryResumeIdx >= len(p.Resumes)) {
		return fmt.Errorf("profile: primaryResumeIdx %d out of range [0,%d)", p.PrimaryResumeIdx, len(p.Resumes))
	}
	return nil
}

// PrimaryAddress returns the primary address, or false when none exist.
func (p *Profile) PrimaryAddress() (Address, bool) {
	if len(p.Addresses) == 0 {
		return Address{}, false
	}
	return p.Addresses[p.PrimaryAddressIdx], true
}

// PrimaryResume returns the primary resume, or false when none exist.
func (p *Profile) PrimaryResume() (Resume, bool) {
	if len(p.Resumes) == 0 {
		return Resume{}, false
	}
	return p.Resumes[p.PrimaryResumeIdx], true
}

// GroupLen returns the length of a repeating-group sequence by its canonical
// key.
func (p *Profile) GroupLen(group string) int {
	switch group {
	case "workExperiences":
		return len(p.WorkExperiences)
	case "education":
		return len(p.Education)
	case "websites":
		return len(p.Websites)
	default:
		return 0
	}
}

// MeanSalary is the arithmetic mean of the user's salary range, defaulting
// when the range is absent.
func (p *Profile) MeanSalary(fallback int) int {
	s := p.SalaryExpectations
	if s.Min == 0 && s.Max == 0 {
		return fallback
	}
	return (s.Min + s.Max) / 2
}
