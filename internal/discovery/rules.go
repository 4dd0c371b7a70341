package discovery

import "github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"

// Rules parameterize the discovery pass for one platform.
type Rules struct {
	// ContainerSelectors locate question containers, tried in order.
	ContainerSelectors []string
	// ExclusionSelectors drop containers that are navigation or chrome.
	ExclusionSelectors []string
	// ErrorSelectors identify an active validation error inside a container.
	ErrorSelectors []string
	// GroupSelectors map a repeating-group family to the selector of its
	// rendered containers.
	GroupSelectors map[schemas.GroupKey]string
	// AddButtonSelectors map a repeating-group family to its "Add" control.
	AddButtonSelectors map[schemas.GroupKey]string
	// DeleteButtonSelector locates the remove control inside a group container.
	DeleteButtonSelector string
	// FilenameSelector and ProgressSelector parameterize upload acceptance.
	FilenameSelector string
	ProgressSelector string
	// FileClearSelector locates the remove control of pre-populated uploads,
	// cleared during page initialization.
	FileClearSelector string
	// SubmitSelectors locate the page-advance control, tried in order.
	SubmitSelectors []string
	// CaptchaSelector identifies a visible CAPTCHA widget.
	CaptchaSelector string
	// PreloadCheckboxLabels are checked during page initialization when the
	// matching profile state holds (e.g. "I currently work here").
	PreloadCheckboxLabels []string
}

// RulesFor returns the discovery rules of a platform adapter.
func RulesFor(platform string) Rules {
	switch platform {
	case "workday":
		return Rules{
			ContainerSelectors: []string{
				`[data-automation-id="formField"]`,
				`fieldset[data-automation-id]`,
				`div[data-automation-id^="formField-"]`,
			},
			ExclusionSelectors: []string{
				`[data-automation-id="pageFooter"]`,
				`nav`, `header`,
			},
			ErrorSelectors: []string{
				`[data-automation-id="errorMessage"]`,
				`[id$="-error"]`,
				`[aria-invalid="true"]`,
			},
			GroupSelectors: map[schemas.GroupKey]string{
				schemas.GroupWork:      `[data-automation-id="workExperienceSection"] [data-automation-id^="panel"]`,
				schemas.GroupEducation: `[data-automation-id="educationSection"] [data-automation-id^="panel"]`,
				schemas.GroupWebsites:  `[data-automation-id="websiteSection"] [data-automation-id^="panel"]`,
			},
			AddButtonSelectors: map[schemas.GroupKey]string{
				schemas.GroupWork:      `[data-automation-id="workExperienceSection"] [data-automation-id="add-button"]`,
				schemas.GroupEducation: `[data-automation-id="educationSection"] [data-automation-id="add-button"]`,
				schemas.GroupWebsites:  `[data-automation-id="websiteSection"] [data-automation-id="add-button"]`,
			},
			DeleteButtonSelector: `[data-automation-id="panel-set-delete-button"]`,
			FilenameSelector:     `[data-automation-id="file-upload-successful"]`,
			ProgressSelector:     `[data-automation-id="loadingIndicator"]`,
			FileClearSelector:    `[data-automation-id="file-upload-item"] [data-automation-id="delete-file"]`,
			SubmitSelectors: []string{
				`[data-automation-id="bottom-navigation-next-button"]`,
				`[data-automation-id="submitButton"]`,
			},
			CaptchaSelector:       `iframe[src*="captcha" i], [class*="captcha" i]`,
			PreloadCheckboxLabels: []string{"I currently work here"},
		}
	case "greenhouse":
		return Rules{
			ContainerSelectors: []string{
				`.application--questions .text-input-wrapper`,
				`.application--questions .select__container`,
				`div.field`,
			},
			ExclusionSelectors: []string{`.job__description`, `footer`},
			ErrorSelectors:     []string{`.field-error-msg`, `[aria-invalid="true"]`},
			GroupSelectors: map[schemas.GroupKey]string{
				schemas.GroupWork:      `.experience--work .repeating-field`,
				schemas.GroupEducation: `.experience--education .repeating-field`,
			},
			AddButtonSelectors: map[schemas.GroupKey]string{
				schemas.GroupWork:      `.experience--work .add-another`,
				schemas.GroupEducation: `.experience--education .add-another`,
			},
			DeleteButtonSelector: `.remove-field`,
			FilenameSelector:     `.chosen-file`,
			ProgressSelector:     `.progress-bar`,
			SubmitSelectors:      []string{`button[type="submit"]`, `#submit_app`},
			CaptchaSelector:      `iframe[src*="recaptcha"]`,
		}
	case "lever":
		return Rules{
			ContainerSelectors: []string{
				`.application-question`,
				`.application-field`,
			},
			ExclusionSelectors: []string{`.posting-header`, `footer`},
			ErrorSelectors:     []string{`.application-field-error`, `[aria-invalid="true"]`},
			GroupSelectors:     map[schemas.GroupKey]string{},
			AddButtonSelectors: map[schemas.GroupKey]string{},
			FilenameSelector:   `.filename`,
			ProgressSelector:   `.resume-upload-processing`,
			SubmitSelectors:    []string{`#btn-submit`, `button[type="submit"]`},
			CaptchaSelector:    `iframe[src*="hcaptcha"], iframe[src*="recaptcha"]`,
		}
	default:
		return Rules{
			ContainerSelectors: []string{`div.field`, `fieldset`},
			ErrorSelectors:     []string{`[aria-invalid="true"]`},
			SubmitSelectors:    []string{`button[type="submit"]`},
		}
	}
}
