package backend

import "fmt"

// Automation statuses the backend is known to report.
const (
	StatusSuccess            = "success"
	StatusSubmitted          = "submitted"
	StatusReadyForAutomation = "ready_for_automation"
	StatusRequiresInput      = "requires_input"
	StatusUserInputRequired  = "user_input_required"
	StatusFailed             = "failed"
)

// Error code carried by a 412 when the baseline profile is incomplete.
const CodeMissingJobProfileInfo = "missing_job_profile_info"

// SubmissionOutcome is the response shape shared by submit, continue and
// retry calls.
type SubmissionOutcome struct {
	Status           string            `json:"status,omitempty"`
	Success          bool              `json:"success,omitempty"`
	Message          string            `json:"message,omitempty"`
	AutomationResult *AutomationResult `json:"automation_result,omitempty"`
	MissingFields    []RequiredField   `json:"missing_fields,omitempty"`
	Application      *JobApplication   `json:"application,omitempty"`
	ApplicationCode  string            `json:"application_code,omitempty"`
}

// Code returns the stable application code, wherever the backend nested it.
func (o *SubmissionOutcome) Code() string {
	if o == nil {
		return ""
	}
	if o.Application != nil && o.Application.ApplicationCode != "" {
		return o.Application.ApplicationCode
	}
	return o.ApplicationCode
}

type AutomationResult struct {
	ApplicationID  int64            `json:"application_id,omitempty"`
	Status         string           `json:"status"`
	Message        string           `json:"message,omitempty"`
	RequiredInputs []RequiredField  `json:"required_inputs,omitempty"`
	Steps          []AutomationStep `json:"steps,omitempty"`

	// Option sets for questions referenced in Message, keyed by question
	// text. Carried explicitly with the result; never stashed globally.
	FieldOptions map[string][]string `json:"field_options,omitempty"`
}

// StepData returns a data value from the named automation step.
func (r *AutomationResult) StepData(step, key string) string {
	if r == nil {
		return ""
	}
	for _, s := range r.Steps {
		if s.Name == step {
			return s.Data[key]
		}
	}
	return ""
}

type AutomationStep struct {
	Name         string            `json:"name"`
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// RequiredField is a backend-declared structured input. Legacy responses
// identify fields by question text, newer ones by name.
type RequiredField struct {
	Name         string   `json:"name,omitempty"`
	Question     string   `json:"question,omitempty"`
	Label        string   `json:"label,omitempty"`
	Type         string   `json:"type,omitempty"` // text|select|checkbox|radio|textarea
	Options      []string `json:"options,omitempty"`
	Required     bool     `json:"required,omitempty"`
	CurrentValue string   `json:"current_value,omitempty"`
	HelpText     string   `json:"help_text,omitempty"`
}

// Key is the identifier answers are posted under.
func (f RequiredField) Key() string {
	if f.Question != "" {
		return f.Question
	}
	return f.Name
}

type JobApplication struct {
	ID              int64  `json:"id"`
	ApplicationCode string `json:"application_code,omitempty"`
	JobURL          string `json:"job_url"`
	ResumeID        int64  `json:"resume_id"`
	PositionTitle   string `json:"position_title,omitempty"`
	CompanyName     string `json:"company_name,omitempty"`
	Status          string `json:"application_status"`
	Notes           string `json:"notes,omitempty"`
	ScreenshotURL   string `json:"application_screenshot_url,omitempty"`
	AppliedAt       string `json:"applied_at,omitempty"`
}

type Resume struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
}

// JobProfile is the applicant's reusable baseline data used to prefill
// employer forms.
type JobProfile struct {
	PhoneNumber          string `json:"phone_number"`
	Country              string `json:"country"`
	City                 string `json:"city"`
	State                string `json:"state"`
	ZipCode              string `json:"zip_code"`
	Address              string `json:"address"`
	LinkedinURL          string `json:"linkedin_url"`
	PortfolioURL         string `json:"portfolio_url"`
	WorkAuthorization    string `json:"work_authorization"`
	RequiresSponsorship  bool   `json:"requires_sponsorship"`
	WillingToRelocate    bool   `json:"willing_to_relocate"`
	SalaryExpectationMin int    `json:"salary_expectation_min"`
	SalaryExpectationMax int    `json:"salary_expectation_max"`
	PreferredLocations   string `json:"preferred_locations"`
	AvailableStartDate   string `json:"available_start_date"`
	YearsOfExperience    int    `json:"years_of_experience"`
	Gender               string `json:"gender"`
	Ethnicity            string `json:"ethnicity"`
	VeteranStatus        string `json:"veteran_status"`
	DisabilityStatus     string `json:"disability_status"`
	SexualOrientation    string `json:"sexual_orientation"`
	TransgenderStatus    string `json:"transgender_status"`
	MostRecentDegree     string `json:"most_recent_degree"`
	GraduationYear       int    `json:"graduation_year"`
	University           string `json:"university"`
	Major                string `json:"major"`
}

// FieldEmpty reports whether a named baseline field has no value. Unknown
// names return false; the backend is the authority for fields the engine
// does not model.
func (p JobProfile) FieldEmpty(name string) bool {
	switch name {
	case "phone_number":
		return p.PhoneNumber == ""
	case "country":
		return p.Country == ""
	case "city":
		return p.City == ""
	case "state":
		return p.State == ""
	case "linkedin_url":
		return p.LinkedinURL == ""
	case "portfolio_url":
		return p.PortfolioURL == ""
	case "work_authorization":
		return p.WorkAuthorization == ""
	case "years_of_experience":
		return p.YearsOfExperience == 0
	case "most_recent_degree":
		return p.MostRecentDegree == ""
	default:
		return false
	}
}

type ProfileEnvelope struct {
	Exists  bool        `json:"exists"`
	Profile *JobProfile `json:"profile,omitempty"`
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode    int      `json:"-"`
	Code          string   `json:"error"`
	Message       string   `json:"message,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s (%d %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("backend: %d %s", e.StatusCode, e.Code)
}

// ProfileIncomplete reports whether this error is the 412 profile-gap
// signal.
func (e *APIError) ProfileIncomplete() bool {
	return e.StatusCode == 412 && e.Code == CodeMissingJobProfileInfo
}
