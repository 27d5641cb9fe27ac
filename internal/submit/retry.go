package submit

import (
	"context"
	"errors"
	"log"
	"strings"

	"applyflow-engine/internal/backend"
)

// Service is the slice of the backend client the submission flow consumes.
type Service interface {
	SubmitApplication(ctx context.Context, jobURL string, resumeID int64) (*backend.SubmissionOutcome, error)
	ContinueApplication(ctx context.Context, code string, extraQA, fields map[string]string) (*backend.SubmissionOutcome, error)
	RetryAutomation(ctx context.Context, applicationID int64, prefs map[string]string) (*backend.SubmissionOutcome, error)
	SaveDomainPreferences(ctx context.Context, domain string, prefs map[string]string) error
	GetProfile(ctx context.Context) (*backend.ProfileEnvelope, error)
	SaveProfile(ctx context.Context, p backend.JobProfile) error
}

var (
	ErrUnansweredFields  = errors.New("every required field needs a non-empty answer")
	ErrNoApplicationCode = errors.New("no application code to continue against")
)

// Coordinator resubmits an application, either by continuing against the
// stable application code with extra answers, or by retrying against the
// numeric id after persisting durable per-domain preferences.
type Coordinator struct {
	Svc Service
}

// ContinueWithAnswers posts the collected answers. It refuses to issue the
// call until every open prompt has a non-empty answer.
func (c Coordinator) ContinueWithAnswers(ctx context.Context, code string, prompts []PromptField, answers map[string]string) (*backend.SubmissionOutcome, error) {
	if code == "" {
		return nil, ErrNoApplicationCode
	}
	extraQA, fields, err := splitAnswers(prompts, answers)
	if err != nil {
		return nil, err
	}
	return c.Svc.ContinueApplication(ctx, code, extraQA, fields)
}

// RetryWithPreferences saves preferences keyed by the posting's domain,
// then retries the automation. Preference persistence is fire-and-forget:
// a save failure is logged but does not block the retry.
func (c Coordinator) RetryWithPreferences(ctx context.Context, applicationID int64, domain string, prefs map[string]string) (*backend.SubmissionOutcome, error) {
	if domain != "" {
		if err := c.Svc.SaveDomainPreferences(ctx, domain, prefs); err != nil {
			log.Printf("[retry] save preferences failed domain=%s err=%v", domain, err)
		}
	}
	return c.Svc.RetryAutomation(ctx, applicationID, prefs)
}

// splitAnswers partitions answers into the question→answer map for ad-hoc
// questions and the name→value map for structured fields.
func splitAnswers(prompts []PromptField, answers map[string]string) (extraQA, fields map[string]string, err error) {
	extraQA = map[string]string{}
	fields = map[string]string{}
	for _, p := range prompts {
		v := strings.TrimSpace(answers[p.Key()])
		if v == "" {
			return nil, nil, ErrUnansweredFields
		}
		if p.Name != "" {
			fields[p.Name] = v
		} else {
			extraQA[p.Question] = v
		}
	}
	if len(extraQA) == 0 {
		extraQA = nil
	}
	if len(fields) == 0 {
		fields = nil
	}
	return extraQA, fields, nil
}
