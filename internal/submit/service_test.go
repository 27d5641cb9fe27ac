package submit

import (
	"context"
	"sync"

	"applyflow-engine/internal/backend"
)

type continueCall struct {
	code    string
	extraQA map[string]string
	fields  map[string]string
}

// fakeService scripts backend responses for flow tests. Unset hooks answer
// with a bare success.
type fakeService struct {
	mu sync.Mutex

	submitFn   func(jobURL string, resumeID int64) (*backend.SubmissionOutcome, error)
	continueFn func(call continueCall) (*backend.SubmissionOutcome, error)
	retryFn    func(id int64, prefs map[string]string) (*backend.SubmissionOutcome, error)

	prefsErr   error
	profile    *backend.ProfileEnvelope
	profileErr error

	submitCalls   int
	continueCalls []continueCall
	retryCalls    []map[string]string
	savedPrefs    map[string]map[string]string
	savedProfiles []backend.JobProfile
}

func successOutcome() *backend.SubmissionOutcome {
	return &backend.SubmissionOutcome{
		AutomationResult: &backend.AutomationResult{Status: backend.StatusSuccess},
	}
}

func (f *fakeService) SubmitApplication(_ context.Context, jobURL string, resumeID int64) (*backend.SubmissionOutcome, error) {
	f.mu.Lock()
	f.submitCalls++
	f.mu.Unlock()
	if f.submitFn != nil {
		return f.submitFn(jobURL, resumeID)
	}
	return successOutcome(), nil
}

func (f *fakeService) ContinueApplication(_ context.Context, code string, extraQA, fields map[string]string) (*backend.SubmissionOutcome, error) {
	call := continueCall{code: code, extraQA: extraQA, fields: fields}
	f.mu.Lock()
	f.continueCalls = append(f.continueCalls, call)
	f.mu.Unlock()
	if f.continueFn != nil {
		return f.continueFn(call)
	}
	return successOutcome(), nil
}

func (f *fakeService) RetryAutomation(_ context.Context, id int64, prefs map[string]string) (*backend.SubmissionOutcome, error) {
	f.mu.Lock()
	f.retryCalls = append(f.retryCalls, prefs)
	f.mu.Unlock()
	if f.retryFn != nil {
		return f.retryFn(id, prefs)
	}
	return successOutcome(), nil
}

func (f *fakeService) SaveDomainPreferences(_ context.Context, domain string, prefs map[string]string) error {
	if f.prefsErr != nil {
		return f.prefsErr
	}
	f.mu.Lock()
	if f.savedPrefs == nil {
		f.savedPrefs = map[string]map[string]string{}
	}
	f.savedPrefs[domain] = prefs
	f.mu.Unlock()
	return nil
}

func (f *fakeService) GetProfile(context.Context) (*backend.ProfileEnvelope, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile != nil {
		return f.profile, nil
	}
	return &backend.ProfileEnvelope{Exists: false}, nil
}

func (f *fakeService) SaveProfile(_ context.Context, p backend.JobProfile) error {
	f.mu.Lock()
	f.savedProfiles = append(f.savedProfiles, p)
	f.mu.Unlock()
	return nil
}

// fakeRecorder collects recorded attempts.
type fakeRecorder struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (r *fakeRecorder) RecordAttempt(_ context.Context, a Attempt) error {
	r.mu.Lock()
	r.attempts = append(r.attempts, a)
	r.mu.Unlock()
	return nil
}

func (r *fakeRecorder) all() []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Attempt(nil), r.attempts...)
}
