package submit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"applyflow-engine/internal/backend"
	"applyflow-engine/internal/config"
	"applyflow-engine/internal/events"
)

// State is where a submission currently sits. Success, Failed and
// ManualReview are terminal: the controller accepts a fresh Submit from any
// of them, but never resumes the finished flow.
type State string

const (
	StateIdle            State = "idle"
	StateSubmitting      State = "submitting"
	StateProfileGapOpen  State = "profile_gap_open"
	StateFieldPromptOpen State = "field_prompt_open"
	StateSuccess         State = "success"
	StateFailed          State = "failed"
	StateManualReview    State = "manual_review"
)

// Statuses under which finished attempts are recorded.
const (
	RecordSubmitted    = "submitted"
	RecordFailed       = "failed"
	RecordManualReview = "manual_review"
)

var (
	ErrBusy             = errors.New("a submission is already in flight")
	ErrNoPromptOpen     = errors.New("no field prompt is open")
	ErrNoProfileGapOpen = errors.New("no profile gap is open")
	ErrNoApplicationID  = errors.New("no application id to retry against")
	ErrNotRetryable     = errors.New("submission is not in a retryable state")
)

// Attempt is the durable record of a finished submission.
type Attempt struct {
	ApplicationID   int64
	ApplicationCode string
	JobURL          string
	ResumeID        int64
	Title           string
	Company         string
	Status          string
	Notes           string
	ScreenshotURL   string
}

// Recorder persists finished attempts to the local history cache.
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

// ControllerOptions wires a controller's collaborators. Everything except
// the service is optional.
type ControllerOptions struct {
	Recorder Recorder
	Hub      *events.Hub
	Rules    []config.PromptRule

	// Baseline profile fields required before any submission.
	RequiredProfileFields []string

	// MaxRounds bounds answer rounds before the flow is parked for manual
	// review. Zero means the default of 3.
	MaxRounds int

	// Timeout bounds each backend call. Zero means 60s.
	Timeout time.Duration

	// Domain derives the preference key from a job URL.
	Domain func(jobURL string) string

	// Enrich fetches a posting's title and company for display and history.
	// Best-effort; errors are swallowed.
	Enrich func(ctx context.Context, jobURL string) (title, company string)
}

// Controller drives one job application through submit, profile-gap,
// question-answer and retry rounds until a terminal outcome. All methods are
// safe for concurrent use; the Submitting state doubles as the busy flag, so
// at most one backend call is in flight per controller.
type Controller struct {
	svc    Service
	rec    Recorder
	hub    *events.Hub
	rules  []config.PromptRule
	gaps   GapResolver
	retry  Coordinator
	rounds int

	maxRounds int
	timeout   time.Duration
	domain    func(string) string
	enrich    func(context.Context, string) (string, string)

	mu              sync.Mutex
	id              string
	state           State
	jobURL          string
	resumeID        int64
	applicationID   int64
	applicationCode string
	prompts         []PromptField
	missingProfile  []string
	lastMessage     string
	lastErr         string
	title           string
	company         string
	screenshotURL   string
}

func NewController(id string, svc Service, opts ControllerOptions) *Controller {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Controller{
		svc:       svc,
		rec:       opts.Recorder,
		hub:       opts.Hub,
		rules:     opts.Rules,
		gaps:      GapResolver{Svc: svc, Required: opts.RequiredProfileFields},
		retry:     Coordinator{Svc: svc},
		maxRounds: opts.MaxRounds,
		timeout:   opts.Timeout,
		domain:    opts.Domain,
		enrich:    opts.Enrich,
		id:        id,
		state:     StateIdle,
	}
}

// Snapshot is the externally visible controller state.
type Snapshot struct {
	ID                   string        `json:"id"`
	State                State         `json:"state"`
	JobURL               string        `json:"job_url,omitempty"`
	ResumeID             int64         `json:"resume_id,omitempty"`
	Round                int           `json:"round"`
	ApplicationID        int64         `json:"application_id,omitempty"`
	ApplicationCode      string        `json:"application_code,omitempty"`
	Prompts              []PromptField `json:"prompts,omitempty"`
	MissingProfileFields []string      `json:"missing_profile_fields,omitempty"`
	Message              string        `json:"message,omitempty"`
	Error                string        `json:"error,omitempty"`
	PositionTitle        string        `json:"position_title,omitempty"`
	CompanyName          string        `json:"company_name,omitempty"`
	ScreenshotURL        string        `json:"screenshot_url,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		ID:                   c.id,
		State:                c.state,
		JobURL:               c.jobURL,
		ResumeID:             c.resumeID,
		Round:                c.rounds,
		ApplicationID:        c.applicationID,
		ApplicationCode:      c.applicationCode,
		Prompts:              append([]PromptField(nil), c.prompts...),
		MissingProfileFields: append([]string(nil), c.missingProfile...),
		Message:              c.lastMessage,
		Error:                c.lastErr,
		PositionTitle:        c.title,
		CompanyName:          c.company,
		ScreenshotURL:        c.screenshotURL,
	}
}

// Submit starts a new flow. Allowed from Idle and from any terminal state;
// a flow that is mid-round must be answered or cancelled first.
func (c *Controller) Submit(ctx context.Context, jobURL string, resumeID int64) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle, StateSuccess, StateFailed, StateManualReview:
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateSubmitting
	c.jobURL = jobURL
	c.resumeID = resumeID
	c.applicationID = 0
	c.applicationCode = ""
	c.prompts = nil
	c.missingProfile = nil
	c.rounds = 0
	c.lastMessage = ""
	c.lastErr = ""
	c.title = ""
	c.company = ""
	c.screenshotURL = ""
	c.mu.Unlock()
	c.publish()

	if c.enrich != nil {
		title, company := c.enrich(ctx, jobURL)
		c.mu.Lock()
		c.title, c.company = title, company
		c.mu.Unlock()
	}

	out, err := c.call(ctx, func(cctx context.Context) (*backend.SubmissionOutcome, error) {
		return c.svc.SubmitApplication(cctx, jobURL, resumeID)
	})
	return c.dispatch(ctx, out, err)
}

// SubmitAnswers posts the collected answers for the open prompt round and
// advances the flow on whatever the backend replies.
func (c *Controller) SubmitAnswers(ctx context.Context, answers map[string]string) error {
	c.mu.Lock()
	if c.state != StateFieldPromptOpen {
		c.mu.Unlock()
		return ErrNoPromptOpen
	}
	prompts := append([]PromptField(nil), c.prompts...)
	code := c.applicationCode
	appID := c.applicationID
	c.state = StateSubmitting
	c.rounds++
	c.mu.Unlock()
	c.publish()

	var out *backend.SubmissionOutcome
	var err error
	switch {
	case code != "":
		out, err = c.call(ctx, func(cctx context.Context) (*backend.SubmissionOutcome, error) {
			return c.retry.ContinueWithAnswers(cctx, code, prompts, answers)
		})
	case appID != 0:
		prefs := answersByQuestion(prompts, answers)
		out, err = c.call(ctx, func(cctx context.Context) (*backend.SubmissionOutcome, error) {
			return c.retry.RetryWithPreferences(cctx, appID, c.domainOf(), prefs)
		})
	default:
		err = ErrNoApplicationCode
	}

	// local validation failures reopen the prompt instead of burning the round
	if errors.Is(err, ErrUnansweredFields) || errors.Is(err, ErrNoApplicationCode) {
		c.mu.Lock()
		c.state = StateFieldPromptOpen
		c.rounds--
		c.mu.Unlock()
		c.publish()
		return err
	}
	return c.dispatch(ctx, out, err)
}

// CancelPrompt abandons the open prompt round. The application exists on the
// backend half-finished, so it is parked for manual review rather than
// discarded.
func (c *Controller) CancelPrompt(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateFieldPromptOpen {
		c.mu.Unlock()
		return ErrNoPromptOpen
	}
	c.state = StateManualReview
	notes := c.lastMessage
	if notes == "" {
		notes = "input round cancelled by user"
	}
	c.lastMessage = notes
	c.mu.Unlock()

	c.record(ctx, RecordManualReview, notes)
	c.publish()
	return nil
}

// SaveProfile validates and persists the completed baseline profile, then
// replays the held submission.
func (c *Controller) SaveProfile(ctx context.Context, p backend.JobProfile) error {
	c.mu.Lock()
	if c.state != StateProfileGapOpen {
		c.mu.Unlock()
		return ErrNoProfileGapOpen
	}
	missing := append([]string(nil), c.missingProfile...)
	jobURL, resumeID := c.jobURL, c.resumeID
	c.mu.Unlock()

	if err := c.gaps.Save(ctx, p, missing); err != nil {
		return err // gap stays open
	}

	c.mu.Lock()
	c.state = StateSubmitting
	c.missingProfile = nil
	c.mu.Unlock()
	c.publish()

	out, err := c.call(ctx, func(cctx context.Context) (*backend.SubmissionOutcome, error) {
		return c.svc.SubmitApplication(cctx, jobURL, resumeID)
	})
	return c.dispatch(ctx, out, err)
}

// CancelProfileGap abandons the held submission. Nothing was created on the
// backend, so nothing is recorded.
func (c *Controller) CancelProfileGap() error {
	c.mu.Lock()
	if c.state != StateProfileGapOpen {
		c.mu.Unlock()
		return ErrNoProfileGapOpen
	}
	c.state = StateIdle
	c.missingProfile = nil
	c.mu.Unlock()
	c.publish()
	return nil
}

// RetryWithPreferences re-runs a failed or parked automation after saving
// durable per-domain preferences.
func (c *Controller) RetryWithPreferences(ctx context.Context, prefs map[string]string) error {
	c.mu.Lock()
	switch c.state {
	case StateFailed, StateManualReview:
	default:
		c.mu.Unlock()
		return ErrNotRetryable
	}
	appID := c.applicationID
	if appID == 0 {
		c.mu.Unlock()
		return ErrNoApplicationID
	}
	c.state = StateSubmitting
	c.rounds++
	c.mu.Unlock()
	c.publish()

	out, err := c.call(ctx, func(cctx context.Context) (*backend.SubmissionOutcome, error) {
		return c.retry.RetryWithPreferences(cctx, appID, c.domainOf(), prefs)
	})
	return c.dispatch(ctx, out, err)
}

// call runs one backend operation under the per-call timeout.
func (c *Controller) call(ctx context.Context, fn func(context.Context) (*backend.SubmissionOutcome, error)) (*backend.SubmissionOutcome, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return fn(cctx)
}

// dispatch advances the state machine on a classified backend response.
func (c *Controller) dispatch(ctx context.Context, out *backend.SubmissionOutcome, err error) error {
	cls := Classify(out, err)

	// the profile-gap path reads the stored profile before committing
	var missing []string
	if cls.Outcome == OutcomeProfileIncomplete {
		missing = c.gaps.Missing(ctx, cls.MissingProfileFields)
	}

	c.mu.Lock()
	c.absorbLocked(out, cls.Result)
	rounds := c.rounds

	switch cls.Outcome {
	case OutcomeTransportError:
		// nothing durable happened; back off to idle so the user can retry
		c.state = StateIdle
		c.lastErr = cls.Err.Error()
		c.mu.Unlock()
		c.publish()
		log.Printf("[submit] id=%s transport error: %v", c.id, cls.Err)
		return cls.Err

	case OutcomeProfileIncomplete:
		c.state = StateProfileGapOpen
		c.missingProfile = missing
		c.mu.Unlock()
		c.publish()
		return nil

	case OutcomeStructuredFieldsNeeded:
		if rounds >= c.maxRounds {
			return c.parkLocked(ctx, fmt.Sprintf("input still required after %d rounds", rounds))
		}
		c.state = StateFieldPromptOpen
		c.prompts = PromptsFromStructured(cls.Fields)
		c.lastMessage = cls.Message
		c.mu.Unlock()
		c.publish()
		return nil

	case OutcomeAutomationInputNeeded:
		questions := ParseUnknownFields(cls.Message)
		if len(questions) == 0 {
			// unparseable message: park with the raw text so nothing is lost
			return c.parkLocked(ctx, cls.Message)
		}
		if rounds >= c.maxRounds {
			return c.parkLocked(ctx, fmt.Sprintf("input still required after %d rounds", rounds))
		}
		c.state = StateFieldPromptOpen
		c.prompts = PromptsFromQuestions(questions, cls.Options, c.rules)
		c.lastMessage = cls.Message
		c.mu.Unlock()
		c.publish()
		return nil

	case OutcomeAutomationFailed:
		c.state = StateFailed
		c.lastMessage = cls.Message
		c.mu.Unlock()
		c.record(ctx, RecordFailed, cls.Message)
		c.publish()
		return nil

	default: // automation_success, generic_success
		c.state = StateSuccess
		if cls.Result != nil {
			c.lastMessage = cls.Result.Message
		}
		c.mu.Unlock()
		c.record(ctx, RecordSubmitted, "")
		c.publish()
		return nil
	}
}

// parkLocked moves the flow to manual review and records it. Caller holds
// the lock; parkLocked releases it.
func (c *Controller) parkLocked(ctx context.Context, notes string) error {
	c.state = StateManualReview
	c.prompts = nil
	c.lastMessage = notes
	c.mu.Unlock()
	c.record(ctx, RecordManualReview, notes)
	c.publish()
	return nil
}

// absorbLocked folds identifiers and display data out of a response.
func (c *Controller) absorbLocked(out *backend.SubmissionOutcome, ar *backend.AutomationResult) {
	if out != nil {
		if code := out.Code(); code != "" {
			c.applicationCode = code
		}
		if app := out.Application; app != nil {
			if app.ID != 0 {
				c.applicationID = app.ID
			}
			if app.PositionTitle != "" {
				c.title = app.PositionTitle
			}
			if app.CompanyName != "" {
				c.company = app.CompanyName
			}
			if app.ScreenshotURL != "" {
				c.screenshotURL = app.ScreenshotURL
			}
		}
	}
	if ar != nil && ar.ApplicationID != 0 {
		c.applicationID = ar.ApplicationID
	}
}

func (c *Controller) record(ctx context.Context, status, notes string) {
	if c.rec == nil {
		return
	}
	c.mu.Lock()
	a := Attempt{
		ApplicationID:   c.applicationID,
		ApplicationCode: c.applicationCode,
		JobURL:          c.jobURL,
		ResumeID:        c.resumeID,
		Title:           c.title,
		Company:         c.company,
		Status:          status,
		Notes:           notes,
		ScreenshotURL:   c.screenshotURL,
	}
	c.mu.Unlock()

	if err := c.rec.RecordAttempt(ctx, a); err != nil {
		log.Printf("[submit] id=%s record attempt failed: %v", c.id, err)
		return
	}
	c.hub.Emit(c.id, events.TypeApplicationRecorded, map[string]any{
		"application_id":   a.ApplicationID,
		"application_code": a.ApplicationCode,
		"job_url":          a.JobURL,
		"status":           a.Status,
	})
}

func (c *Controller) publish() {
	if c.hub == nil {
		return
	}
	c.hub.Emit(c.id, events.TypeSubmissionState, c.Snapshot())
}

func (c *Controller) domainOf() string {
	c.mu.Lock()
	jobURL := c.jobURL
	c.mu.Unlock()
	if c.domain == nil {
		return ""
	}
	return c.domain(jobURL)
}

// answersByQuestion rekeys answers by question text for the preference map.
func answersByQuestion(prompts []PromptField, answers map[string]string) map[string]string {
	out := map[string]string{}
	for _, p := range prompts {
		if v, ok := answers[p.Key()]; ok {
			out[p.Question] = v
		}
	}
	return out
}
