package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"applyflow-engine/internal/backend"
	"applyflow-engine/internal/submit"
)

type SubmissionsHandler struct {
	Registry *submit.Registry
	New      func() *submit.Controller
}

type createSubmissionReq struct {
	JobURL   string `json:"job_url"`
	ResumeID int64  `json:"resume_id"`
}

type answersReq struct {
	Answers map[string]string `json:"answers"`
}

type profileReq struct {
	Profile backend.JobProfile `json:"profile"`
}

type retryReq struct {
	Preferences map[string]string `json:"preferences"`
}

func (h SubmissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"submissions": h.Registry.Snapshots()})
}

// Create starts a new submission flow. The request blocks until the flow
// reaches its first resting state (a prompt, a gap, or a terminal outcome).
func (h SubmissionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.JobURL) == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_job_url", "job_url is required")
		return
	}
	if req.ResumeID == 0 {
		WriteError(w, r, http.StatusBadRequest, "missing_resume_id", "resume_id is required")
		return
	}

	c := h.New()
	err := c.Submit(r.Context(), req.JobURL, req.ResumeID)
	h.respond(w, r, c, err, http.StatusCreated)
}

// ByPath routes /submissions/{id} and /submissions/{id}/{action}.
func (h SubmissionsHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/submissions/")
	id, action, _ := strings.Cut(rest, "/")
	c, ok := h.Registry.Get(id)
	if !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such submission")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, c.Snapshot())
	case action == "answers" && r.Method == http.MethodPost:
		h.answers(w, r, c)
	case action == "profile" && r.Method == http.MethodPost:
		h.profile(w, r, c)
	case action == "cancel" && r.Method == http.MethodPost:
		h.cancel(w, r, c)
	case action == "retry" && r.Method == http.MethodPost:
		h.retryAutomation(w, r, c)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h SubmissionsHandler) answers(w http.ResponseWriter, r *http.Request, c *submit.Controller) {
	var req answersReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	err := c.SubmitAnswers(r.Context(), req.Answers)
	h.respond(w, r, c, err, http.StatusOK)
}

func (h SubmissionsHandler) profile(w http.ResponseWriter, r *http.Request, c *submit.Controller) {
	var req profileReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	err := c.SaveProfile(r.Context(), req.Profile)
	h.respond(w, r, c, err, http.StatusOK)
}

// cancel abandons whichever round is open.
func (h SubmissionsHandler) cancel(w http.ResponseWriter, r *http.Request, c *submit.Controller) {
	var err error
	switch c.Snapshot().State {
	case submit.StateProfileGapOpen:
		err = c.CancelProfileGap()
	default:
		err = c.CancelPrompt(r.Context())
	}
	h.respond(w, r, c, err, http.StatusOK)
}

func (h SubmissionsHandler) retryAutomation(w http.ResponseWriter, r *http.Request, c *submit.Controller) {
	var req retryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	err := c.RetryWithPreferences(r.Context(), req.Preferences)
	h.respond(w, r, c, err, http.StatusOK)
}

// respond maps controller errors to statuses. The snapshot is the body in
// every case where a flow exists, so clients always see the current state.
func (h SubmissionsHandler) respond(w http.ResponseWriter, r *http.Request, c *submit.Controller, err error, okStatus int) {
	switch {
	case err == nil:
		WriteJSON(w, okStatus, c.Snapshot())
	case errors.Is(err, submit.ErrBusy),
		errors.Is(err, submit.ErrNoPromptOpen),
		errors.Is(err, submit.ErrNoProfileGapOpen),
		errors.Is(err, submit.ErrNotRetryable),
		errors.Is(err, submit.ErrNoApplicationID):
		WriteError(w, r, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, submit.ErrUnansweredFields), errors.Is(err, submit.ErrNoApplicationCode):
		WriteError(w, r, http.StatusUnprocessableEntity, "invalid_answers", err.Error())
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			WriteError(w, r, http.StatusBadGateway, "backend_error", apiErr.Error())
			return
		}
		// transport failures and profile validation; 502 for the former
		if c.Snapshot().State == submit.StateProfileGapOpen {
			WriteError(w, r, http.StatusBadRequest, "invalid_profile", err.Error())
			return
		}
		WriteError(w, r, http.StatusBadGateway, "backend_unreachable", err.Error())
	}
}
