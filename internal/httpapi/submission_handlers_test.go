package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"applyflow-engine/internal/backend"
	"applyflow-engine/internal/config"
	"applyflow-engine/internal/events"
	"applyflow-engine/internal/refresh"
	"applyflow-engine/internal/store"
	"applyflow-engine/internal/submit"
)

// fakeBackend serves both the submission flow and the refresher.
type fakeBackend struct {
	submitFn   func(jobURL string, resumeID int64) (*backend.SubmissionOutcome, error)
	continueFn func(code string, extraQA, fields map[string]string) (*backend.SubmissionOutcome, error)
	apps       []backend.JobApplication
	resumes    []backend.Resume
}

func okOutcome() *backend.SubmissionOutcome {
	return &backend.SubmissionOutcome{
		AutomationResult: &backend.AutomationResult{Status: backend.StatusSuccess},
	}
}

func (f *fakeBackend) SubmitApplication(_ context.Context, jobURL string, resumeID int64) (*backend.SubmissionOutcome, error) {
	if f.submitFn != nil {
		return f.submitFn(jobURL, resumeID)
	}
	return okOutcome(), nil
}

func (f *fakeBackend) ContinueApplication(_ context.Context, code string, extraQA, fields map[string]string) (*backend.SubmissionOutcome, error) {
	if f.continueFn != nil {
		return f.continueFn(code, extraQA, fields)
	}
	return okOutcome(), nil
}

func (f *fakeBackend) RetryAutomation(context.Context, int64, map[string]string) (*backend.SubmissionOutcome, error) {
	return okOutcome(), nil
}

func (f *fakeBackend) SaveDomainPreferences(context.Context, string, map[string]string) error {
	return nil
}

func (f *fakeBackend) GetProfile(context.Context) (*backend.ProfileEnvelope, error) {
	return &backend.ProfileEnvelope{Exists: false}, nil
}

func (f *fakeBackend) SaveProfile(context.Context, backend.JobProfile) error { return nil }

func (f *fakeBackend) ListApplications(context.Context, int, int) ([]backend.JobApplication, error) {
	return f.apps, nil
}

func (f *fakeBackend) RecentResumes(context.Context) ([]backend.Resume, error) {
	return f.resumes, nil
}

func newTestMux(t *testing.T, svc *fakeBackend) *http.ServeMux {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	var cfg config.Config
	config.Normalize(&cfg)
	cfg.Backend.BaseURL = "http://localhost:8080"

	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	hub := events.NewHub()
	registry := submit.NewRegistry()
	newSubmission := func() *submit.Controller {
		return registry.Create(svc, submit.ControllerOptions{
			Hub:                   hub,
			RequiredProfileFields: cfg.Profile.RequiredFields,
			MaxRounds:             cfg.Retry.MaxRounds,
			Timeout:               5 * time.Second,
		})
	}

	return NewMux(Deps{
		DB:            db.Pool,
		Hub:           hub,
		CfgVal:        &cfgVal,
		UserCfgPath:   filepath.Join(t.TempDir(), "config.yml"),
		LoadCfg:       func() (config.Config, error) { return cfg, nil },
		Submissions:   registry,
		NewSubmission: newSubmission,
		Refresher:     refresh.New(db.Pool, svc, hub, &cfgVal),
	})
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestCreateSubmission(t *testing.T) {
	mux := newTestMux(t, &fakeBackend{})

	w := doJSON(t, mux, http.MethodPost, "/submissions", map[string]any{
		"job_url":   "https://jobs.acme.com/1",
		"resume_id": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var snap submit.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	require.Equal(t, submit.StateSuccess, snap.State)
	require.NotEmpty(t, snap.ID)

	// the flow is fetchable afterwards
	w = doJSON(t, mux, http.MethodGet, "/submissions/"+snap.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSubmissionValidation(t *testing.T) {
	mux := newTestMux(t, &fakeBackend{})

	w := doJSON(t, mux, http.MethodPost, "/submissions", map[string]any{"resume_id": 5})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, mux, http.MethodPost, "/submissions", map[string]any{"job_url": "https://x.com/1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmissionNotFound(t *testing.T) {
	mux := newTestMux(t, &fakeBackend{})
	w := doJSON(t, mux, http.MethodGet, "/submissions/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmissionAnswersRound(t *testing.T) {
	svc := &fakeBackend{
		submitFn: func(string, int64) (*backend.SubmissionOutcome, error) {
			return &backend.SubmissionOutcome{
				ApplicationCode: "abc",
				AutomationResult: &backend.AutomationResult{
					Status:  backend.StatusUserInputRequired,
					Message: "[Veteran status?]",
				},
			}, nil
		},
	}
	mux := newTestMux(t, svc)

	w := doJSON(t, mux, http.MethodPost, "/submissions", map[string]any{
		"job_url":   "https://jobs.acme.com/1",
		"resume_id": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var snap submit.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	require.Equal(t, submit.StateFieldPromptOpen, snap.State)
	require.Len(t, snap.Prompts, 1)

	// blank answers are a 422, not a lost round
	w = doJSON(t, mux, http.MethodPost, "/submissions/"+snap.ID+"/answers", map[string]any{
		"answers": map[string]string{},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, mux, http.MethodPost, "/submissions/"+snap.ID+"/answers", map[string]any{
		"answers": map[string]string{"Veteran status?": "No"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	require.Equal(t, submit.StateSuccess, snap.State)
}

func TestApplicationsListEmpty(t *testing.T) {
	mux := newTestMux(t, &fakeBackend{})

	w := doJSON(t, mux, http.MethodGet, "/applications", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Applications []store.Application `json:"applications"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.NotNil(t, body.Applications)
	require.Empty(t, body.Applications)
}

func TestApplicationsRefreshAndResumes(t *testing.T) {
	svc := &fakeBackend{
		apps: []backend.JobApplication{
			{ID: 1, ApplicationCode: "abc", JobURL: "https://jobs.acme.com/1", Status: "submitted"},
		},
		resumes: []backend.Resume{{ID: 9, Name: "main.pdf"}},
	}
	mux := newTestMux(t, svc)

	w := doJSON(t, mux, http.MethodPost, "/applications/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Added int `json:"added"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	require.Equal(t, 1, res.Added)

	w = doJSON(t, mux, http.MethodGet, "/resumes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resumes struct {
		Resumes []backend.Resume `json:"resumes"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resumes))
	require.Len(t, resumes.Resumes, 1)
}

func TestConfigGet(t *testing.T) {
	mux := newTestMux(t, &fakeBackend{})

	w := doJSON(t, mux, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cfg config.Config
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cfg))
	require.Equal(t, 38471, cfg.App.Port)
}

func TestHealth(t *testing.T) {
	mux := newTestMux(t, &fakeBackend{})
	w := doJSON(t, mux, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
