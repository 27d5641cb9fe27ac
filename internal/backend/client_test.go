package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, func() string { return "tok123" }, Options{
		RequestsPerSec: 1000, // don't rate-limit tests
		Burst:          1000,
	})
}

func TestSubmitApplicationRequest(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody submitRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(SubmissionOutcome{
			AutomationResult: &AutomationResult{Status: StatusSuccess},
		})
	})

	out, err := c.SubmitApplication(context.Background(), "https://jobs.acme.com/1", 5)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok123", gotAuth)
	require.Equal(t, "/api/job/apply", gotPath)
	require.Equal(t, "https://jobs.acme.com/1", gotBody.JobURL)
	require.Equal(t, int64(5), gotBody.ResumeID)
	require.Equal(t, StatusSuccess, out.AutomationResult.Status)
}

func TestProfileIncompleteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":          "missing_job_profile_info",
			"message":        "complete your job profile first",
			"missing_fields": []string{"linkedin_url", "work_authorization"},
		})
	})

	_, err := c.SubmitApplication(context.Background(), "https://jobs.acme.com/1", 5)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	require.True(t, apiErr.ProfileIncomplete())
	require.Equal(t, []string{"linkedin_url", "work_authorization"}, apiErr.MissingFields)
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.SubmitApplication(context.Background(), "https://jobs.acme.com/1", 5)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	require.Equal(t, 502, apiErr.StatusCode)
	require.Equal(t, "http_502", apiErr.Code)
}

func TestContinueApplicationPayload(t *testing.T) {
	var gotPath string
	var gotBody continueRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(SubmissionOutcome{
			AutomationResult: &AutomationResult{Status: StatusSuccess},
		})
	})

	extraQA := map[string]string{"Veteran status?": "No"}
	fields := map[string]string{"salary": "90000"}
	_, err := c.ContinueApplication(context.Background(), "code-1", extraQA, fields)
	require.NoError(t, err)
	require.Equal(t, "/api/job/continue/code-1", gotPath)
	require.Equal(t, extraQA, gotBody.ExtraQA)
	require.Equal(t, fields, gotBody.Fields)
}

func TestRecentResumesUnwraps(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/resume/recent", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resumes": []Resume{{ID: 1, Name: "main.pdf"}},
		})
	})

	resumes, err := c.RecentResumes(context.Background())
	require.NoError(t, err)
	require.Len(t, resumes, 1)
	require.Equal(t, "main.pdf", resumes[0].Name)
}

func TestListApplicationsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/job/applications", r.URL.Path)
		require.Equal(t, "50", r.URL.Query().Get("limit"))
		require.Equal(t, "10", r.URL.Query().Get("offset"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"applications": []JobApplication{{ID: 3, JobURL: "https://jobs.acme.com/1"}},
		})
	})

	apps, err := c.ListApplications(context.Background(), 50, 10)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.Equal(t, int64(3), apps[0].ID)
}

func TestSubmissionOutcomeCode(t *testing.T) {
	var o *SubmissionOutcome
	require.Equal(t, "", o.Code())

	o = &SubmissionOutcome{ApplicationCode: "top"}
	require.Equal(t, "top", o.Code())

	o.Application = &JobApplication{ApplicationCode: "nested"}
	require.Equal(t, "nested", o.Code())
}
