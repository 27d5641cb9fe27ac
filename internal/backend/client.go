// Package backend is the typed client for the job-application automation
// service. All calls are authenticated, rate-limited and JSON over HTTP;
// non-2xx responses come back as *APIError.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	base  string
	hc    *http.Client
	token func() string
	lim   *hostLimiter
}

type Options struct {
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
}

func New(baseURL string, token func() string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		hc:    &http.Client{Timeout: opts.Timeout},
		token: token,
		lim:   newHostLimiter(opts.RequestsPerSec, opts.Burst),
	}
}

type submitRequest struct {
	JobURL   string `json:"job_url"`
	ResumeID int64  `json:"resume_id"`
}

type continueRequest struct {
	ExtraQA map[string]string `json:"extra_qa,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type preferencesRequest struct {
	Preferences map[string]string `json:"preferences"`
}

func (c *Client) SubmitApplication(ctx context.Context, jobURL string, resumeID int64) (*SubmissionOutcome, error) {
	var out SubmissionOutcome
	err := c.do(ctx, http.MethodPost, "/api/job/apply", submitRequest{JobURL: jobURL, ResumeID: resumeID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ContinueApplication(ctx context.Context, code string, extraQA, fields map[string]string) (*SubmissionOutcome, error) {
	var out SubmissionOutcome
	path := "/api/job/continue/" + url.PathEscape(code)
	err := c.do(ctx, http.MethodPost, path, continueRequest{ExtraQA: extraQA, Fields: fields}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RetryAutomation(ctx context.Context, applicationID int64, prefs map[string]string) (*SubmissionOutcome, error) {
	var out SubmissionOutcome
	path := fmt.Sprintf("/api/job/retry/%d", applicationID)
	err := c.do(ctx, http.MethodPost, path, preferencesRequest{Preferences: prefs}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveDomainPreferences(ctx context.Context, domain string, prefs map[string]string) error {
	path := "/api/job/preferences/" + url.PathEscape(domain)
	return c.do(ctx, http.MethodPost, path, preferencesRequest{Preferences: prefs}, nil)
}

func (c *Client) GetProfile(ctx context.Context) (*ProfileEnvelope, error) {
	var out ProfileEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/job/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveProfile(ctx context.Context, p JobProfile) error {
	return c.do(ctx, http.MethodPost, "/api/job/profile", p, nil)
}

func (c *Client) RecentResumes(ctx context.Context) ([]Resume, error) {
	var out struct {
		Resumes []Resume `json:"resumes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/resume/recent", nil, &out); err != nil {
		return nil, err
	}
	return out.Resumes, nil
}

func (c *Client) ListApplications(ctx context.Context, limit, offset int) ([]JobApplication, error) {
	var out struct {
		Applications []JobApplication `json:"applications"`
	}
	path := fmt.Sprintf("/api/job/applications?limit=%d&offset=%d", limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Applications, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	full := c.base + path
	if err := c.lim.waitURL(ctx, full); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "ApplyFlow/1.0 (+local)")
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return decodeAPIError(res)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err := json.Unmarshal(b, apiErr); err != nil || apiErr.Code == "" {
		if apiErr.Code == "" {
			apiErr.Code = fmt.Sprintf("http_%d", res.StatusCode)
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
		}
	}
	return apiErr
}
