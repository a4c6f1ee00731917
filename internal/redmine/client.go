package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a Redmine server's REST API. Every call is a single
// attempt — failed creations are reported, not retried, so a flaky
// network can never double-book time entries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("X-Redmine-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("redmine API request", "method", method, "path", path)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("API request transport error", "method", method, "path", path, "error", err, "elapsed", time.Since(requestStart))
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("redmine API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API request failed", "method", method, "path", path, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return respBody, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// FindTimeEntries returns the given user's time entries spent between
// from and to (dates inclusive). When from and to fall on the same day a
// plain equality filter is sent, otherwise Redmine's "><from|to" range
// filter.
func (c *Client) FindTimeEntries(ctx context.Context, userID string, from, to time.Time) ([]TimeEntry, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if sameDate(from, to) {
		q.Set("spent_on", from.Format(DateFormat))
	} else {
		q.Set("spent_on", fmt.Sprintf("><%s|%s", from.Format(DateFormat), to.Format(DateFormat)))
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/time_entries.json", q, nil)
	if err != nil {
		return nil, fmt.Errorf("finding time entries: %w", err)
	}

	var resp struct {
		TimeEntries []TimeEntry `json:"time_entries"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing time entries response: %w", err)
	}

	return resp.TimeEntries, nil
}

// CreateTimeEntry submits one new time entry and returns it with the
// server-assigned id.
func (c *Client) CreateTimeEntry(ctx context.Context, entry NewTimeEntry) (*TimeEntry, error) {
	body := struct {
		TimeEntry NewTimeEntry `json:"time_entry"`
	}{entry}

	data, err := c.doRequest(ctx, http.MethodPost, "/time_entries.json", nil, body)
	if err != nil {
		return nil, fmt.Errorf("creating time entry: %w", err)
	}

	var resp struct {
		TimeEntry TimeEntry `json:"time_entry"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing time entry response: %w", err)
	}

	return &resp.TimeEntry, nil
}

// FindIssue looks an issue up by id; closed selects the closed-issue
// query, otherwise only open issues match. Returns nil when no issue
// matches the filter.
func (c *Client) FindIssue(ctx context.Context, id int, closed bool) (*Issue, error) {
	q := url.Values{}
	q.Set("issue_id", strconv.Itoa(id))
	if closed {
		q.Set("status_id", "closed")
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/issues.json", q, nil)
	if err != nil {
		return nil, fmt.Errorf("finding issue %d: %w", id, err)
	}

	var resp struct {
		Issues []Issue `json:"issues"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing issues response: %w", err)
	}

	if len(resp.Issues) == 0 {
		return nil, nil
	}
	return &resp.Issues[0], nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
