package sentry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/globalcomix/claude-agent/internal/logging"
)

const defaultBaseURL = "https://sentry.io/api/0"

// Client handles Sentry API operations
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new Sentry API client
func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint (used by tests)
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// get fetches a path, retrying timeouts and connection errors with
// exponential backoff (1s, 2s, 4s). HTTP error statuses are not retried.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			// Transport-level failures are worth retrying
			if _, ok := err.(*url.Error); ok {
				logging.Warn("Sentry API request failed, retrying: %v", err)
				return retry.RetryableError(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("Sentry API error %d: %s", resp.StatusCode, string(body))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// GetIssue fetches issue metadata
func (c *Client) GetIssue(ctx context.Context, organization, issueID string) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/organizations/%s/issues/%s/", organization, issueID)
	if err := c.get(ctx, path, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetLatestEvent fetches the most recent event for an issue
func (c *Client) GetLatestEvent(ctx context.Context, issueID string) (*Event, error) {
	var event Event
	path := fmt.Sprintf("/issues/%s/events/latest/", issueID)
	if err := c.get(ctx, path, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListOrganizations verifies the auth token by listing organizations
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.get(ctx, "/organizations/", &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// Organization is a Sentry organization
type Organization struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}
