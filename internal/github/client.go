package github

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// userAgent is required by the GitHub API
const userAgent = "claude-agent"

// Client handles GitHub API operations
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new GitHub API client
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

// ErrNotFound is returned for 404 responses
var ErrNotFound = fmt.Errorf("github: not found")

func (c *Client) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// User is a GitHub account
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// PullRequest is the subset of PR fields the dispatcher needs
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	Draft   bool   `json:"draft"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
	Head    Ref    `json:"head"`
	Base    Ref    `json:"base"`
}

// Ref is a branch reference on a pull request
type Ref struct {
	Ref string `json:"ref"`
}

// ReviewComment is an inline review comment on a pull request
type ReviewComment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
	Path string `json:"path"`
	Line int    `json:"line"`
	User User   `json:"user"`
}

// CurrentUser returns the account behind the configured token
func (c *Client) CurrentUser() (*User, error) {
	var u User
	if err := c.get("/user", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FetchPR fetches a pull request by repo full name and number
func (c *Client) FetchPR(repo string, number int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.get(fmt.Sprintf("/repos/%s/pulls/%d", repo, number), &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// BranchExists reports whether a branch exists in the repository
func (c *Client) BranchExists(repo, branch string) (bool, error) {
	var out struct {
		Name string `json:"name"`
	}
	err := c.get(fmt.Sprintf("/repos/%s/branches/%s", repo, branch), &out)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FetchReviewComments returns the inline review comments on a pull request
func (c *Client) FetchReviewComments(repo string, number int) ([]ReviewComment, error) {
	var comments []ReviewComment
	path := fmt.Sprintf("/repos/%s/pulls/%d/comments?per_page=100", repo, number)
	if err := c.get(path, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}
