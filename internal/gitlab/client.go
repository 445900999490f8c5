package gitlab

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/globalcomix/claude-agent/internal/config"
)

// Client handles GitLab API operations
type Client struct {
	config config.GitLabConfig
	http   *http.Client
}

// NewClient creates a new GitLab API client
func NewClient(cfg config.GitLabConfig) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// setAuth picks the auth header for the configured token.
// Personal access tokens ("glpat-" prefix, or short legacy tokens) use
// PRIVATE-TOKEN; anything else is treated as an OAuth bearer token.
func (c *Client) setAuth(req *http.Request) {
	token := c.config.Token
	if strings.HasPrefix(token, "glpat-") || len(token) < 50 {
		req.Header.Set("PRIVATE-TOKEN", token)
	} else {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) get(path string, out interface{}) error {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/api/v4" + path

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	req.Header.Set("Content-Type", "application/json")

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
		return fmt.Errorf("GitLab API error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// ErrNotFound is returned for 404 responses
var ErrNotFound = fmt.Errorf("gitlab: not found")

// FetchMR fetches a merge request by project path and IID
func (c *Client) FetchMR(project string, mrIID int) (*MergeRequest, error) {
	var mr MergeRequest
	path := fmt.Sprintf("/projects/%s/merge_requests/%d", url.PathEscape(project), mrIID)
	if err := c.get(path, &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

// FetchProject fetches project metadata by path or numeric ID
func (c *Client) FetchProject(project string) (*Project, error) {
	var p Project
	if err := c.get("/projects/"+url.PathEscape(project), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchMRByBranch returns the first opened MR whose source branch matches
func (c *Client) FetchMRByBranch(project, sourceBranch string) (*MergeRequest, error) {
	var mrs []MergeRequest
	path := fmt.Sprintf("/projects/%s/merge_requests?state=opened&source_branch=%s",
		url.PathEscape(project), url.QueryEscape(sourceBranch))
	if err := c.get(path, &mrs); err != nil {
		return nil, err
	}
	if len(mrs) == 0 {
		return nil, nil
	}
	return &mrs[0], nil
}

// BranchExists reports whether a branch exists in the project
func (c *Client) BranchExists(project, branch string) (bool, error) {
	var b Branch
	path := fmt.Sprintf("/projects/%s/repository/branches/%s",
		url.PathEscape(project), url.PathEscape(branch))
	err := c.get(path, &b)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FetchUnresolvedDiscussions returns discussion threads with unresolved notes
func (c *Client) FetchUnresolvedDiscussions(project string, mrIID int) ([]Discussion, error) {
	var discussions []Discussion
	path := fmt.Sprintf("/projects/%s/merge_requests/%d/discussions?per_page=100",
		url.PathEscape(project), mrIID)
	if err := c.get(path, &discussions); err != nil {
		return nil, err
	}
	unresolved := make([]Discussion, 0)
	for _, d := range discussions {
		if d.Unresolved() {
			unresolved = append(unresolved, d)
		}
	}
	return unresolved, nil
}

// CurrentUser returns the account behind the configured token
func (c *Client) CurrentUser() (*User, error) {
	var u User
	if err := c.get("/user", &u); err != nil {
		return nil, err
	}
	return &u, nil
}
