package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/globalcomix/claude-agent/internal/config"
	"github.com/globalcomix/claude-agent/internal/github"
	"github.com/globalcomix/claude-agent/internal/gitlab"
	"github.com/globalcomix/claude-agent/internal/payload"
	"github.com/globalcomix/claude-agent/internal/queue"
	"github.com/globalcomix/claude-agent/internal/sentry"
)

func createTestConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{ListenAddr: "127.0.0.1:0"},
		Webhook: config.WebhookConfig{Secret: "test-secret"},
		GitLab: config.GitLabConfig{
			BaseURL: "https://gitlab.example.com",
			Token:   "glpat-test",
		},
		GitHub:    config.GitHubConfig{Token: "ghp_test"},
		Anthropic: config.AnthropicConfig{APIKey: "sk-ant-api03-test"},
		Sentry: config.SentryConfig{
			WebhookSecret: "sentry-secret",
			AuthToken:     "sentry-token",
			Organization:  "acme",
			Mappings: []config.RepoMapping{{
				SentryProject: "backend",
				CloneURL:      "https://gitlab.example.com/acme/backend.git",
				VCSPlatform:   "gitlab",
				VCSProject:    "acme/backend",
				TargetBranch:  "main",
			}},
		},
		Jira: config.JiraConfig{
			Mappings: []config.RepoMapping{{
				JiraProject:  "PLAT",
				CloneURL:     "https://gitlab.example.com/acme/platform.git",
				VCSPlatform:  "gitlab",
				VCSProject:   "acme/platform",
				TargetBranch: "main",
			}},
		},
	}
}

// createTestServer builds a server against a miniredis-backed queue.
// Upstream clients point at cfg defaults; tests that exercise them swap in
// httptest-backed clients.
func createTestServer(t *testing.T, cfg *config.Config) (*Server, *fiber.App) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := &Server{
		cfg:    cfg,
		queue:  queue.NewWithClient(rdb),
		gitlab: gitlab.NewClient(cfg.GitLab),
		github: github.NewClient(cfg.GitHub.Token),
		sentry: sentry.NewClient(cfg.Sentry.AuthToken),
	}
	return s, s.App()
}

// postJSON sends a JSON body with optional headers through the fiber app
func postJSON(t *testing.T, app *fiber.App, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, app *fiber.App, path string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// popQueued drains the next queued item for payload assertions
func popQueued(t *testing.T, s *Server) *payload.QueueItem {
	t.Helper()
	item, err := s.queue.PopBlocking(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item
}
