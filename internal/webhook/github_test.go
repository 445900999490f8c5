package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalcomix/claude-agent/internal/payload"
	"github.com/globalcomix/claude-agent/internal/signature"
)

func prEvent(action string, draft bool) fiber.Map {
	return fiber.Map{
		"action": action,
		"number": 55,
		"pull_request": fiber.Map{
			"number":   55,
			"title":    "Fix pagination",
			"body":     "Off by one in the cursor",
			"state":    "open",
			"draft":    draft,
			"html_url": "https://github.com/acme/frontend/pull/55",
			"user":     fiber.Map{"login": "dana"},
			"head":     fiber.Map{"ref": "fix/pagination"},
			"base":     fiber.Map{"ref": "main"},
		},
		"repository": fiber.Map{
			"full_name": "acme/frontend",
			"clone_url": "https://github.com/acme/frontend.git",
			"html_url":  "https://github.com/acme/frontend",
		},
	}
}

// postGitHub signs the body the way GitHub does before sending it
func postGitHub(t *testing.T, app *fiber.App, event interface{}, secret, eventKind string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventKind)
	if secret != "" {
		req.Header.Set("X-Hub-Signature-256", "sha256="+signature.HexHMAC(secret, raw))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGitHubPROpenedQueues(t *testing.T) {
	s, app := createTestServer(t, createTestConfig())

	resp := postGitHub(t, app, prEvent("opened", false), "test-secret", "pull_request")
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	item := popQueued(t, s)
	require.NotNil(t, item.Payload.Review)
	review := item.Payload.Review
	assert.Equal(t, payload.PlatformGitHub, review.Platform)
	assert.Equal(t, "acme/frontend", review.Project)
	assert.Equal(t, "55", review.MRIID)
	assert.Equal(t, payload.ActionOpen, review.Action)
	assert.Equal(t, "dana", review.Author)
}

func TestGitHubSynchronizeMapsToUpdate(t *testing.T) {
	s, app := createTestServer(t, createTestConfig())

	resp := postGitHub(t, app, prEvent("synchronize", false), "test-secret", "pull_request")
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, payload.ActionUpdate, popQueued(t, s).Payload.Review.Action)
}

func TestGitHubBadSignature(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postGitHub(t, app, prEvent("opened", false), "wrong-secret", "pull_request")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGitHubMissingSignature(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postGitHub(t, app, prEvent("opened", false), "", "pull_request")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGitHubUnprefixedSignatureRejected(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	raw, err := json.Marshal(prEvent("opened", false))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", signature.HexHMAC("test-secret", raw))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGitHubDraftIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postGitHub(t, app, prEvent("opened", true), "test-secret", "pull_request")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func TestGitHubClosedActionIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postGitHub(t, app, prEvent("closed", false), "test-secret", "pull_request")
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func TestGitHubOtherEventKindIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postGitHub(t, app, fiber.Map{"zen": "Design for failure."}, "test-secret", "ping")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}
