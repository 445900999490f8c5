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

	"github.com/globalcomix/claude-agent/internal/gitlab"
	"github.com/globalcomix/claude-agent/internal/signature"
)

func sentryEvent(action, category, projectSlug string) fiber.Map {
	return fiber.Map{
		"action": action,
		"data": fiber.Map{
			"issue": fiber.Map{
				"id":            "987654",
				"shortId":       "BACKEND-42",
				"title":         "TypeError: cannot read id of nil",
				"culprit":       "app/handlers/user.go in LoadUser",
				"permalink":     "https://sentry.io/organizations/acme/issues/987654/",
				"platform":      "go",
				"issueCategory": category,
				"project":       fiber.Map{"id": "1", "slug": projectSlug},
			},
		},
	}
}

func postSentry(t *testing.T, app *fiber.App, event interface{}, secret string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/sentry", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Sentry-Hook-Signature", "sha256="+signature.HexHMAC(secret, raw))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// branchServer serves the GitLab branch lookup used for idempotency checks
func branchServer(t *testing.T, exists bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(gitlab.Branch{Name: "sentry-fix/backend-42"})
	}))
}

func TestSentryAlertQueuesFix(t *testing.T) {
	upstream := branchServer(t, false)
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	s, app := createTestServer(t, cfg)

	resp := postSentry(t, app, sentryEvent("created", "error", "backend"), "sentry-secret")
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	item := popQueued(t, s)
	require.NotNil(t, item.Payload.SentryFix)
	fix := item.Payload.SentryFix
	assert.Equal(t, "BACKEND-42", fix.ShortID)
	assert.Equal(t, "acme", fix.Organization)
	assert.Equal(t, "go", fix.Platform)
	assert.Equal(t, "error", fix.IssueType) // absent in the alert, defaulted
	assert.Equal(t, "error", fix.IssueCategory)
	assert.Equal(t, "acme/backend", fix.VCSProject)
	assert.Equal(t, "sentry-fix/backend-42", fix.FixBranch)
}

func TestSentryExistingBranchSkips(t *testing.T) {
	upstream := branchServer(t, true)
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	_, app := createTestServer(t, cfg)

	resp := postSentry(t, app, sentryEvent("created", "error", "backend"), "sentry-secret")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "skipped", body["status"])
	assert.Contains(t, body["message"], "sentry-fix/backend-42")
}

func TestSentryExcludedCategories(t *testing.T) {
	for _, category := range []string{"performance", "cron", "replay", "feedback", "uptime"} {
		t.Run(category, func(t *testing.T) {
			_, app := createTestServer(t, createTestConfig())
			resp := postSentry(t, app, sentryEvent("created", category, "backend"), "sentry-secret")
			assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
		})
	}
}

func TestSentryResolvedActionIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postSentry(t, app, sentryEvent("resolved", "error", "backend"), "sentry-secret")
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func TestSentryUnmappedProjectIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postSentry(t, app, sentryEvent("created", "error", "mobile"), "sentry-secret")
	body := decodeBody(t, resp)
	assert.Equal(t, "ignored", body["status"])
	assert.Contains(t, body["message"], "mobile")
}

func TestSentryBadSignature(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postSentry(t, app, sentryEvent("created", "error", "backend"), "wrong")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSentryNoSecretSkipsVerification(t *testing.T) {
	upstream := branchServer(t, false)
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	cfg.Sentry.WebhookSecret = ""
	_, app := createTestServer(t, cfg)

	resp := postSentry(t, app, sentryEvent("created", "error", "backend"), "")
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}
