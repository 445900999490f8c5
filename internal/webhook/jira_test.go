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

	"github.com/globalcomix/claude-agent/internal/signature"
)

// adfComment wraps text in a minimal Atlassian Document Format body
func adfComment(text string) fiber.Map {
	return fiber.Map{
		"type":    "doc",
		"version": 1,
		"content": []fiber.Map{{
			"type": "paragraph",
			"content": []fiber.Map{
				{"type": "text", "text": text},
			},
		}},
	}
}

func jiraEvent(commentBody interface{}) fiber.Map {
	return fiber.Map{
		"webhookEvent": "comment_created",
		"comment": fiber.Map{
			"id":     "10001",
			"author": fiber.Map{"accountId": "acc-1", "displayName": "Dana"},
			"body":   commentBody,
		},
		"issue": fiber.Map{
			"id":   "10100",
			"key":  "PLAT-7",
			"self": "https://acme.atlassian.net/rest/api/2/issue/10100",
			"fields": fiber.Map{
				"summary":     "Fix login timeout",
				"description": adfComment("Sessions expire too early."),
				"issuetype":   fiber.Map{"name": "Bug"},
				"priority":    fiber.Map{"name": "High"},
				"status":      fiber.Map{"name": "To Do"},
				"labels":      []string{"auth"},
			},
		},
	}
}

func postJira(t *testing.T, app *fiber.App, event interface{}, secret string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/jira", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Hub-Signature", "sha256="+signature.HexHMAC(secret, raw))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJiraMentionQueuesTicketJob(t *testing.T) {
	upstream := branchServer(t, false)
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	s, app := createTestServer(t, cfg)

	event := jiraEvent(adfComment("@claude-agent implement the session fix"))
	resp := postJira(t, app, event, "")
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	item := popQueued(t, s)
	require.NotNil(t, item.Payload.JiraTicket)
	ticket := item.Payload.JiraTicket
	assert.Equal(t, "PLAT-7", ticket.IssueKey)
	assert.Equal(t, "10100", ticket.IssueID)
	assert.Equal(t, "Fix login timeout", ticket.Summary)
	assert.Equal(t, "Sessions expire too early.", ticket.Description)
	assert.Equal(t, "Bug", ticket.IssueType)
	assert.Equal(t, "High", ticket.Priority)
	assert.Equal(t, "To Do", ticket.Status)
	assert.Equal(t, []string{"auth"}, ticket.Labels)
	assert.Equal(t, "https://acme.atlassian.net/browse/PLAT-7", ticket.JiraURL)
	assert.Equal(t, "@claude-agent implement the session fix", ticket.TriggerComment)
	assert.Equal(t, "Dana", ticket.TriggerAuthor)
	assert.Equal(t, "jira-fix/plat-7", ticket.FixBranch)
}

func TestJiraPlainStringBody(t *testing.T) {
	upstream := branchServer(t, false)
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	s, app := createTestServer(t, cfg)

	resp := postJira(t, app, jiraEvent("@claude-agent fix it"), "")
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "@claude-agent fix it", popQueued(t, s).Payload.JiraTicket.TriggerComment)
}

func TestJiraNoMentionIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postJira(t, app, jiraEvent(adfComment("any updates on this?")), "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func TestJiraNonCommentEventIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	event := jiraEvent(adfComment("@claude-agent fix it"))
	event["webhookEvent"] = "jira:issue_updated"
	resp := postJira(t, app, event, "")
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func TestJiraUnmappedProjectIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	event := jiraEvent(adfComment("@claude-agent fix it"))
	event["issue"].(fiber.Map)["key"] = "OTHER-1"
	resp := postJira(t, app, event, "")

	body := decodeBody(t, resp)
	assert.Equal(t, "ignored", body["status"])
	assert.Contains(t, body["message"], "OTHER-1")
}

func TestJiraExistingBranchSkips(t *testing.T) {
	upstream := branchServer(t, true)
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	_, app := createTestServer(t, cfg)

	resp := postJira(t, app, jiraEvent(adfComment("@claude-agent fix it")), "")
	body := decodeBody(t, resp)
	assert.Equal(t, "skipped", body["status"])
	assert.Contains(t, body["message"], "jira-fix/plat-7")
}

func TestJiraSignatureEnforcedWhenConfigured(t *testing.T) {
	cfg := createTestConfig()
	cfg.Jira.WebhookSecret = "jira-secret"
	_, app := createTestServer(t, cfg)

	event := jiraEvent(adfComment("@claude-agent fix it"))
	resp := postJira(t, app, event, "wrong")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJiraSignatureAccepted(t *testing.T) {
	upstream := branchServer(t, false)
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	cfg.Jira.WebhookSecret = "jira-secret"
	_, app := createTestServer(t, cfg)

	resp := postJira(t, app, jiraEvent(adfComment("@claude-agent fix it")), "jira-secret")
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}
