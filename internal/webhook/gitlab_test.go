package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalcomix/claude-agent/internal/gitlab"
	"github.com/globalcomix/claude-agent/internal/payload"
)

func gitlabHeaders() map[string]string {
	return map[string]string{"X-Gitlab-Token": "test-secret"}
}

func mrEvent(action, state string) fiber.Map {
	return fiber.Map{
		"object_kind": "merge_request",
		"user":        fiber.Map{"username": "alice", "name": "Alice"},
		"project": fiber.Map{
			"id":                  42,
			"path_with_namespace": "acme/backend",
			"git_http_url":        "https://gitlab.example.com/acme/backend.git",
		},
		"object_attributes": fiber.Map{
			"iid":           17,
			"title":         "Add feature X",
			"description":   "Implements X",
			"state":         state,
			"action":        action,
			"source_branch": "feature/x",
			"target_branch": "main",
		},
	}
}

func TestGitLabMROpenQueues(t *testing.T) {
	s, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab", mrEvent("open", "opened"), gitlabHeaders())
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "queued", body["status"])
	assert.NotEmpty(t, body["job_id"])

	item := popQueued(t, s)
	require.NotNil(t, item.Payload.Review)
	review := item.Payload.Review
	assert.Equal(t, "acme/backend", review.Project)
	assert.Equal(t, "17", review.MRIID)
	assert.Equal(t, payload.ActionOpen, review.Action)
	assert.Equal(t, payload.PlatformGitLab, review.Platform)
	assert.Equal(t, "alice", review.Author)
}

func TestGitLabMRWrongToken(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab", mrEvent("open", "opened"),
		map[string]string{"X-Gitlab-Token": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "webhook token")
}

func TestGitLabMissingTokenRejected(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab", mrEvent("open", "opened"), nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGitLabMRIgnoredStates(t *testing.T) {
	tests := []struct {
		name  string
		event fiber.Map
	}{
		{"merged state", mrEvent("update", "merged")},
		{"close action", mrEvent("close", "opened")},
		{"approved action", mrEvent("approved", "opened")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, app := createTestServer(t, createTestConfig())
			resp := postJSON(t, app, "/webhook/gitlab", tt.event, gitlabHeaders())
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
		})
	}
}

func TestGitLabMRDraftIgnored(t *testing.T) {
	event := mrEvent("open", "opened")
	event["object_attributes"].(fiber.Map)["draft"] = true

	_, app := createTestServer(t, createTestConfig())
	resp := postJSON(t, app, "/webhook/gitlab", event, gitlabHeaders())
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func TestGitLabMRSkipLabel(t *testing.T) {
	event := mrEvent("open", "opened")
	event["labels"] = []fiber.Map{{"title": "skip-review"}}

	_, app := createTestServer(t, createTestConfig())
	resp := postJSON(t, app, "/webhook/gitlab", event, gitlabHeaders())
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "skipped", body["status"])
	assert.Contains(t, body["message"], "skip-review")
}

func TestGitLabInvalidJSON(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	req := httptest.NewRequest(http.MethodPost, "/webhook/gitlab",
		strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gitlab-Token", "test-secret")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGitLabUnknownKindIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab", fiber.Map{"object_kind": "push"}, gitlabHeaders())
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func noteEvent(note string) fiber.Map {
	return fiber.Map{
		"object_kind": "note",
		"user":        fiber.Map{"username": "bob", "name": "Bob"},
		"project": fiber.Map{
			"path_with_namespace": "acme/backend",
			"git_http_url":        "https://gitlab.example.com/acme/backend.git",
		},
		"object_attributes": fiber.Map{
			"note":          note,
			"noteable_type": "MergeRequest",
		},
		"merge_request": fiber.Map{
			"iid":           9,
			"title":         "Refactor auth",
			"state":         "opened",
			"source_branch": "refactor/auth",
			"target_branch": "main",
		},
	}
}

func TestGitLabNoteTriggersCommentJob(t *testing.T) {
	s, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab",
		noteEvent("@claude-agent add tests for the session store"), gitlabHeaders())
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	item := popQueued(t, s)
	require.NotNil(t, item.Payload.Review)
	assert.Equal(t, payload.ActionComment, item.Payload.Review.Action)
	assert.Equal(t, "add tests for the session store", item.Payload.Review.TriggerComment)
}

func TestGitLabNoteBareMentionDefaultsToReview(t *testing.T) {
	s, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab", noteEvent("@claude-agent"), gitlabHeaders())
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	item := popQueued(t, s)
	assert.Equal(t, "review this", item.Payload.Review.TriggerComment)
}

func TestGitLabNoteWithoutMentionIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab", noteEvent("looks good to me"), gitlabHeaders())
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func TestGitLabNoteFromBotIgnored(t *testing.T) {
	event := noteEvent("@claude-agent review this")
	event["user"] = fiber.Map{"username": "project_42_bot_abc", "name": "Bot"}

	_, app := createTestServer(t, createTestConfig())
	resp := postJSON(t, app, "/webhook/gitlab", event, gitlabHeaders())
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func pipelineEvent(status string, withMR bool) fiber.Map {
	event := fiber.Map{
		"object_kind": "pipeline",
		"user":        fiber.Map{"username": "alice"},
		"project": fiber.Map{
			"path_with_namespace": "acme/backend",
			"git_http_url":        "https://gitlab.example.com/acme/backend.git",
		},
		"object_attributes": fiber.Map{
			"id":     1001,
			"status": status,
			"ref":    "feature/x",
		},
	}
	if withMR {
		event["merge_request"] = fiber.Map{
			"iid":           17,
			"title":         "Add feature X",
			"state":         "opened",
			"source_branch": "feature/x",
			"target_branch": "main",
		}
	}
	return event
}

func TestGitLabPipelineFailedQueuesLintFix(t *testing.T) {
	s, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab", pipelineEvent("failed", true), gitlabHeaders())
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	item := popQueued(t, s)
	require.NotNil(t, item.Payload.Review)
	assert.Equal(t, payload.ActionLintFix, item.Payload.Review.Action)
	assert.Equal(t, "17", item.Payload.Review.MRIID)
}

func TestGitLabPipelineSuccessIgnored(t *testing.T) {
	_, app := createTestServer(t, createTestConfig())

	resp := postJSON(t, app, "/webhook/gitlab", pipelineEvent("success", true), gitlabHeaders())
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}

func TestGitLabPipelineAuthorNotAllowed(t *testing.T) {
	cfg := createTestConfig()
	cfg.Webhook.AllowedAuthors = []string{"carol"}

	_, app := createTestServer(t, cfg)
	resp := postJSON(t, app, "/webhook/gitlab", pipelineEvent("failed", true), gitlabHeaders())

	body := decodeBody(t, resp)
	assert.Equal(t, "ignored", body["status"])
	assert.Contains(t, body["message"], "allowlist")
}

func TestGitLabPipelineLooksUpMRByBranch(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "source_branch=feature%2Fx")
		_ = json.NewEncoder(w).Encode([]gitlab.MergeRequest{{
			IID:          23,
			Title:        "Add feature X",
			State:        "opened",
			SourceBranch: "feature/x",
			TargetBranch: "main",
		}})
	}))
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	s, app := createTestServer(t, cfg)

	resp := postJSON(t, app, "/webhook/gitlab", pipelineEvent("failed", false), gitlabHeaders())
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	item := popQueued(t, s)
	assert.Equal(t, "23", item.Payload.Review.MRIID)
	assert.Equal(t, payload.ActionLintFix, item.Payload.Review.Action)
}

func TestGitLabPipelineNoOpenMRIgnored(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]gitlab.MergeRequest{})
	}))
	defer upstream.Close()

	cfg := createTestConfig()
	cfg.GitLab.BaseURL = upstream.URL
	_, app := createTestServer(t, cfg)

	resp := postJSON(t, app, "/webhook/gitlab", pipelineEvent("failed", false), gitlabHeaders())
	assert.Equal(t, "ignored", decodeBody(t, resp)["status"])
}
