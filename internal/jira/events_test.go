package jira

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adfComment = `{
	"type": "doc",
	"version": 1,
	"content": [
		{
			"type": "paragraph",
			"content": [
				{"type": "mention", "attrs": {"id": "bot-account-123", "text": "@claude-agent"}},
				{"type": "text", "text": " please fix the login timeout"}
			]
		}
	]
}`

func TestExtractText_ADF(t *testing.T) {
	text := ExtractText(json.RawMessage(adfComment))
	assert.Equal(t, "@claude-agent please fix the login timeout", text)
}

func TestExtractText_PlainString(t *testing.T) {
	text := ExtractText(json.RawMessage(`"@claude-agent do the thing"`))
	assert.Equal(t, "@claude-agent do the thing", text)
}

func TestExtractText_Empty(t *testing.T) {
	assert.Equal(t, "", ExtractText(nil))
	assert.Equal(t, "", ExtractText(json.RawMessage(`{}`)))
	assert.Equal(t, "", ExtractText(json.RawMessage(`not json`)))
}

func TestCommentEvent_ShouldTrigger(t *testing.T) {
	event := &CommentEvent{
		WebhookEvent: "comment_created",
		Comment:      Comment{Body: json.RawMessage(adfComment)},
		Issue:        Issue{Key: "PLAT-5"},
	}
	assert.True(t, event.ShouldTrigger(""))
	assert.True(t, event.ShouldTrigger("bot-account-123"))

	event.WebhookEvent = "comment_updated"
	assert.True(t, event.ShouldTrigger(""))

	event.WebhookEvent = "jira:issue_updated"
	assert.False(t, event.ShouldTrigger(""))
}

func TestCommentEvent_MentionsBot_ByAccountID(t *testing.T) {
	// No handle in the text, only a mention node with the bot's account ID.
	body := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"mention","attrs":{"id":"bot-account-123","text":"@Agent Bot"}},
		{"type":"text","text":" take a look"}]}]}`
	event := &CommentEvent{
		WebhookEvent: "comment_created",
		Comment:      Comment{Body: json.RawMessage(body)},
	}

	assert.False(t, event.MentionsBot(""))
	assert.True(t, event.MentionsBot("bot-account-123"))
}

func TestIssue_FixBranch(t *testing.T) {
	issue := &Issue{Key: "PLAT-123"}
	assert.Equal(t, "jira-fix/plat-123", issue.FixBranch())
}

func TestIssueFields_DescriptionText(t *testing.T) {
	raw := `{"key":"PLAT-5","fields":{"summary":"Login broken","description":{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Users cannot log in."}]}]}}}`
	var issue Issue
	require.NoError(t, json.Unmarshal([]byte(raw), &issue))

	assert.Equal(t, "Login broken", issue.Fields.Summary)
	assert.Equal(t, "Users cannot log in.", issue.Fields.DescriptionText())
}

func TestIssueFields_NamedFields(t *testing.T) {
	raw := `{"id":"10100","key":"PLAT-5","fields":{"summary":"Login broken","issuetype":{"name":"Bug"},"priority":{"name":"High"},"status":{"name":"In Progress"},"labels":["auth","mobile"]}}`
	var issue Issue
	require.NoError(t, json.Unmarshal([]byte(raw), &issue))

	assert.Equal(t, "10100", issue.ID)
	assert.Equal(t, "Bug", issue.Fields.IssueTypeName())
	assert.Equal(t, "High", issue.Fields.PriorityName())
	assert.Equal(t, "In Progress", issue.Fields.StatusName())
	assert.Equal(t, []string{"auth", "mobile"}, issue.Fields.Labels)
}

func TestIssueFields_NamedFieldDefaults(t *testing.T) {
	var fields IssueFields
	assert.Equal(t, "Unknown", fields.IssueTypeName())
	assert.Equal(t, "", fields.PriorityName())
	assert.Equal(t, "Unknown", fields.StatusName())
}
